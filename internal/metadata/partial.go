package metadata

// PartialMetadata is a self-contained unit owning a subset of metadata
// tags. Distinct components in one registry must own pairwise disjoint
// tag sets.
type PartialMetadata interface {
	// The tags this component is responsible for, split by role.
	StaticTags() []Tag
	ControlTags() []Tag
	DynamicTags() []Tag

	// PopulateStatic writes every static tag this component owns. A
	// component with no static tags is a successful no-op.
	PopulateStatic(out *Metadata) error
	// PopulateDynamic writes current values for the component's dynamic
	// tags, typically by reading the underlying device control.
	PopulateDynamic(out *Metadata) error
	// PopulateTemplate writes a sensible default for the given template
	// id. Components with an options provider ask it for a per-template
	// default; otherwise the current device value is used.
	PopulateTemplate(templateID int, out *Metadata) error
	// SupportsRequestValues reports whether the request's values for
	// this component's control tags are all supported. Missing tags are
	// treated as "no request" and are inherently supported.
	SupportsRequestValues(request *Metadata) bool
	// SetRequestValues validates and writes through the request's values
	// for this component's control tags.
	SetRequestValues(request *Metadata) error
}
