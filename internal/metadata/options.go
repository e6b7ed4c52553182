package metadata

// ControlOptions describe the acceptable values of a control.
type ControlOptions[T Value] interface {
	// MetadataRepresentation is the static metadata encoding of the
	// option set.
	MetadataRepresentation() []T
	// IsSupported reports whether a value is in the option set.
	IsSupported(value T) bool
	// DefaultValueForTemplate returns the default for a template id.
	DefaultValueForTemplate(templateID int) (T, error)
}

// TaggedControlOptions wrap options with the static tag the option set
// is reported under.
type TaggedControlOptions[T Value] struct {
	tag     Tag
	options ControlOptions[T]
}

// NewTaggedControlOptions pairs options with their static tag.
func NewTaggedControlOptions[T Value](t Tag, options ControlOptions[T]) *TaggedControlOptions[T] {
	return &TaggedControlOptions[T]{tag: t, options: options}
}

// Tag returns the static tag the option set is reported under.
func (o *TaggedControlOptions[T]) Tag() Tag { return o.tag }

// MetadataRepresentation forwards to the wrapped options.
func (o *TaggedControlOptions[T]) MetadataRepresentation() []T {
	return o.options.MetadataRepresentation()
}

// IsSupported forwards to the wrapped options.
func (o *TaggedControlOptions[T]) IsSupported(value T) bool {
	return o.options.IsSupported(value)
}

// DefaultValueForTemplate forwards to the wrapped options.
func (o *TaggedControlOptions[T]) DefaultValueForTemplate(templateID int) (T, error) {
	return o.options.DefaultValueForTemplate(templateID)
}

// MenuControlOptions offer a fixed list of acceptable values.
type MenuControlOptions[T Value] struct {
	options []T
}

// NewMenuControlOptions creates menu options over the given value list.
func NewMenuControlOptions[T Value](options []T) *MenuControlOptions[T] {
	return &MenuControlOptions[T]{options: append([]T(nil), options...)}
}

// MetadataRepresentation of a menu is the option list itself.
func (o *MenuControlOptions[T]) MetadataRepresentation() []T {
	return append([]T(nil), o.options...)
}

// IsSupported reports whether value is one of the menu options.
func (o *MenuControlOptions[T]) IsSupported(value T) bool {
	for _, option := range o.options {
		if option == value {
			return true
		}
	}
	return false
}

// DefaultValueForTemplate returns the menu's default for a template.
// With no options to choose from every template fails.
func (o *MenuControlOptions[T]) DefaultValueForTemplate(templateID int) (T, error) {
	var zero T
	if len(o.options) == 0 {
		return zero, newError(ErrCodeNoOptions, "can't get default value, options are empty", nil)
	}
	// Default to the first option.
	return o.options[0], nil
}
