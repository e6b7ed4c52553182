package metadata

import (
	"fmt"
	"log/slog"
)

// Registry holds an ordered sequence of partial metadata components and
// dispatches fill/validate/apply operations across them. Components are
// added only during camera construction; afterwards the sequence is
// immutable and owned exclusively by the registry.
type Registry struct {
	components []PartialMetadata
	logger     *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{logger: slog.With("module", "metadata")}
}

// AddComponent appends a component to the sequence.
func (r *Registry) AddComponent(component PartialMetadata) {
	r.components = append(r.components, component)
}

// ComponentCount returns the number of registered components.
func (r *Registry) ComponentCount() int {
	return len(r.components)
}

// CheckTagDisjointness verifies that every pair of components owns
// disjoint tag sets. Overlap is a construction bug.
func (r *Registry) CheckTagDisjointness() error {
	owners := make(map[Tag]int)
	for i, component := range r.components {
		seen := make(map[Tag]struct{})
		for _, tags := range [][]Tag{component.StaticTags(), component.ControlTags(), component.DynamicTags()} {
			for _, t := range tags {
				seen[t] = struct{}{}
			}
		}
		for t := range seen {
			if previous, taken := owners[t]; taken {
				return fmt.Errorf("tag %#x owned by both component %d and component %d",
					uint32(t), previous, i)
			}
			owners[t] = i
		}
	}
	return nil
}

// FillStatic populates the static characteristics from every component
// and appends the meta keys describing which tags appear in requests,
// results, and the characteristics themselves.
func (r *Registry) FillStatic(out *Metadata) error {
	var staticTags, controlTags, dynamicTags []int32

	for _, component := range r.components {
		if err := r.firstError(component.PopulateStatic(out), "static properties"); err != nil {
			return err
		}
		for _, t := range component.StaticTags() {
			staticTags = append(staticTags, int32(t))
		}
		for _, t := range component.ControlTags() {
			controlTags = append(controlTags, int32(t))
		}
		for _, t := range component.DynamicTags() {
			dynamicTags = append(dynamicTags, int32(t))
		}
	}

	staticTags = append(staticTags, int32(TagRequestAvailableRequestKeys))
	Update(out, TagRequestAvailableRequestKeys, controlTags...)
	staticTags = append(staticTags, int32(TagRequestAvailableResultKeys))
	Update(out, TagRequestAvailableResultKeys, dynamicTags...)
	// The characteristics key list includes itself.
	staticTags = append(staticTags, int32(TagRequestAvailableCharacteristicsKeys))
	Update(out, TagRequestAvailableCharacteristicsKeys, staticTags...)

	return nil
}

// FillResult populates per-frame result metadata from every component.
func (r *Registry) FillResult(out *Metadata) error {
	for _, component := range r.components {
		if err := r.firstError(component.PopulateDynamic(out), "dynamic result fields"); err != nil {
			return err
		}
	}
	return nil
}

// FillTemplate populates a default request for the given template id.
func (r *Registry) FillTemplate(templateID int, out *Metadata) error {
	for _, component := range r.components {
		if err := component.PopulateTemplate(templateID, out); err != nil {
			return err
		}
	}
	return nil
}

// IsValidRequest reports whether every component accepts its slice of
// the request. A nil request means "use previous settings", which are
// inherently valid.
func (r *Registry) IsValidRequest(request *Metadata) bool {
	if request == nil {
		return true
	}
	for _, component := range r.components {
		if !component.SupportsRequestValues(request) {
			return false
		}
	}
	return true
}

// ApplyRequest writes the request's settings through every component.
// The first failure short-circuits and is reported.
func (r *Registry) ApplyRequest(request *Metadata) error {
	if request == nil {
		return nil
	}
	for _, component := range r.components {
		if err := component.SetRequestValues(request); err != nil {
			r.logger.Error("Failed to set all requested settings", "error", err)
			return err
		}
	}
	return nil
}

func (r *Registry) firstError(err error, what string) error {
	if err != nil {
		r.logger.Error("Failed to get all "+what, "error", err)
	}
	return err
}
