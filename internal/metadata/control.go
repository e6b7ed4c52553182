package metadata

import (
	"errors"
	"fmt"
	"log/slog"
)

// Control is a PartialMetadata with values that can be gotten and set
// through a tagged delegate, optionally constrained by a tagged option
// set.
type Control[T Value] struct {
	delegate *TaggedControlDelegate[T]
	options  *TaggedControlOptions[T] // may be nil
	logger   *slog.Logger
}

// NewControl builds a control from a delegate and optional options (nil
// means every value is accepted and no static tag is owned).
func NewControl[T Value](delegate *TaggedControlDelegate[T], options *TaggedControlOptions[T]) *Control[T] {
	return &Control[T]{
		delegate: delegate,
		options:  options,
		logger:   slog.With("module", "metadata"),
	}
}

// NewNoEffectMenuControl builds a control advertising a menu of options
// that have no device effect. The default is the first option.
func NewNoEffectMenuControl[T Value](delegateTag, optionsTag Tag, options []T) (*Control[T], error) {
	if len(options) == 0 {
		return nil, newError(ErrCodeNoOptions, "at least one option must be provided", nil)
	}
	return NewControl(
		NewTaggedControlDelegate(delegateTag, NewNoEffectControlDelegate(options[0])),
		NewTaggedControlOptions(optionsTag, NewMenuControlOptions(options)),
	), nil
}

// StaticTags returns the options tag, when an option set is present.
func (c *Control[T]) StaticTags() []Tag {
	if c.options == nil {
		return nil
	}
	return []Tag{c.options.Tag()}
}

// ControlTags returns the delegate tag.
func (c *Control[T]) ControlTags() []Tag {
	return []Tag{c.delegate.Tag()}
}

// DynamicTags returns the delegate tag.
func (c *Control[T]) DynamicTags() []Tag {
	return []Tag{c.delegate.Tag()}
}

// PopulateStatic reports the option set, when present.
func (c *Control[T]) PopulateStatic(out *Metadata) error {
	if c.options == nil {
		return nil
	}
	Update(out, c.options.Tag(), c.options.MetadataRepresentation()...)
	return nil
}

// PopulateDynamic reports the current setting.
func (c *Control[T]) PopulateDynamic(out *Metadata) error {
	value, err := c.delegate.GetValue()
	if err != nil {
		return newError(ErrCodeDeviceError,
			fmt.Sprintf("failed to read control %#x", uint32(c.delegate.Tag())), err)
	}
	Update(out, c.delegate.Tag(), value)
	return nil
}

// PopulateTemplate writes this control's default for a template. The
// options provider is asked first; without one the current device value
// is used.
func (c *Control[T]) PopulateTemplate(templateID int, out *Metadata) error {
	var value T
	var err error
	if c.options != nil {
		value, err = c.options.DefaultValueForTemplate(templateID)
	} else {
		value, err = c.delegate.GetValue()
	}
	if err != nil {
		return err
	}
	Update(out, c.delegate.Tag(), value)
	return nil
}

// SupportsRequestValues checks the request's value for this control
// against the option set. Absent tags are inherently supported.
func (c *Control[T]) SupportsRequestValues(request *Metadata) bool {
	if request.IsEmpty() {
		return true
	}

	requested, err := SingleValue[T](request, c.delegate.Tag())
	if err != nil {
		if errors.Is(err, ErrTagNotFound) {
			// Nothing requested of this control, that's fine.
			return true
		}
		c.logger.Error("Failure while searching for request value",
			"tag", uint32(c.delegate.Tag()), "error", err)
		return false
	}

	if c.options == nil {
		// No options for this control; request implicitly supported.
		return true
	}
	return c.options.IsSupported(requested)
}

// SetRequestValues validates the request's value for this control and
// writes it through.
func (c *Control[T]) SetRequestValues(request *Metadata) error {
	if request.IsEmpty() {
		return nil
	}

	requested, err := SingleValue[T](request, c.delegate.Tag())
	if err != nil {
		if errors.Is(err, ErrTagNotFound) {
			return nil
		}
		return err
	}

	if c.options != nil && !c.options.IsSupported(requested) {
		return newError(ErrCodeUnsupported,
			fmt.Sprintf("unsupported value requested for control %#x", uint32(c.delegate.Tag())), nil)
	}

	if err := c.delegate.SetValue(requested); err != nil {
		return newError(ErrCodeDeviceError,
			fmt.Sprintf("failed to write control %#x", uint32(c.delegate.Tag())), err)
	}
	return nil
}
