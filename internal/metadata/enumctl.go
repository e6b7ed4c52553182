package metadata

import (
	"fmt"
	"log/slog"
)

// ctrlTypeMenu is the V4L2 menu control type; enum controls can only be
// built over menu controls.
const ctrlTypeMenu = 3

// ControlQuery is the slice of a control query result the enum control
// builder needs.
type ControlQuery struct {
	Type    uint32
	Minimum int64
	Maximum int64
	Step    uint64
}

// ControlDevice is the device backend an enum control reads and writes
// through. The V4L2 wrapper satisfies it via a thin adapter. QueryMenu
// fails for indices inside a menu control's range that are not valid
// items.
type ControlDevice interface {
	QueryControl(controlID uint32) (ControlQuery, error)
	QueryMenu(controlID, index uint32) (string, error)
	GetControl(controlID uint32) (int32, error)
	SetControl(controlID uint32, desired int32) (int32, error)
}

// NewEnumControl builds a control backed by a V4L2 menu control with a
// bidirectional device-value ↔ metadata-value mapping. The device is
// queried for the control's valid range; mapping entries outside it are
// filtered out. Construction fails when no mapping survives, and the
// caller falls back (typically to a single-option no-effect control).
func NewEnumControl(
	device ControlDevice,
	v4l2Control uint32,
	delegateTag, optionsTag Tag,
	v4l2ToMetadata map[int32]uint8,
) (*Control[uint8], error) {
	logger := slog.With("module", "metadata")

	query, err := device.QueryControl(v4l2Control)
	if err != nil {
		return nil, newError(ErrCodeDeviceError,
			fmt.Sprintf("failed to query control %#x", v4l2Control), err)
	}
	if query.Type != ctrlTypeMenu {
		return nil, newError(ErrCodeNotSupported,
			fmt.Sprintf("control %#x is of type %d, not a menu", v4l2Control, query.Type), nil)
	}

	// Convert device options to metadata options. The query maximum is
	// inclusive.
	step := int64(query.Step)
	if step < 1 {
		step = 1
	}
	var options []uint8
	for i := query.Minimum; i <= query.Maximum; i += step {
		if _, err := device.QueryMenu(v4l2Control, uint32(i)); err != nil {
			// Not a valid item of this menu.
			continue
		}
		mapped, known := v4l2ToMetadata[int32(i)]
		if !known {
			logger.Warn("Control has unknown option", "control", v4l2Control, "option", i)
			continue
		}
		options = append(options, mapped)
	}
	if len(options) == 0 {
		return nil, newError(ErrCodeNoOptions,
			fmt.Sprintf("no supported options for control %#x", v4l2Control), nil)
	}

	get := func() (uint8, error) {
		deviceValue, err := device.GetControl(v4l2Control)
		if err != nil {
			return 0, err
		}
		mapped, known := v4l2ToMetadata[deviceValue]
		if !known {
			return 0, newError(ErrCodeDeviceError,
				fmt.Sprintf("unknown value %d for control %#x", deviceValue, v4l2Control), nil)
		}
		return mapped, nil
	}
	set := func(value uint8) error {
		// Inverse lookup in the mapping.
		for deviceValue, metadataValue := range v4l2ToMetadata {
			if metadataValue == value {
				_, err := device.SetControl(v4l2Control, deviceValue)
				return err
			}
		}
		return newError(ErrCodeDeviceError,
			fmt.Sprintf("no device conversion for control value %d", value), nil)
	}

	return NewControl(
		NewTaggedControlDelegate(delegateTag, NewFuncControlDelegate(get, set)),
		NewTaggedControlOptions(optionsTag, NewMenuControlOptions(options)),
	), nil
}

// NewEnumControlOrDefault builds an enum control over a device menu
// control, falling back to a single-option no-effect control with the
// given default when the device control cannot serve.
func NewEnumControlOrDefault(
	device ControlDevice,
	v4l2Control uint32,
	delegateTag, optionsTag Tag,
	v4l2ToMetadata map[int32]uint8,
	defaultValue uint8,
) PartialMetadata {
	control, err := NewEnumControl(device, v4l2Control, delegateTag, optionsTag, v4l2ToMetadata)
	if err != nil {
		slog.With("module", "metadata").Debug("Falling back to no-effect control",
			"control", v4l2Control, "error", err)
		fallback, _ := NewNoEffectMenuControl(delegateTag, optionsTag, []uint8{defaultValue})
		return fallback
	}
	return control
}
