package hal

import (
	"fmt"

	"github.com/camhal/camhal/internal/metadata"
)

// Desired FPS pairs for template overlay selection. Flat templates want
// a steady frame rate; variable templates trade it for exposure room.
var (
	desiredFlatFps     = [2]int32{30, 30}
	desiredVariableFps = [2]int32{5, 30}
)

// buildTemplate constructs the default request metadata for a template
// id. Unsupported template ids report NotSupported and the query surface
// returns absent.
func (c *Camera) buildTemplate(templateID int) (*metadata.Metadata, error) {
	switch templateID {
	case metadata.TemplateZeroShutterLag, metadata.TemplateManual:
		return nil, newError(ErrCodeNotSupported,
			fmt.Sprintf("template %d is not supported", templateID), nil)
	}

	template := metadata.New()
	if err := c.meta.FillTemplate(templateID, template); err != nil {
		return nil, err
	}

	// Base defaults for tags no component owns.
	metadata.Update(template, metadata.TagControlMode, metadata.ControlModeAuto)
	metadata.Update(template, metadata.TagJpegQuality, uint8(80))
	metadata.Update(template, metadata.TagJpegThumbnailQuality, uint8(80))
	metadata.Update(template, metadata.TagJpegOrientation, int32(0))

	// Per-template overlay: capture intent, target FPS range, focus mode.
	var intent uint8
	var desired [2]int32
	flat := true
	switch templateID {
	case metadata.TemplatePreview:
		intent = metadata.CaptureIntentPreview
	case metadata.TemplateStillCapture:
		intent = metadata.CaptureIntentStillCapture
		desired = desiredVariableFps
		flat = false
	case metadata.TemplateVideoRecord:
		intent = metadata.CaptureIntentVideoRecord
	case metadata.TemplateVideoSnapshot:
		intent = metadata.CaptureIntentVideoSnapshot
	default:
		intent = metadata.CaptureIntentCustom
	}
	if flat {
		desired = desiredFlatFps
	}
	metadata.Update(template, metadata.TagControlCaptureIntent, intent)

	if fpsRange, ok := nearestFpsRange(c.caps.fpsRanges, desired, flat); ok {
		metadata.Update(template, metadata.TagControlAeTargetFpsRange, fpsRange[0], fpsRange[1])
	} else if fpsRange, ok := nearestFpsRange(c.caps.fpsRanges, desired, false); ok {
		// No flat range available; any range beats none.
		metadata.Update(template, metadata.TagControlAeTargetFpsRange, fpsRange[0], fpsRange[1])
	}

	c.overlayAfMode(templateID, template)
	return template, nil
}

// overlayAfMode upgrades the focus mode default to the continuous mode
// fitting the template's use case, when the device offers it.
func (c *Camera) overlayAfMode(templateID int, template *metadata.Metadata) {
	var preferred uint8
	switch templateID {
	case metadata.TemplateVideoRecord, metadata.TemplateVideoSnapshot:
		preferred = metadata.AfModeContinuousVideo
	default:
		preferred = metadata.AfModeContinuousPicture
	}
	for _, mode := range c.caps.afModes {
		if mode == preferred {
			metadata.Update(template, metadata.TagControlAfMode, preferred)
			return
		}
	}
	// Leave the component-provided default in place.
}
