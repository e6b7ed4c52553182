package hal

import (
	"golang.org/x/sys/unix"

	"github.com/camhal/camhal/internal/metadata"
	"github.com/camhal/camhal/pkg/linuxav/v4l2"
)

// capabilities carries the device-derived facts the camera needs beyond
// the metadata registry itself.
type capabilities struct {
	fpsRanges [][2]int32
	afModes   []uint8
}

// buildCameraMetadata assembles the full set of partial metadata
// components for a V4L2 camera. The device is connected for the duration
// so components can make their capability queries.
func buildCameraMetadata(device CaptureDevice) (*metadata.Registry, *capabilities, error) {
	if err := device.Connect(); err != nil {
		return nil, nil, newError(ErrCodeNoDevice, "failed to connect for metadata construction", err)
	}
	defer device.Disconnect()

	registry := metadata.NewRegistry()
	controls := controlDevice{device}
	addIgnored := func(controlTag, optionsTag metadata.Tag, options []uint8) {
		component, err := metadata.NewNoEffectMenuControl(controlTag, optionsTag, options)
		if err != nil {
			// Only reachable with an empty option list, which would be a
			// programming error in this roster.
			panic(err)
		}
		registry.AddComponent(component)
	}

	addIgnored(metadata.TagColorCorrectionAberrationMode,
		metadata.TagColorCorrectionAvailableAberrationModes,
		[]uint8{metadata.AberrationModeFast, metadata.AberrationModeHighQuality})

	// 3A. In general, default to ON/AUTO since they imply pretty much
	// nothing, while OFF implies guarantees about not hindering
	// performance.
	registry.AddComponent(metadata.NewFixedProperty(metadata.TagControlMaxRegions,
		int32(0), int32(0), int32(0)))
	registry.AddComponent(metadata.NewEnumControlOrDefault(controls,
		v4l2.CidExposureAuto,
		metadata.TagControlAeMode, metadata.TagControlAeAvailableModes,
		map[int32]uint8{
			v4l2.ExposureAuto:   metadata.AeModeOn,
			v4l2.ExposureManual: metadata.AeModeOff,
		},
		metadata.AeModeOn))
	registry.AddComponent(metadata.NewEnumControlOrDefault(controls,
		v4l2.CidPowerLineFrequency,
		metadata.TagControlAeAntibandingMode, metadata.TagControlAeAvailableAntibandingModes,
		map[int32]uint8{
			v4l2.PowerLineFrequencyDisabled: metadata.AeAntibandingModeOff,
			v4l2.PowerLineFrequency50Hz:     metadata.AeAntibandingMode50Hz,
			v4l2.PowerLineFrequency60Hz:     metadata.AeAntibandingMode60Hz,
			v4l2.PowerLineFrequencyAuto:     metadata.AeAntibandingModeAuto,
		},
		metadata.AeAntibandingModeAuto))

	// V4L2 offers multiple white balance interfaces. Try the advanced one
	// before falling back to the simpler version.
	// Modes that don't match up between the taxonomies:
	// HAL: WARM_FLUORESCENT, TWILIGHT. V4L2: FLUORESCENT_H, HORIZON, FLASH.
	awb, err := metadata.NewEnumControl(controls,
		v4l2.CidAutoNPresetWhiteBal,
		metadata.TagControlAwbMode, metadata.TagControlAwbAvailableModes,
		map[int32]uint8{
			v4l2.WhiteBalanceManual:       metadata.AwbModeOff,
			v4l2.WhiteBalanceAuto:         metadata.AwbModeAuto,
			v4l2.WhiteBalanceIncandescent: metadata.AwbModeIncandescent,
			v4l2.WhiteBalanceFluorescent:  metadata.AwbModeFluorescent,
			v4l2.WhiteBalanceDaylight:     metadata.AwbModeDaylight,
			v4l2.WhiteBalanceCloudy:       metadata.AwbModeCloudyDaylight,
			v4l2.WhiteBalanceShade:        metadata.AwbModeShade,
		})
	if err == nil {
		registry.AddComponent(awb)
	} else {
		registry.AddComponent(metadata.NewEnumControlOrDefault(controls,
			v4l2.CidAutoWhiteBalance,
			metadata.TagControlAwbMode, metadata.TagControlAwbAvailableModes,
			map[int32]uint8{0: metadata.AwbModeOff, 1: metadata.AwbModeAuto},
			metadata.AwbModeAuto))
	}

	// Modes that don't match up:
	// HAL: FACE_PRIORITY, ACTION, NIGHT_PORTRAIT, THEATRE, STEADYPHOTO,
	// BARCODE, HIGH_SPEED_VIDEO, SNOW (combined with BEACH in V4L2; only
	// BEACH is reported to avoid ambiguity).
	// V4L2: BACKLIGHT, DAWN_DUSK, FALL_COLORS, TEXT.
	registry.AddComponent(metadata.NewEnumControlOrDefault(controls,
		v4l2.CidSceneMode,
		metadata.TagControlSceneMode, metadata.TagControlAvailableSceneModes,
		map[int32]uint8{
			v4l2.SceneModeNone:        metadata.SceneModeDisabled,
			v4l2.SceneModeBeachSnow:   metadata.SceneModeBeach,
			v4l2.SceneModeCandleLight: metadata.SceneModeCandlelight,
			v4l2.SceneModeFireworks:   metadata.SceneModeFireworks,
			v4l2.SceneModeLandscape:   metadata.SceneModeLandscape,
			v4l2.SceneModeNight:       metadata.SceneModeNight,
			v4l2.SceneModePartyIndoor: metadata.SceneModeParty,
			v4l2.SceneModeSports:      metadata.SceneModeSports,
			v4l2.SceneModeSunset:      metadata.SceneModeSunset,
		},
		metadata.SceneModeDisabled))

	// Modes that don't match up:
	// HAL: POSTERIZE, WHITEBOARD, BLACKBOARD.
	// V4L2: ANTIQUE, ART_FREEZE, EMBOSS, GRASS_GREEN, SKETCH, SKIN_WHITEN,
	// SKY_BLUE, SILHOUETTE, VIVID, SET_CBCR.
	registry.AddComponent(metadata.NewEnumControlOrDefault(controls,
		v4l2.CidColorFX,
		metadata.TagControlEffectMode, metadata.TagControlAvailableEffects,
		map[int32]uint8{
			v4l2.ColorFXNone:         metadata.EffectModeOff,
			v4l2.ColorFXBW:           metadata.EffectModeMono,
			v4l2.ColorFXNegative:     metadata.EffectModeNegative,
			v4l2.ColorFXSolarization: metadata.EffectModeSolarize,
			v4l2.ColorFXSepia:        metadata.EffectModeSepia,
			v4l2.ColorFXAqua:         metadata.EffectModeAqua,
		},
		metadata.EffectModeOff))

	// All devices must support FAST, and FAST can be equivalent to OFF,
	// so either way it's fine to list.
	addIgnored(metadata.TagEdgeMode, metadata.TagEdgeAvailableEdgeModes,
		[]uint8{metadata.EdgeModeFast})

	// No known V4L2 hot pixel correction. But it might be happening, so
	// report FAST/HIGH_QUALITY.
	addIgnored(metadata.TagHotPixelMode, metadata.TagHotPixelAvailableHotPixelModes,
		[]uint8{metadata.HotPixelModeFast, metadata.HotPixelModeHighQuality})
	// ON only needs to be supported for RAW capable devices.
	addIgnored(metadata.TagStatisticsHotPixelMapMode,
		metadata.TagStatisticsInfoAvailableHotPixelMapModes,
		[]uint8{metadata.HotPixelMapModeOff})

	// No way to actually get the aperture and focal length in V4L2, but
	// they're required keys, so fake them. The reference values are the
	// RPi camera v2 (f/2.0, 3.04mm).
	registry.AddComponent(newIgnoredFloatControl(metadata.TagLensAperture,
		metadata.TagLensInfoAvailableApertures, 2.0))
	registry.AddComponent(newIgnoredFloatControl(metadata.TagLensFocalLength,
		metadata.TagLensInfoAvailableFocalLengths, 3.04))
	// No known way to get filter densities from V4L2; report 0 to
	// indicate the control is not supported.
	registry.AddComponent(newIgnoredFloatControl(metadata.TagLensFilterDensity,
		metadata.TagLensInfoAvailableFilterDensities, 0.0))
	// V4L2 focal units do not correspond to a particular physical unit.
	registry.AddComponent(metadata.NewFixedProperty(
		metadata.TagLensInfoFocusDistanceCalibration,
		metadata.FocusDistanceCalibrationUncalibrated))

	// No known V4L2 lens shading. But it might be happening, so report
	// FAST/HIGH_QUALITY.
	addIgnored(metadata.TagShadingMode, metadata.TagShadingAvailableModes,
		[]uint8{metadata.ShadingModeFast, metadata.ShadingModeHighQuality})
	addIgnored(metadata.TagStatisticsLensShadingMapMode,
		metadata.TagStatisticsInfoAvailableLensShadingMapModes,
		[]uint8{metadata.LensShadingMapModeOff})

	// V4L2 doesn't differentiate between OPTICAL and VIDEO stabilization,
	// so only report one (and report the other as OFF).
	registry.AddComponent(metadata.NewEnumControlOrDefault(controls,
		v4l2.CidImageStabilization,
		metadata.TagControlVideoStabilizationMode,
		metadata.TagControlAvailableVideoStabilizationModes,
		map[int32]uint8{
			0: metadata.VideoStabilizationModeOff,
			1: metadata.VideoStabilizationModeOn,
		},
		metadata.VideoStabilizationModeOff))
	addIgnored(metadata.TagLensOpticalStabilizationMode,
		metadata.TagLensInfoAvailableOpticalStabilization,
		[]uint8{metadata.OpticalStabilizationModeOff})

	// Unable to control noise reduction in V4L2 devices, but FAST is
	// allowed to be the same as OFF.
	addIgnored(metadata.TagNoiseReductionMode,
		metadata.TagNoiseReductionAvailableNoiseReductionModes,
		[]uint8{metadata.NoiseReductionModeFast})

	// Focus is not controllable through the menu-control interface, so
	// autofocus is advertised as OFF only.
	afModes := []uint8{metadata.AfModeOff}
	addIgnored(metadata.TagControlAfMode, metadata.TagControlAfAvailableModes, afModes)

	// For now, no thumbnails available (only [0,0], the "no thumbnail"
	// size).
	registry.AddComponent(newThumbnailComponent())

	// V4L2 can only support one stream configuration at a time; report
	// the minimum allowable for LIMITED devices.
	registry.AddComponent(metadata.NewFixedProperty(metadata.TagRequestMaxNumOutputStreams,
		int32(0) /* raw */, int32(2) /* non-stalling */, int32(1) /* stalling */))
	// Reprocessing not supported.
	registry.AddComponent(metadata.NewFixedProperty(metadata.TagRequestMaxNumInputStreams, int32(0)))
	// No way to know the pipeline depth for V4L2, so fake it with the
	// max allowable latency.
	registry.AddComponent(metadata.NewFixedProperty(metadata.TagRequestPipelineMaxDepth, uint8(4)))
	registry.AddComponent(metadata.NewFixedProperty(metadata.TagRequestPartialResultCount, int32(1)))
	registry.AddComponent(metadata.NewFixedProperty(metadata.TagSyncMaxLatency,
		metadata.SyncMaxLatencyUnknown))

	// V4L2 VIDIOC_CROPCAP doesn't give a way to query this; it's driver
	// dependent. Assume freeform; some cameras may just behave badly.
	registry.AddComponent(metadata.NewFixedProperty(metadata.TagScalerCroppingType,
		metadata.CroppingTypeFreeform))
	// No way to get the physical sensor size in V4L2, so faked with the
	// RPi camera v2 (3.674 x 2.760 mm). Physical size feeds framework
	// field-of-view and pixel-pitch calculations.
	registry.AddComponent(metadata.NewFixedProperty(metadata.TagSensorInfoPhysicalSize,
		float32(3.674), float32(2.760)))
	registry.AddComponent(metadata.NewFixedProperty(metadata.TagSensorInfoTimestampSource,
		metadata.TimestampSourceUnknown))
	// No way to get orientation from V4L2 either; external cameras
	// report zero.
	registry.AddComponent(metadata.NewFixedProperty(metadata.TagSensorOrientation, int32(0)))
	registry.AddComponent(metadata.NewFixedProperty(metadata.TagLensFacing,
		metadata.LensFacingExternal))

	// Face detection not supported.
	addIgnored(metadata.TagStatisticsFaceDetectMode,
		metadata.TagStatisticsInfoAvailableFaceDetectModes,
		[]uint8{metadata.FaceDetectModeOff})
	registry.AddComponent(metadata.NewFixedProperty(metadata.TagStatisticsInfoMaxFaceCount, int32(0)))

	// The camera pretends to at least meet the LIMITED and
	// BACKWARD_COMPATIBLE functionality requirements.
	registry.AddComponent(metadata.NewFixedProperty(metadata.TagInfoSupportedHardwareLevel,
		metadata.HardwareLevelLimited))
	registry.AddComponent(metadata.NewFixedProperty(metadata.TagRequestAvailableCapabilities,
		metadata.CapabilityBackwardCompatible))

	// Shutter timestamps come from the boot clock at dequeue time.
	registry.AddComponent(newTimestampComponent())

	// Stream-related properties from the device's format/size/duration
	// capabilities. This is also where unsupportable devices get rejected.
	scan, err := scanDeviceCapabilities(device)
	if err != nil {
		return nil, nil, err
	}
	for _, component := range scan.components {
		registry.AddComponent(component)
	}

	if err := registry.CheckTagDisjointness(); err != nil {
		return nil, nil, newError(ErrCodeInvalidArgument, "metadata components overlap", err)
	}

	return registry, &capabilities{fpsRanges: scan.fpsRanges, afModes: afModes}, nil
}

// newIgnoredFloatControl is an ignored control over a single fake float
// value.
func newIgnoredFloatControl(controlTag, optionsTag metadata.Tag, value float32) metadata.PartialMetadata {
	component, err := metadata.NewNoEffectMenuControl(controlTag, optionsTag, []float32{value})
	if err != nil {
		panic(err)
	}
	return component
}

// timestampComponent emits the sensor timestamp into each result from
// the boot clock. It owns only the dynamic tag.
type timestampComponent struct {
	now func() (int64, error)
}

func newTimestampComponent() *timestampComponent {
	return &timestampComponent{now: bootTimeNs}
}

func bootTimeNs() (int64, error) {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_BOOTTIME, &ts); err != nil {
		return 0, err
	}
	return ts.Nano(), nil
}

func (t *timestampComponent) StaticTags() []metadata.Tag  { return nil }
func (t *timestampComponent) ControlTags() []metadata.Tag { return nil }
func (t *timestampComponent) DynamicTags() []metadata.Tag {
	return []metadata.Tag{metadata.TagSensorTimestamp}
}

func (t *timestampComponent) PopulateStatic(*metadata.Metadata) error { return nil }

func (t *timestampComponent) PopulateDynamic(out *metadata.Metadata) error {
	now, err := t.now()
	if err != nil {
		return err
	}
	metadata.Update(out, metadata.TagSensorTimestamp, now)
	return nil
}

func (t *timestampComponent) PopulateTemplate(int, *metadata.Metadata) error { return nil }
func (t *timestampComponent) SupportsRequestValues(*metadata.Metadata) bool  { return true }
func (t *timestampComponent) SetRequestValues(*metadata.Metadata) error      { return nil }

// thumbnailComponent reports the "no thumbnail" size and accepts only
// requests for it. Thumbnail sizes are (width, height) pairs, so this
// control has arity 2 and gets its own component rather than the generic
// single-value control.
type thumbnailComponent struct{}

func newThumbnailComponent() *thumbnailComponent { return &thumbnailComponent{} }

func (t *thumbnailComponent) StaticTags() []metadata.Tag {
	return []metadata.Tag{metadata.TagJpegAvailableThumbnailSizes}
}

func (t *thumbnailComponent) ControlTags() []metadata.Tag {
	return []metadata.Tag{metadata.TagJpegThumbnailSize}
}

func (t *thumbnailComponent) DynamicTags() []metadata.Tag {
	return []metadata.Tag{metadata.TagJpegThumbnailSize}
}

func (t *thumbnailComponent) PopulateStatic(out *metadata.Metadata) error {
	metadata.Update(out, metadata.TagJpegAvailableThumbnailSizes, int32(0), int32(0))
	return nil
}

func (t *thumbnailComponent) PopulateDynamic(out *metadata.Metadata) error {
	metadata.Update(out, metadata.TagJpegThumbnailSize, int32(0), int32(0))
	return nil
}

func (t *thumbnailComponent) PopulateTemplate(_ int, out *metadata.Metadata) error {
	metadata.Update(out, metadata.TagJpegThumbnailSize, int32(0), int32(0))
	return nil
}

func (t *thumbnailComponent) SupportsRequestValues(request *metadata.Metadata) bool {
	if request.IsEmpty() || !request.Contains(metadata.TagJpegThumbnailSize) {
		return true
	}
	size, err := metadata.ArrayValue[int32](request, metadata.TagJpegThumbnailSize, 2)
	if err != nil {
		return false
	}
	return size[0] == 0 && size[1] == 0
}

func (t *thumbnailComponent) SetRequestValues(request *metadata.Metadata) error {
	if !t.SupportsRequestValues(request) {
		return newError(ErrCodeInvalidArgument, "unsupported thumbnail size requested", nil)
	}
	return nil
}
