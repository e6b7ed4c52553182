package metadata

// Tag is a 32-bit metadata tag identifier. The high 16 bits select a
// section, the low 16 bits an entry within the section.
type Tag uint32

// Sections of the tag space.
const (
	sectionColorCorrection = iota
	sectionControl
	sectionDemosaic
	sectionEdge
	sectionFlash
	sectionFlashInfo
	sectionHotPixel
	sectionJpeg
	sectionLens
	sectionLensInfo
	sectionNoiseReduction
	sectionQuirks
	sectionRequest
	sectionScaler
	sectionSensor
	sectionSensorInfo
	sectionShading
	sectionStatistics
	sectionStatisticsInfo
	sectionTonemap
	sectionLed
	sectionInfo
	sectionBlackLevel
	sectionSync
)

func tag(section, index uint32) Tag {
	return Tag(section<<16 | index)
}

// Color correction.
var (
	TagColorCorrectionAberrationMode           = tag(sectionColorCorrection, 3)
	TagColorCorrectionAvailableAberrationModes = tag(sectionColorCorrection, 4)
)

// Control (3A and friends).
var (
	TagControlAeAntibandingMode                = tag(sectionControl, 0)
	TagControlAeMode                           = tag(sectionControl, 3)
	TagControlAeTargetFpsRange                 = tag(sectionControl, 5)
	TagControlAfMode                           = tag(sectionControl, 7)
	TagControlAwbMode                          = tag(sectionControl, 11)
	TagControlCaptureIntent                    = tag(sectionControl, 13)
	TagControlEffectMode                       = tag(sectionControl, 14)
	TagControlMode                             = tag(sectionControl, 15)
	TagControlSceneMode                        = tag(sectionControl, 16)
	TagControlVideoStabilizationMode           = tag(sectionControl, 17)
	TagControlAeAvailableAntibandingModes      = tag(sectionControl, 18)
	TagControlAeAvailableModes                 = tag(sectionControl, 19)
	TagControlAeAvailableTargetFpsRanges       = tag(sectionControl, 20)
	TagControlAfAvailableModes                 = tag(sectionControl, 23)
	TagControlAvailableEffects                 = tag(sectionControl, 24)
	TagControlAvailableSceneModes              = tag(sectionControl, 25)
	TagControlAvailableVideoStabilizationModes = tag(sectionControl, 26)
	TagControlAwbAvailableModes                = tag(sectionControl, 27)
	TagControlMaxRegions                       = tag(sectionControl, 28)
)

// Edge enhancement.
var (
	TagEdgeMode               = tag(sectionEdge, 0)
	TagEdgeAvailableEdgeModes = tag(sectionEdge, 2)
)

// Hot pixel correction.
var (
	TagHotPixelMode               = tag(sectionHotPixel, 0)
	TagHotPixelAvailableHotPixelModes = tag(sectionHotPixel, 1)
)

// JPEG.
var (
	TagJpegOrientation             = tag(sectionJpeg, 3)
	TagJpegQuality                 = tag(sectionJpeg, 4)
	TagJpegThumbnailQuality        = tag(sectionJpeg, 5)
	TagJpegThumbnailSize           = tag(sectionJpeg, 6)
	TagJpegAvailableThumbnailSizes = tag(sectionJpeg, 7)
	TagJpegMaxSize                 = tag(sectionJpeg, 8)
)

// Lens.
var (
	TagLensAperture                 = tag(sectionLens, 0)
	TagLensFilterDensity            = tag(sectionLens, 1)
	TagLensFocalLength              = tag(sectionLens, 2)
	TagLensOpticalStabilizationMode = tag(sectionLens, 4)
	TagLensFacing                   = tag(sectionLens, 5)
)

// Lens info.
var (
	TagLensInfoAvailableApertures            = tag(sectionLensInfo, 0)
	TagLensInfoAvailableFilterDensities      = tag(sectionLensInfo, 1)
	TagLensInfoAvailableFocalLengths         = tag(sectionLensInfo, 2)
	TagLensInfoAvailableOpticalStabilization = tag(sectionLensInfo, 3)
	TagLensInfoFocusDistanceCalibration      = tag(sectionLensInfo, 7)
)

// Noise reduction.
var (
	TagNoiseReductionMode                         = tag(sectionNoiseReduction, 0)
	TagNoiseReductionAvailableNoiseReductionModes = tag(sectionNoiseReduction, 2)
)

// Request.
var (
	TagRequestMaxNumOutputStreams          = tag(sectionRequest, 6)
	TagRequestMaxNumInputStreams           = tag(sectionRequest, 8)
	TagRequestPipelineMaxDepth             = tag(sectionRequest, 10)
	TagRequestPartialResultCount           = tag(sectionRequest, 11)
	TagRequestAvailableCapabilities        = tag(sectionRequest, 12)
	TagRequestAvailableRequestKeys         = tag(sectionRequest, 13)
	TagRequestAvailableResultKeys          = tag(sectionRequest, 14)
	TagRequestAvailableCharacteristicsKeys = tag(sectionRequest, 15)
)

// Scaler.
var (
	TagScalerAvailableMaxDigitalZoom        = tag(sectionScaler, 4)
	TagScalerAvailableStreamConfigurations  = tag(sectionScaler, 10)
	TagScalerAvailableMinFrameDurations     = tag(sectionScaler, 11)
	TagScalerAvailableStallDurations        = tag(sectionScaler, 12)
	TagScalerCroppingType                   = tag(sectionScaler, 13)
)

// Sensor.
var (
	TagSensorOrientation = tag(sectionSensor, 14)
	TagSensorTimestamp   = tag(sectionSensor, 16)
)

// Sensor info.
var (
	TagSensorInfoActiveArraySize  = tag(sectionSensorInfo, 0)
	TagSensorInfoMaxFrameDuration = tag(sectionSensorInfo, 4)
	TagSensorInfoPhysicalSize     = tag(sectionSensorInfo, 5)
	TagSensorInfoPixelArraySize   = tag(sectionSensorInfo, 6)
	TagSensorInfoTimestampSource  = tag(sectionSensorInfo, 9)
)

// Lens shading.
var (
	TagShadingMode           = tag(sectionShading, 0)
	TagShadingAvailableModes = tag(sectionShading, 2)
)

// Statistics.
var (
	TagStatisticsFaceDetectMode  = tag(sectionStatistics, 0)
	TagStatisticsHotPixelMapMode = tag(sectionStatistics, 3)
	TagStatisticsLensShadingMapMode = tag(sectionStatistics, 16)
)

// Statistics info.
var (
	TagStatisticsInfoAvailableFaceDetectModes    = tag(sectionStatisticsInfo, 0)
	TagStatisticsInfoMaxFaceCount                = tag(sectionStatisticsInfo, 2)
	TagStatisticsInfoAvailableHotPixelMapModes   = tag(sectionStatisticsInfo, 6)
	TagStatisticsInfoAvailableLensShadingMapModes = tag(sectionStatisticsInfo, 7)
)

// Info and sync.
var (
	TagInfoSupportedHardwareLevel = tag(sectionInfo, 0)
	TagSyncMaxLatency             = tag(sectionSync, 1)
)

// Template types. Valid requests use ids in [TemplatePreview, TemplateCount).
const (
	TemplatePreview = 1 + iota
	TemplateStillCapture
	TemplateVideoRecord
	TemplateVideoSnapshot
	TemplateZeroShutterLag
	TemplateManual
	TemplateCount
)

// Enum values for the tags above.
const (
	AberrationModeOff         uint8 = 0
	AberrationModeFast        uint8 = 1
	AberrationModeHighQuality uint8 = 2

	AeAntibandingModeOff  uint8 = 0
	AeAntibandingMode50Hz uint8 = 1
	AeAntibandingMode60Hz uint8 = 2
	AeAntibandingModeAuto uint8 = 3

	AeModeOff uint8 = 0
	AeModeOn  uint8 = 1

	AfModeOff               uint8 = 0
	AfModeAuto              uint8 = 1
	AfModeMacro             uint8 = 2
	AfModeContinuousVideo   uint8 = 3
	AfModeContinuousPicture uint8 = 4

	AwbModeOff             uint8 = 0
	AwbModeAuto            uint8 = 1
	AwbModeIncandescent    uint8 = 2
	AwbModeFluorescent     uint8 = 3
	AwbModeWarmFluorescent uint8 = 4
	AwbModeDaylight        uint8 = 5
	AwbModeCloudyDaylight  uint8 = 6
	AwbModeTwilight        uint8 = 7
	AwbModeShade           uint8 = 8

	CaptureIntentCustom         uint8 = 0
	CaptureIntentPreview        uint8 = 1
	CaptureIntentStillCapture   uint8 = 2
	CaptureIntentVideoRecord    uint8 = 3
	CaptureIntentVideoSnapshot  uint8 = 4
	CaptureIntentZeroShutterLag uint8 = 5
	CaptureIntentManual         uint8 = 6

	EffectModeOff      uint8 = 0
	EffectModeMono     uint8 = 1
	EffectModeNegative uint8 = 2
	EffectModeSolarize uint8 = 3
	EffectModeSepia    uint8 = 4
	EffectModeAqua     uint8 = 8

	ControlModeOff  uint8 = 0
	ControlModeAuto uint8 = 1

	SceneModeDisabled    uint8 = 0
	SceneModeBeach       uint8 = 8
	SceneModeCandlelight uint8 = 15
	SceneModeFireworks   uint8 = 12
	SceneModeLandscape   uint8 = 4
	SceneModeNight       uint8 = 5
	SceneModeParty       uint8 = 14
	SceneModeSports      uint8 = 13
	SceneModeSunset      uint8 = 10

	VideoStabilizationModeOff uint8 = 0
	VideoStabilizationModeOn  uint8 = 1

	EdgeModeOff         uint8 = 0
	EdgeModeFast        uint8 = 1
	EdgeModeHighQuality uint8 = 2

	HotPixelModeOff         uint8 = 0
	HotPixelModeFast        uint8 = 1
	HotPixelModeHighQuality uint8 = 2

	HotPixelMapModeOff uint8 = 0

	NoiseReductionModeOff         uint8 = 0
	NoiseReductionModeFast        uint8 = 1
	NoiseReductionModeHighQuality uint8 = 2

	ShadingModeOff         uint8 = 0
	ShadingModeFast        uint8 = 1
	ShadingModeHighQuality uint8 = 2

	LensShadingMapModeOff uint8 = 0

	OpticalStabilizationModeOff uint8 = 0

	FaceDetectModeOff uint8 = 0

	LensFacingFront    uint8 = 0
	LensFacingBack     uint8 = 1
	LensFacingExternal uint8 = 2

	FocusDistanceCalibrationUncalibrated uint8 = 0

	TimestampSourceUnknown uint8 = 0

	HardwareLevelLimited uint8 = 0

	CapabilityBackwardCompatible uint8 = 0

	CroppingTypeCenterOnly uint8 = 0
	CroppingTypeFreeform   uint8 = 1

	StreamConfigurationOutput int32 = 0
	StreamConfigurationInput  int32 = 1

	SyncMaxLatencyUnknown int32 = -1
)
