package hal

import (
	"fmt"

	"github.com/camhal/camhal/internal/metadata"
)

const nsPerSecond = int64(1000000000)

// deviceCapabilities is the result of scanning a device's formats,
// frame sizes, and frame durations: the stream-related static metadata
// components plus the derived FPS ranges the template builder selects
// from.
type deviceCapabilities struct {
	components []metadata.PartialMetadata
	fpsRanges  [][2]int32
}

type formatSize struct {
	format PixelFormat
	width  uint32
	height uint32
}

// scanDeviceCapabilities enumerates the device's pixel formats, maps
// them into the HAL taxonomy (discarding unrecognized ones), and
// accumulates per-(format, size) frame duration ranges. Devices missing
// flexible YCbCr 4:2:0 or JPEG output are rejected, as is any device
// that cannot stream YUV at 15 FPS or slower.
func scanDeviceCapabilities(device CaptureDevice) (*deviceCapabilities, error) {
	fourccs, err := device.GetFormats()
	if err != nil {
		return nil, newError(ErrCodeNoDevice, "failed to enumerate device formats", err)
	}

	// Map device formats into the HAL taxonomy. Several fourccs may fold
	// into one HAL format; the first match wins.
	fourccByFormat := make(map[PixelFormat]uint32)
	for _, fourcc := range fourccs {
		format, known := HALPixelFormat(fourcc)
		if !known {
			continue
		}
		if _, present := fourccByFormat[format]; !present {
			fourccByFormat[format] = fourcc
		}
	}

	if _, ok := fourccByFormat[FormatYCbCr420Flexible]; !ok {
		return nil, newError(ErrCodeNotSupported,
			"device does not support flexible YCbCr 4:2:0, camera rejected", nil)
	}
	if _, ok := fourccByFormat[FormatBlob]; !ok {
		return nil, newError(ErrCodeNotSupported,
			"device does not support JPEG output, camera rejected", nil)
	}

	var (
		configEntries      []int32
		minDurationEntries []int64
		stallEntries       []int64
		maxFrameDuration   int64
		yuvMinDuration     int64
		yuvMaxDuration     int64
		maxWidth           uint32
		maxHeight          uint32
		seen               = make(map[formatSize]struct{})
	)

	for format, fourcc := range fourccByFormat {
		sizes, err := device.GetFormatFrameSizes(fourcc)
		if err != nil {
			return nil, newError(ErrCodeNoDevice,
				fmt.Sprintf("failed to enumerate frame sizes for format %#x", fourcc), err)
		}
		for _, size := range sizes {
			key := formatSize{format, size.Width, size.Height}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			minDuration, maxDuration, err := device.GetFormatFrameDurationRange(fourcc, size)
			if err != nil {
				return nil, newError(ErrCodeNoDevice,
					fmt.Sprintf("failed to get frame durations for format %#x at %dx%d",
						fourcc, size.Width, size.Height), err)
			}

			configEntries = append(configEntries,
				int32(format), int32(size.Width), int32(size.Height),
				metadata.StreamConfigurationOutput)
			minDurationEntries = append(minDurationEntries,
				int64(format), int64(size.Width), int64(size.Height), minDuration)

			// Only stalling formats (JPEG) report a stall duration.
			stall := int64(0)
			if Category(format) == CategoryStalling {
				stall = minDuration
			}
			stallEntries = append(stallEntries,
				int64(format), int64(size.Width), int64(size.Height), stall)

			if maxDuration > maxFrameDuration {
				maxFrameDuration = maxDuration
			}
			if format == FormatYCbCr420Flexible {
				if yuvMinDuration == 0 || minDuration < yuvMinDuration {
					yuvMinDuration = minDuration
				}
				if maxDuration > yuvMaxDuration {
					yuvMaxDuration = maxDuration
				}
			}
			if size.Width > maxWidth {
				maxWidth = size.Width
			}
			if size.Height > maxHeight {
				maxHeight = size.Height
			}
		}
	}

	if yuvMinDuration == 0 || yuvMaxDuration == 0 {
		return nil, newError(ErrCodeNotSupported,
			"device reports no frame durations for YUV output", nil)
	}

	maxYuvFps := int32(nsPerSecond / yuvMinDuration)
	minYuvFps := int32(nsPerSecond / yuvMaxDuration)
	if minYuvFps > 15 {
		return nil, newError(ErrCodeNotSupported,
			fmt.Sprintf("device's slowest YUV framerate %d exceeds 15 FPS, camera rejected", minYuvFps), nil)
	}

	fpsRanges := [][2]int32{{minYuvFps, maxYuvFps}, {maxYuvFps, maxYuvFps}}
	if maxYuvFps > 30 {
		fpsRanges = append(fpsRanges, [2]int32{30, 30})
	}
	var fpsEntries []int32
	for _, r := range fpsRanges {
		fpsEntries = append(fpsEntries, r[0], r[1])
	}

	components := []metadata.PartialMetadata{
		metadata.NewFixedProperty(metadata.TagScalerAvailableStreamConfigurations, configEntries...),
		metadata.NewFixedProperty(metadata.TagScalerAvailableMinFrameDurations, minDurationEntries...),
		metadata.NewFixedProperty(metadata.TagScalerAvailableStallDurations, stallEntries...),
		metadata.NewFixedProperty(metadata.TagSensorInfoMaxFrameDuration, maxFrameDuration),
		metadata.NewFixedProperty(metadata.TagControlAeAvailableTargetFpsRanges, fpsEntries...),
		metadata.NewFixedProperty(metadata.TagSensorInfoActiveArraySize,
			0, 0, int32(maxWidth), int32(maxHeight)),
		metadata.NewFixedProperty(metadata.TagSensorInfoPixelArraySize,
			int32(maxWidth), int32(maxHeight)),
		metadata.NewFixedProperty(metadata.TagJpegMaxSize, int32(maxWidth*maxHeight*3)),
		metadata.NewFixedProperty(metadata.TagScalerAvailableMaxDigitalZoom, float32(1.0)),
	}

	return &deviceCapabilities{components: components, fpsRanges: fpsRanges}, nil
}

// nearestFpsRange picks the available range whose endpoints minimize L1
// distance to the desired pair. Flat selection only considers ranges
// with equal endpoints.
func nearestFpsRange(ranges [][2]int32, desired [2]int32, flat bool) ([2]int32, bool) {
	var best [2]int32
	bestDistance := int32(-1)
	for _, r := range ranges {
		if flat && r[0] != r[1] {
			continue
		}
		distance := abs32(r[0]-desired[0]) + abs32(r[1]-desired[1])
		if bestDistance < 0 || distance < bestDistance {
			best = r
			bestDistance = distance
		}
	}
	return best, bestDistance >= 0
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
