package hal

import (
	"github.com/camhal/camhal/pkg/linuxav/v4l2"
)

// PixelFormat is the HAL-side pixel format taxonomy.
type PixelFormat int32

// HAL pixel formats.
const (
	FormatRGBA8888              PixelFormat = 1
	FormatYCrCb420SP            PixelFormat = 0x11
	FormatYCbCr422I             PixelFormat = 0x14
	FormatBlob                  PixelFormat = 0x21
	FormatImplementationDefined PixelFormat = 0x22
	FormatYCbCr420Flexible      PixelFormat = 0x23
	FormatYV12                  PixelFormat = 0x32315659
)

// FormatCategory buckets formats by their stall behavior.
type FormatCategory int

// Format categories.
const (
	CategoryUnknown FormatCategory = iota
	CategoryRaw
	CategoryStalling
	CategoryNonStalling
)

// DataspaceJFIF is the only dataspace this HAL produces; requested
// dataspaces are overwritten.
const DataspaceJFIF = 0x8C20000

// halToV4L2 maps HAL pixel formats to the V4L2 fourcc the device is
// driven with.
var halToV4L2 = map[PixelFormat]uint32{
	FormatYCbCr420Flexible:      v4l2.PixFmtYUV420,
	FormatImplementationDefined: v4l2.PixFmtYUV420,
	FormatBlob:                  v4l2.PixFmtJPEG,
	FormatYCbCr422I:             v4l2.PixFmtYUYV,
	FormatYCrCb420SP:            v4l2.PixFmtNV21,
	FormatYV12:                  v4l2.PixFmtYVU420,
}

// v4l2ToHAL maps device fourccs to HAL pixel formats. Unrecognized
// device formats are discarded during capability scanning.
var v4l2ToHAL = map[uint32]PixelFormat{
	v4l2.PixFmtYUV420: FormatYCbCr420Flexible,
	v4l2.PixFmtJPEG:   FormatBlob,
	v4l2.PixFmtMJPEG:  FormatBlob,
	v4l2.PixFmtYUYV:   FormatYCbCr422I,
	v4l2.PixFmtNV21:   FormatYCrCb420SP,
	v4l2.PixFmtYVU420: FormatYV12,
}

// V4L2PixelFormat returns the fourcc a HAL format is captured with.
func V4L2PixelFormat(format PixelFormat) (uint32, bool) {
	fourcc, ok := halToV4L2[format]
	return fourcc, ok
}

// HALPixelFormat returns the HAL format for a device fourcc.
func HALPixelFormat(fourcc uint32) (PixelFormat, bool) {
	format, ok := v4l2ToHAL[fourcc]
	return format, ok
}

// Category returns the stall category of a HAL format.
func Category(format PixelFormat) FormatCategory {
	switch format {
	case FormatBlob:
		return CategoryStalling
	case FormatYCbCr420Flexible, FormatYCbCr422I, FormatYCrCb420SP,
		FormatYV12, FormatImplementationDefined, FormatRGBA8888:
		return CategoryNonStalling
	default:
		return CategoryUnknown
	}
}
