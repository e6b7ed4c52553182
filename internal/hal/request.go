package hal

import (
	"github.com/camhal/camhal/internal/gralloc"
	"github.com/camhal/camhal/internal/metadata"
)

// StreamType is the direction of a framework stream.
type StreamType int32

// Stream types.
const (
	StreamOutput StreamType = iota
	StreamInput
	StreamBidirectional
)

// Rotation of a stream's output. Only Rotation0 is accepted.
type Rotation int32

// Rotations.
const (
	Rotation0 Rotation = iota
	Rotation90
	Rotation180
	Rotation270
)

// Gralloc usage flags set on configured streams.
const (
	UsageSWReadOften  = 0x03
	UsageSWWriteOften = 0x30
)

// BufferStatus of a stream buffer in a result.
type BufferStatus int32

// Buffer statuses.
const (
	BufferStatusOK BufferStatus = iota
	BufferStatusError
)

// Stream configuration operation modes.
const (
	OperationModeNormal uint32 = 0
)

// FrameworkStream is the framework's view of one configured surface.
// The HAL adjusts Usage, MaxBuffers, and DataSpace during stream
// configuration; priv carries the HAL-side Stream across reconfigures.
type FrameworkStream struct {
	Type       StreamType
	Width      uint32
	Height     uint32
	Format     PixelFormat
	Usage      uint32
	MaxBuffers uint32
	Rotation   Rotation
	DataSpace  int32

	priv *Stream
}

// StreamConfig is the set of streams requested by configure_streams.
type StreamConfig struct {
	Streams       []*FrameworkStream
	OperationMode uint32
}

// StreamBuffer is one graphics buffer attached to a capture request.
// AcquireFence signals when the HAL may begin writing; it is cleared to
// -1 once waited upon. ReleaseFence is always cleared to -1 by this HAL.
type StreamBuffer struct {
	Stream       *FrameworkStream
	Buffer       *gralloc.Handle
	Status       BufferStatus
	AcquireFence int
	ReleaseFence int
}

// CaptureRequest is one unit of work: settings plus buffers to fill.
// Settings may be empty, meaning "reuse the last non-empty settings".
type CaptureRequest struct {
	FrameNumber   uint32
	Settings      *metadata.Metadata
	InputBuffer   *StreamBuffer
	OutputBuffers []StreamBuffer

	failed bool
}

// clone makes the persistent copy of a request that outlives the
// process_capture_request call.
func (r *CaptureRequest) clone() *CaptureRequest {
	out := &CaptureRequest{
		FrameNumber:   r.FrameNumber,
		Settings:      r.Settings.Clone(),
		OutputBuffers: append([]StreamBuffer(nil), r.OutputBuffers...),
	}
	if r.InputBuffer != nil {
		input := *r.InputBuffer
		out.InputBuffer = &input
	}
	return out
}

// CaptureResult delivers one completed request back to the framework.
type CaptureResult struct {
	FrameNumber   uint32
	Result        *metadata.Metadata
	OutputBuffers []StreamBuffer
	InputBuffer   *StreamBuffer
	PartialResult int
}

// Notification error codes.
type ErrorCode int32

// Error codes reported through Notify.
const (
	ErrorDevice ErrorCode = 1 + iota
	ErrorRequest
	ErrorResult
	ErrorBuffer
)

// ShutterMessage reports the start of exposure for a frame.
type ShutterMessage struct {
	FrameNumber uint32
	Timestamp   int64
}

// ErrorMessage reports a per-request or device-level failure.
type ErrorMessage struct {
	FrameNumber uint32
	Code        ErrorCode
}

// CallbackOps is the framework's callback channel for results and
// notifications. Implementations must tolerate calls from the camera's
// worker goroutines.
type CallbackOps interface {
	ProcessCaptureResult(result *CaptureResult)
	NotifyShutter(msg ShutterMessage)
	NotifyError(msg ErrorMessage)
}
