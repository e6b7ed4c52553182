// Package events provides the typed event bus the HAL publishes capture
// lifecycle and device hotplug events on. Subscribers (API, NATS bridge,
// metrics) stay decoupled from the capture pipeline.
package events

// Event type constants for kelindar/event.
const (
	TypeShutter uint32 = iota + 1
	TypeCaptureResult
	TypeRequestError
	TypeDeviceAdded
	TypeDeviceRemoved
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// ShutterEvent reports the start of exposure for a frame.
type ShutterEvent struct {
	CameraID    int    `json:"camera_id"`
	FrameNumber uint32 `json:"frame_number"`
	Timestamp   int64  `json:"timestamp" doc:"Shutter timestamp in nanoseconds"`
}

// Type returns the event type identifier for ShutterEvent.
func (e ShutterEvent) Type() uint32 { return TypeShutter }

// CaptureResultEvent reports one completed capture request.
type CaptureResultEvent struct {
	CameraID    int    `json:"camera_id"`
	FrameNumber uint32 `json:"frame_number"`
	BufferCount int    `json:"buffer_count"`
	Success     bool   `json:"success"`
}

// Type returns the event type identifier for CaptureResultEvent.
func (e CaptureResultEvent) Type() uint32 { return TypeCaptureResult }

// RequestErrorEvent reports a per-request failure notification.
type RequestErrorEvent struct {
	CameraID    int    `json:"camera_id"`
	FrameNumber uint32 `json:"frame_number"`
	ErrorCode   int32  `json:"error_code"`
}

// Type returns the event type identifier for RequestErrorEvent.
func (e RequestErrorEvent) Type() uint32 { return TypeRequestError }

// DeviceAddedEvent reports a hotplugged video device.
type DeviceAddedEvent struct {
	DevicePath string `json:"device_path" example:"/dev/video0"`
	DeviceName string `json:"device_name"`
	DeviceID   string `json:"device_id"`
}

// Type returns the event type identifier for DeviceAddedEvent.
func (e DeviceAddedEvent) Type() uint32 { return TypeDeviceAdded }

// DeviceRemovedEvent reports an unplugged video device.
type DeviceRemovedEvent struct {
	DevicePath string `json:"device_path" example:"/dev/video0"`
	DeviceID   string `json:"device_id"`
}

// Type returns the event type identifier for DeviceRemovedEvent.
func (e DeviceRemovedEvent) Type() uint32 { return TypeDeviceRemoved }
