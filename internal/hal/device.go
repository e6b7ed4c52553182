package hal

import (
	"github.com/camhal/camhal/internal/metadata"
	"github.com/camhal/camhal/pkg/linuxav/v4l2"
)

// CaptureDevice is the V4L2 device surface the camera drives. The
// concrete implementation is *v4l2.Wrapper; tests substitute fakes.
type CaptureDevice interface {
	Connect() error
	Disconnect()
	StreamOn() error
	StreamOff() error
	SetFormat(desired v4l2.StreamFormat) (uint32, error)
	EnqueueBuffer(handle any) error
	DequeueBuffer() (*v4l2.DequeuedFrame, error)
	QueryControl(controlID uint32) (v4l2.ControlInfo, error)
	QueryMenu(controlID, index uint32) (string, error)
	GetControl(controlID uint32) (int32, error)
	SetControl(controlID uint32, desired int32) (int32, error)
	GetFormats() ([]uint32, error)
	GetFormatFrameSizes(pixelFormat uint32) ([]v4l2.FrameSize, error)
	GetFormatFrameDurationRange(pixelFormat uint32, size v4l2.FrameSize) (int64, int64, error)
}

// controlDevice adapts a CaptureDevice to the narrower backend the
// metadata enum controls query.
type controlDevice struct {
	device CaptureDevice
}

func (d controlDevice) QueryControl(controlID uint32) (metadata.ControlQuery, error) {
	info, err := d.device.QueryControl(controlID)
	if err != nil {
		return metadata.ControlQuery{}, err
	}
	return metadata.ControlQuery{
		Type:    info.Type,
		Minimum: info.Minimum,
		Maximum: info.Maximum,
		Step:    info.Step,
	}, nil
}

func (d controlDevice) QueryMenu(controlID, index uint32) (string, error) {
	return d.device.QueryMenu(controlID, index)
}

func (d controlDevice) GetControl(controlID uint32) (int32, error) {
	return d.device.GetControl(controlID)
}

func (d controlDevice) SetControl(controlID uint32, desired int32) (int32, error) {
	return d.device.SetControl(controlID, desired)
}
