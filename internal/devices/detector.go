// Package devices enumerates V4L2 video capture devices and watches for
// hotplug so the camera manager can expose cameras as they come and go.
package devices

import "context"

// DeviceInfo represents information about a V4L2 capture device.
type DeviceInfo struct {
	DevicePath string
	DeviceName string
	DeviceID   string
	Caps       uint32
}

// EventBroadcaster receives device hotplug notifications.
type EventBroadcaster interface {
	DeviceAdded(device DeviceInfo)
	DeviceRemoved(device DeviceInfo)
}

// Detector provides platform-specific device detection.
type Detector interface {
	// FindDevices returns all currently available V4L2 capture devices.
	FindDevices() ([]DeviceInfo, error)

	// GetDevicePathByID returns the device path for a stable device ID.
	GetDevicePathByID(deviceID string) (string, error)

	// StartMonitoring watches for device changes until the context is
	// cancelled.
	StartMonitoring(ctx context.Context, broadcaster EventBroadcaster) error

	// StopMonitoring stops the device monitoring.
	StopMonitoring()
}

// NewDetector returns the detector for this platform.
func NewDetector() Detector {
	return newDetector()
}
