//go:build linux

package devices

import (
	"context"
	"sync"

	"github.com/camhal/camhal/internal/logging"
	"github.com/camhal/camhal/pkg/linuxav/hotplug"
	"github.com/camhal/camhal/pkg/linuxav/v4l2"
)

type linuxDetector struct {
	mu          sync.Mutex
	cancel      context.CancelFunc
	lastDevices map[string]DeviceInfo // keyed by DeviceID
	logger      logging.Logger
}

func newDetector() Detector {
	return &linuxDetector{
		lastDevices: make(map[string]DeviceInfo),
		logger:      logging.GetLogger("devices"),
	}
}

// FindDevices returns all currently available V4L2 capture devices.
func (d *linuxDetector) FindDevices() ([]DeviceInfo, error) {
	found, err := v4l2.FindDevices()
	if err != nil {
		return nil, err
	}

	devices := make([]DeviceInfo, len(found))
	for i, dev := range found {
		devices[i] = DeviceInfo{
			DevicePath: dev.DevicePath,
			DeviceName: dev.DeviceName,
			DeviceID:   dev.DeviceID,
			Caps:       dev.Caps,
		}
	}
	return devices, nil
}

// GetDevicePathByID returns the device path for a stable device ID.
func (d *linuxDetector) GetDevicePathByID(deviceID string) (string, error) {
	return v4l2.GetDevicePathByID(deviceID)
}

// StartMonitoring watches kernel uevents for video4linux add/remove and
// diffs the device list on each event.
func (d *linuxDetector) StartMonitoring(ctx context.Context, broadcaster EventBroadcaster) error {
	monitor, err := hotplug.NewMonitor()
	if err != nil {
		return err
	}
	monitor.AddSubsystemFilter(hotplug.SubsystemVideo4Linux)

	ctx, cancel := context.WithCancel(ctx)
	d.mu.Lock()
	d.cancel = cancel
	d.mu.Unlock()

	// Seed the known-device map so the first event diff is accurate.
	if devices, err := d.FindDevices(); err == nil {
		d.mu.Lock()
		for _, device := range devices {
			d.lastDevices[device.DeviceID] = device
		}
		d.mu.Unlock()
	}

	uevents := make(chan hotplug.Event, 16)
	go func() {
		defer monitor.Close()
		if err := monitor.Run(ctx, uevents); err != nil && ctx.Err() == nil {
			d.logger.Error("Hotplug monitor stopped", "error", err)
		}
	}()
	go func() {
		for range uevents {
			d.refresh(broadcaster)
		}
	}()
	return nil
}

// refresh diffs the current device list against the last known set and
// broadcasts the changes.
func (d *linuxDetector) refresh(broadcaster EventBroadcaster) {
	devices, err := d.FindDevices()
	if err != nil {
		d.logger.Error("Failed to enumerate devices after hotplug event", "error", err)
		return
	}

	current := make(map[string]DeviceInfo, len(devices))
	for _, device := range devices {
		current[device.DeviceID] = device
	}

	d.mu.Lock()
	previous := d.lastDevices
	d.lastDevices = current
	d.mu.Unlock()

	for id, device := range current {
		if _, known := previous[id]; !known {
			d.logger.Info("Device added", "path", device.DevicePath, "id", id)
			broadcaster.DeviceAdded(device)
		}
	}
	for id, device := range previous {
		if _, still := current[id]; !still {
			d.logger.Info("Device removed", "path", device.DevicePath, "id", id)
			broadcaster.DeviceRemoved(device)
		}
	}
}

// StopMonitoring stops the device monitoring.
func (d *linuxDetector) StopMonitoring() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}
