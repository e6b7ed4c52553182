//go:build !linux

package devices

import (
	"context"
	"errors"
)

var errUnsupportedPlatform = errors.New("V4L2 device detection requires Linux")

type stubDetector struct{}

func newDetector() Detector {
	return stubDetector{}
}

func (stubDetector) FindDevices() ([]DeviceInfo, error) {
	return nil, errUnsupportedPlatform
}

func (stubDetector) GetDevicePathByID(string) (string, error) {
	return "", errUnsupportedPlatform
}

func (stubDetector) StartMonitoring(context.Context, EventBroadcaster) error {
	return errUnsupportedPlatform
}

func (stubDetector) StopMonitoring() {}
