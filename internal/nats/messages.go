package nats

import "fmt"

// Subject prefixes for NATS topics.
const (
	SubjectCamerasPrefix = "camhal.cameras"
	SubjectDevicesPrefix = "camhal.devices"
)

// SubjectShutter returns the subject shutter notifications are published on.
func SubjectShutter(cameraID int) string {
	return fmt.Sprintf("%s.%d.shutter", SubjectCamerasPrefix, cameraID)
}

// SubjectResult returns the subject capture results are published on.
func SubjectResult(cameraID int) string {
	return fmt.Sprintf("%s.%d.result", SubjectCamerasPrefix, cameraID)
}

// SubjectError returns the subject request errors are published on.
func SubjectError(cameraID int) string {
	return fmt.Sprintf("%s.%d.error", SubjectCamerasPrefix, cameraID)
}

// SubjectDeviceAdded is the subject device arrivals are published on.
func SubjectDeviceAdded() string {
	return SubjectDevicesPrefix + ".added"
}

// SubjectDeviceRemoved is the subject device removals are published on.
func SubjectDeviceRemoved() string {
	return SubjectDevicesPrefix + ".removed"
}
