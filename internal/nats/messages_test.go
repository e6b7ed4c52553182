package nats

import "testing"

func TestSubjects(t *testing.T) {
	tests := []struct {
		got  string
		want string
	}{
		{SubjectShutter(0), "camhal.cameras.0.shutter"},
		{SubjectResult(2), "camhal.cameras.2.result"},
		{SubjectError(5), "camhal.cameras.5.error"},
		{SubjectDeviceAdded(), "camhal.devices.added"},
		{SubjectDeviceRemoved(), "camhal.devices.removed"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("subject = %q, want %q", tt.got, tt.want)
		}
	}
}
