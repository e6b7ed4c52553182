//go:build linux && integration

package hotplug

import (
	"context"
	"errors"
	"testing"
	"time"
)

// TestCameraHotplugIntegration needs a real uevent: run with
// `go test -tags=integration -run TestCameraHotplugIntegration -timeout 60s`
// and plug or unplug a USB camera while it waits.
func TestCameraHotplugIntegration(t *testing.T) {
	monitor, err := NewMonitor()
	if err != nil {
		t.Fatalf("NewMonitor() = %v, want nil", err)
	}
	defer monitor.Close()

	monitor.AddSubsystemFilter(SubsystemVideo4Linux)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	uevents := make(chan Event, 4)
	go func() {
		if runErr := monitor.Run(ctx, uevents); runErr != nil && !errors.Is(runErr, context.DeadlineExceeded) {
			t.Logf("monitor stopped: %v", runErr)
		}
	}()

	select {
	case event, ok := <-uevents:
		if !ok {
			t.Fatal("event channel closed without a camera event")
		}
		if event.Subsystem != SubsystemVideo4Linux {
			t.Errorf("subsystem = %q, want %q (filter leak)", event.Subsystem, SubsystemVideo4Linux)
		}
		t.Logf("camera %s: %s (%s)", event.Action, event.DevName, event.DevPath)
	case <-ctx.Done():
		t.Skip("no camera was plugged or unplugged within the timeout")
	}
}
