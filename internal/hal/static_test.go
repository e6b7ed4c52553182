package hal

import (
	"errors"
	"testing"

	"github.com/camhal/camhal/internal/metadata"
	"github.com/camhal/camhal/pkg/linuxav/v4l2"
)

// capabilityDevice overrides the format surface of fakeDevice.
type capabilityDevice struct {
	*fakeDevice
	formats []uint32
}

func (d *capabilityDevice) GetFormats() ([]uint32, error) {
	return d.formats, nil
}

func scanWith(t *testing.T, formats []uint32, minDuration, maxDuration int64) (*deviceCapabilities, error) {
	t.Helper()
	base := newFakeDevice()
	base.minDuration = minDuration
	base.maxDuration = maxDuration
	return scanDeviceCapabilities(&capabilityDevice{fakeDevice: base, formats: formats})
}

func TestScanRequiresYuvAndJpeg(t *testing.T) {
	tests := []struct {
		name    string
		formats []uint32
	}{
		{"no JPEG", []uint32{v4l2.PixFmtYUV420, v4l2.PixFmtYUYV}},
		{"no YUV420", []uint32{v4l2.PixFmtJPEG, v4l2.PixFmtYUYV}},
		{"nothing recognized", []uint32{v4l2.PixFmtH264}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := scanWith(t, tt.formats, nsPerSecond/30, nsPerSecond/5)
			if !errors.Is(err, ErrNotSupported) {
				t.Errorf("scan = %v, want ErrNotSupported", err)
			}
		})
	}
}

func TestScanRejectsFastMinimumFramerate(t *testing.T) {
	// Slowest YUV framerate of 20 FPS exceeds the required 15.
	_, err := scanWith(t, []uint32{v4l2.PixFmtYUV420, v4l2.PixFmtJPEG},
		nsPerSecond/30, nsPerSecond/20)
	if !errors.Is(err, ErrNotSupported) {
		t.Errorf("scan = %v, want ErrNotSupported", err)
	}
}

func TestScanDerivesFpsRanges(t *testing.T) {
	tests := []struct {
		name        string
		minDuration int64
		maxDuration int64
		want        [][2]int32
	}{
		{
			name:        "30 FPS max",
			minDuration: nsPerSecond / 30,
			maxDuration: nsPerSecond / 5,
			want:        [][2]int32{{5, 30}, {30, 30}},
		},
		{
			name:        "60 FPS max adds a flat 30",
			minDuration: nsPerSecond / 60,
			maxDuration: nsPerSecond / 10,
			want:        [][2]int32{{10, 60}, {60, 60}, {30, 30}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scan, err := scanWith(t, []uint32{v4l2.PixFmtYUV420, v4l2.PixFmtJPEG},
				tt.minDuration, tt.maxDuration)
			if err != nil {
				t.Fatalf("scan = %v, want nil", err)
			}
			if len(scan.fpsRanges) != len(tt.want) {
				t.Fatalf("fps ranges = %v, want %v", scan.fpsRanges, tt.want)
			}
			for i, want := range tt.want {
				if scan.fpsRanges[i] != want {
					t.Errorf("fps range %d = %v, want %v", i, scan.fpsRanges[i], want)
				}
			}
		})
	}
}

func TestScanStreamConfigurations(t *testing.T) {
	scan, err := scanWith(t, []uint32{v4l2.PixFmtYUV420, v4l2.PixFmtJPEG},
		nsPerSecond/30, nsPerSecond/5)
	if err != nil {
		t.Fatalf("scan = %v, want nil", err)
	}

	static := metadata.New()
	for _, component := range scan.components {
		if err := component.PopulateStatic(static); err != nil {
			t.Fatalf("PopulateStatic() = %v, want nil", err)
		}
	}

	configs, err := metadata.EntryData[int32](static, metadata.TagScalerAvailableStreamConfigurations)
	if err != nil {
		t.Fatalf("stream configurations missing: %v", err)
	}
	if len(configs)%4 != 0 {
		t.Fatalf("stream configuration entries not in quads: %d values", len(configs))
	}
	// 2 formats x 2 sizes.
	if len(configs)/4 != 4 {
		t.Errorf("got %d stream configurations, want 4", len(configs)/4)
	}
	for i := 0; i < len(configs); i += 4 {
		if configs[i+3] != metadata.StreamConfigurationOutput {
			t.Errorf("configuration %d is not an output configuration", i/4)
		}
	}

	stalls, err := metadata.EntryData[int64](static, metadata.TagScalerAvailableStallDurations)
	if err != nil {
		t.Fatalf("stall durations missing: %v", err)
	}
	for i := 0; i < len(stalls); i += 4 {
		format := PixelFormat(stalls[i])
		stall := stalls[i+3]
		if Category(format) == CategoryStalling && stall == 0 {
			t.Errorf("stalling format %#x reports zero stall duration", int64(format))
		}
		if Category(format) == CategoryNonStalling && stall != 0 {
			t.Errorf("non-stalling format %#x reports stall duration %d", int64(format), stall)
		}
	}

	if _, err := metadata.SingleValue[int64](static, metadata.TagSensorInfoMaxFrameDuration); err != nil {
		t.Errorf("max frame duration missing: %v", err)
	}
}

func TestNearestFpsRange(t *testing.T) {
	ranges := [][2]int32{{5, 30}, {30, 30}, {15, 15}}

	tests := []struct {
		name    string
		desired [2]int32
		flat    bool
		want    [2]int32
	}{
		{"flat 30", [2]int32{30, 30}, true, [2]int32{30, 30}},
		{"flat near 20 picks 15", [2]int32{20, 20}, true, [2]int32{15, 15}},
		{"variable 5-30", [2]int32{5, 30}, false, [2]int32{5, 30}},
		{"variable near 10-30", [2]int32{10, 30}, false, [2]int32{5, 30}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := nearestFpsRange(ranges, tt.desired, tt.flat)
			if !ok {
				t.Fatal("nearestFpsRange() found nothing")
			}
			if got != tt.want {
				t.Errorf("nearestFpsRange(%v, flat=%v) = %v, want %v",
					tt.desired, tt.flat, got, tt.want)
			}
		})
	}

	if _, ok := nearestFpsRange([][2]int32{{5, 30}}, [2]int32{30, 30}, true); ok {
		t.Error("flat selection over variable-only ranges should fail")
	}
}
