package hal

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/camhal/camhal/internal/gralloc"
	"github.com/camhal/camhal/internal/metadata"
	"github.com/camhal/camhal/pkg/linuxav/v4l2"
)

// fakeDevice is a scripted CaptureDevice: it reports a YUV+JPEG capable
// 640x480/1280x720 camera running 5-30 FPS and completes every queued
// buffer immediately.
type fakeDevice struct {
	mu          sync.Mutex
	connections int
	streaming   bool
	format      *v4l2.StreamFormat
	sequence    uint32
	queued      chan uint32

	enqueueErr error
	sfmtCalls  int

	minDuration int64
	maxDuration int64
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		queued:      make(chan uint32, 16),
		minDuration: nsPerSecond / 30,
		maxDuration: nsPerSecond / 5,
	}
}

func (d *fakeDevice) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connections++
	return nil
}

func (d *fakeDevice) Disconnect() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connections--
}

func (d *fakeDevice) StreamOn() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.streaming = true
	return nil
}

func (d *fakeDevice) StreamOff() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.streaming = false
	return nil
}

func (d *fakeDevice) SetFormat(desired v4l2.StreamFormat) (uint32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.format != nil && d.format.PixelFormat == desired.PixelFormat &&
		d.format.Width == desired.Width && d.format.Height == desired.Height {
		return 1, nil
	}
	d.sfmtCalls++
	format := desired
	format.BytesPerLine = desired.Width * 2
	format.SizeImage = desired.Width * desired.Height * 2
	d.format = &format
	return 1, nil
}

func (d *fakeDevice) EnqueueBuffer(any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.enqueueErr != nil {
		return d.enqueueErr
	}
	d.sequence++
	d.queued <- d.sequence
	return nil
}

func (d *fakeDevice) DequeueBuffer() (*v4l2.DequeuedFrame, error) {
	sequence := <-d.queued
	return &v4l2.DequeuedFrame{Sequence: sequence, BytesUsed: 640 * 480 * 2}, nil
}

func (d *fakeDevice) QueryControl(uint32) (v4l2.ControlInfo, error) {
	// No menu controls; every enum component falls back to its default.
	return v4l2.ControlInfo{}, errors.New("control not found")
}

func (d *fakeDevice) QueryMenu(uint32, uint32) (string, error) {
	return "", errors.New("no menu items")
}

func (d *fakeDevice) GetControl(uint32) (int32, error)           { return 0, nil }
func (d *fakeDevice) SetControl(_ uint32, v int32) (int32, error) { return v, nil }

func (d *fakeDevice) GetFormats() ([]uint32, error) {
	return []uint32{v4l2.PixFmtYUV420, v4l2.PixFmtJPEG, v4l2.PixFmtH264}, nil
}

func (d *fakeDevice) GetFormatFrameSizes(uint32) ([]v4l2.FrameSize, error) {
	return []v4l2.FrameSize{{Width: 640, Height: 480}, {Width: 1280, Height: 720}}, nil
}

func (d *fakeDevice) GetFormatFrameDurationRange(uint32, v4l2.FrameSize) (int64, int64, error) {
	return d.minDuration, d.maxDuration, nil
}

// recordingCallbacks collects the framework callbacks for assertions.
type recordingCallbacks struct {
	mu       sync.Mutex
	shutters []ShutterMessage
	errors   []ErrorMessage
	results  []*CaptureResult
	resultCh chan *CaptureResult
}

func newRecordingCallbacks() *recordingCallbacks {
	return &recordingCallbacks{resultCh: make(chan *CaptureResult, 16)}
}

func (r *recordingCallbacks) ProcessCaptureResult(result *CaptureResult) {
	r.mu.Lock()
	r.results = append(r.results, result)
	r.mu.Unlock()
	r.resultCh <- result
}

func (r *recordingCallbacks) NotifyShutter(msg ShutterMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shutters = append(r.shutters, msg)
}

func (r *recordingCallbacks) NotifyError(msg ErrorMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, msg)
}

func (r *recordingCallbacks) awaitResult(t *testing.T) *CaptureResult {
	t.Helper()
	select {
	case result := <-r.resultCh:
		return result
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a capture result")
		return nil
	}
}

func newTestCamera(t *testing.T) (*Camera, *fakeDevice, *recordingCallbacks) {
	t.Helper()
	device := newFakeDevice()
	camera, err := NewCamera(0, device)
	if err != nil {
		t.Fatalf("NewCamera() = %v, want nil", err)
	}
	callbacks := newRecordingCallbacks()
	return camera, device, callbacks
}

func openAndConfigure(t *testing.T, camera *Camera, callbacks *recordingCallbacks) *FrameworkStream {
	t.Helper()
	if err := camera.Open(); err != nil {
		t.Fatalf("Open() = %v, want nil", err)
	}
	if err := camera.Initialize(callbacks); err != nil {
		t.Fatalf("Initialize() = %v, want nil", err)
	}
	stream := &FrameworkStream{
		Type: StreamOutput, Width: 640, Height: 480, Format: FormatYCbCr420Flexible,
	}
	config := &StreamConfig{Streams: []*FrameworkStream{stream}}
	if err := camera.ConfigureStreams(config); err != nil {
		t.Fatalf("ConfigureStreams() = %v, want nil", err)
	}
	return stream
}

func previewRequest(t *testing.T, camera *Camera, stream *FrameworkStream, frame uint32) *CaptureRequest {
	t.Helper()
	settings := camera.ConstructDefaultRequestSettings(metadata.TemplatePreview)
	if settings == nil {
		t.Fatal("ConstructDefaultRequestSettings(preview) = nil, want template")
	}
	return &CaptureRequest{
		FrameNumber: frame,
		Settings:    settings.Clone(),
		OutputBuffers: []StreamBuffer{{
			Stream:       stream,
			Buffer:       gralloc.NewHandle(int64(frame), 640, 480, 0, 640*480*2),
			AcquireFence: -1,
			ReleaseFence: -1,
		}},
	}
}

func TestOpenCloseStateMachine(t *testing.T) {
	camera, _, callbacks := newTestCamera(t)

	if err := camera.Close(); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Close() before open = %v, want ErrInvalidArgument", err)
	}
	if err := camera.Open(); err != nil {
		t.Fatalf("Open() = %v, want nil", err)
	}
	if err := camera.Open(); !errors.Is(err, ErrBusy) {
		t.Errorf("second Open() = %v, want ErrBusy", err)
	}
	if err := camera.Initialize(callbacks); err != nil {
		t.Fatalf("Initialize() = %v, want nil", err)
	}
	if err := camera.Close(); err != nil {
		t.Fatalf("Close() = %v, want nil", err)
	}
	if err := camera.Open(); err != nil {
		t.Errorf("reopen after close = %v, want nil", err)
	}
	if err := camera.Close(); err != nil {
		t.Errorf("final Close() = %v, want nil", err)
	}
}

func TestGetInfo(t *testing.T) {
	camera, _, _ := newTestCamera(t)

	info, err := camera.GetInfo()
	if err != nil {
		t.Fatalf("GetInfo() = %v, want nil", err)
	}
	if info.DeviceVersion != DeviceVersion {
		t.Errorf("DeviceVersion = %q, want %q", info.DeviceVersion, DeviceVersion)
	}
	if info.Facing != metadata.LensFacingExternal {
		t.Errorf("Facing = %d, want external", info.Facing)
	}
	if info.Orientation != 0 {
		t.Errorf("Orientation = %d, want 0", info.Orientation)
	}
	if info.ResourceCost != ResourceCost {
		t.Errorf("ResourceCost = %d, want %d", info.ResourceCost, ResourceCost)
	}
	if info.StaticCharacteristics == nil ||
		!info.StaticCharacteristics.Contains(metadata.TagRequestAvailableCharacteristicsKeys) {
		t.Error("static characteristics are missing the characteristics keys")
	}
}

func TestConstructDefaultRequestSettings(t *testing.T) {
	camera, _, _ := newTestCamera(t)

	for templateID := metadata.TemplatePreview; templateID <= metadata.TemplateVideoSnapshot; templateID++ {
		template := camera.ConstructDefaultRequestSettings(templateID)
		if template == nil {
			t.Errorf("template %d = nil, want metadata", templateID)
			continue
		}
		intent, err := metadata.SingleValue[uint8](template, metadata.TagControlCaptureIntent)
		if err != nil {
			t.Errorf("template %d missing capture intent: %v", templateID, err)
			continue
		}
		if intent != uint8(templateID) {
			t.Errorf("template %d capture intent = %d, want %d", templateID, intent, templateID)
		}
		if _, err := metadata.ArrayValue[int32](template, metadata.TagControlAeTargetFpsRange, 2); err != nil {
			t.Errorf("template %d missing target FPS range: %v", templateID, err)
		}
	}

	// Zero-shutter-lag and manual templates are omitted.
	for _, templateID := range []int{metadata.TemplateZeroShutterLag, metadata.TemplateManual} {
		if template := camera.ConstructDefaultRequestSettings(templateID); template != nil {
			t.Errorf("template %d = %v, want nil", templateID, template)
		}
	}
	for _, templateID := range []int{0, -1, metadata.TemplateCount} {
		if template := camera.ConstructDefaultRequestSettings(templateID); template != nil {
			t.Errorf("out-of-range template %d = %v, want nil", templateID, template)
		}
	}
}

// Template FPS selection: flat templates pick a flat range near (30, 30),
// the still-capture template picks the variable range near (5, 30).
func TestTemplateFpsSelection(t *testing.T) {
	camera, _, _ := newTestCamera(t)

	preview := camera.ConstructDefaultRequestSettings(metadata.TemplatePreview)
	fps, err := metadata.ArrayValue[int32](preview, metadata.TagControlAeTargetFpsRange, 2)
	if err != nil {
		t.Fatalf("preview FPS range missing: %v", err)
	}
	if fps[0] != fps[1] {
		t.Errorf("preview FPS range = %v, want a flat range", fps)
	}

	still := camera.ConstructDefaultRequestSettings(metadata.TemplateStillCapture)
	fps, err = metadata.ArrayValue[int32](still, metadata.TagControlAeTargetFpsRange, 2)
	if err != nil {
		t.Fatalf("still-capture FPS range missing: %v", err)
	}
	if fps[0] != 5 || fps[1] != 30 {
		t.Errorf("still-capture FPS range = %v, want [5 30]", fps)
	}
}

// Two streams differing in size are rejected and the previously active
// stream set is preserved.
func TestConfigureStreamsRejectsMismatchedSet(t *testing.T) {
	camera, _, callbacks := newTestCamera(t)
	openAndConfigure(t, camera, callbacks)

	mismatched := &StreamConfig{Streams: []*FrameworkStream{
		{Type: StreamOutput, Width: 640, Height: 480, Format: FormatYCbCr420Flexible},
		{Type: StreamOutput, Width: 1280, Height: 720, Format: FormatYCbCr420Flexible},
	}}
	err := camera.ConfigureStreams(mismatched)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("ConfigureStreams(mismatched) = %v, want ErrInvalidArgument", err)
	}

	var dump bytes.Buffer
	camera.Dump(&dump)
	if !strings.Contains(dump.String(), "Number of streams: 1") {
		t.Errorf("previous stream set not preserved:\n%s", dump.String())
	}

	if err := camera.Close(); err != nil {
		t.Errorf("Close() = %v, want nil", err)
	}
}

func TestConfigureStreamsRejectsInputStreams(t *testing.T) {
	camera, _, callbacks := newTestCamera(t)
	if err := camera.Open(); err != nil {
		t.Fatalf("Open() = %v, want nil", err)
	}
	if err := camera.Initialize(callbacks); err != nil {
		t.Fatalf("Initialize() = %v, want nil", err)
	}
	defer camera.Close()

	config := &StreamConfig{Streams: []*FrameworkStream{
		{Type: StreamInput, Width: 640, Height: 480, Format: FormatYCbCr420Flexible},
	}}
	if err := camera.ConfigureStreams(config); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("ConfigureStreams(input) = %v, want ErrInvalidArgument", err)
	}
}

// The capture happy path: one configured stream and one valid request
// yield exactly one shutter notify carrying the result's sensor
// timestamp and one result with the output buffer marked OK.
func TestCaptureHappyPath(t *testing.T) {
	camera, _, callbacks := newTestCamera(t)
	stream := openAndConfigure(t, camera, callbacks)

	request := previewRequest(t, camera, stream, 1)
	if err := camera.ProcessCaptureRequest(request); err != nil {
		t.Fatalf("ProcessCaptureRequest() = %v, want nil", err)
	}

	result := callbacks.awaitResult(t)
	if result.FrameNumber != 1 {
		t.Errorf("result frame = %d, want 1", result.FrameNumber)
	}
	if len(result.OutputBuffers) != 1 {
		t.Fatalf("result has %d buffers, want 1", len(result.OutputBuffers))
	}
	if result.OutputBuffers[0].Status != BufferStatusOK {
		t.Errorf("buffer status = %d, want OK", result.OutputBuffers[0].Status)
	}
	if result.OutputBuffers[0].ReleaseFence != -1 {
		t.Errorf("release fence = %d, want -1", result.OutputBuffers[0].ReleaseFence)
	}

	timestamp, err := metadata.SingleValue[int64](result.Result, metadata.TagSensorTimestamp)
	if err != nil {
		t.Fatalf("result metadata missing sensor timestamp: %v", err)
	}

	callbacks.mu.Lock()
	defer callbacks.mu.Unlock()
	if len(callbacks.shutters) != 1 {
		t.Fatalf("got %d shutter notifies, want exactly 1", len(callbacks.shutters))
	}
	if callbacks.shutters[0].Timestamp != timestamp {
		t.Errorf("shutter timestamp %d != result timestamp %d",
			callbacks.shutters[0].Timestamp, timestamp)
	}
	if len(callbacks.errors) != 0 {
		t.Errorf("unexpected error notifies: %v", callbacks.errors)
	}
	if len(callbacks.results) != 1 {
		t.Errorf("got %d results, want exactly 1", len(callbacks.results))
	}

	if err := camera.Close(); err != nil {
		t.Errorf("Close() = %v, want nil", err)
	}
}

// Frame numbers complete in FIFO order and shutter timestamps strictly
// increase across a request sequence.
func TestCaptureOrderingAndMonotonicity(t *testing.T) {
	camera, _, callbacks := newTestCamera(t)
	stream := openAndConfigure(t, camera, callbacks)

	const frames = 5
	for frame := uint32(1); frame <= frames; frame++ {
		if err := camera.ProcessCaptureRequest(previewRequest(t, camera, stream, frame)); err != nil {
			t.Fatalf("ProcessCaptureRequest(%d) = %v, want nil", frame, err)
		}
	}

	for frame := uint32(1); frame <= frames; frame++ {
		result := callbacks.awaitResult(t)
		if result.FrameNumber != frame {
			t.Errorf("result %d has frame %d, want FIFO order", frame, result.FrameNumber)
		}
	}

	callbacks.mu.Lock()
	defer callbacks.mu.Unlock()
	if len(callbacks.shutters) != frames {
		t.Fatalf("got %d shutters, want %d", len(callbacks.shutters), frames)
	}
	for i := 1; i < len(callbacks.shutters); i++ {
		previous, current := callbacks.shutters[i-1], callbacks.shutters[i]
		if current.FrameNumber <= previous.FrameNumber {
			t.Errorf("frame numbers not monotone: %d then %d",
				previous.FrameNumber, current.FrameNumber)
		}
		if current.Timestamp <= previous.Timestamp {
			t.Errorf("timestamps not strictly increasing: %d then %d",
				previous.Timestamp, current.Timestamp)
		}
	}

	if err := camera.Close(); err != nil {
		t.Errorf("Close() = %v, want nil", err)
	}
}

// A device failure after acceptance produces an ERROR_REQUEST notify and
// one result carrying the request's buffers with error status.
func TestCaptureDeviceFailureCompletesWithError(t *testing.T) {
	camera, device, callbacks := newTestCamera(t)
	stream := openAndConfigure(t, camera, callbacks)

	device.enqueueErr = errors.New("QBUF: broken pipe")
	request := previewRequest(t, camera, stream, 7)
	if err := camera.ProcessCaptureRequest(request); err != nil {
		t.Fatalf("ProcessCaptureRequest() = %v, want acceptance", err)
	}

	result := callbacks.awaitResult(t)
	if result.FrameNumber != 7 {
		t.Errorf("error result frame = %d, want 7", result.FrameNumber)
	}
	if result.OutputBuffers[0].Status != BufferStatusError {
		t.Errorf("buffer status = %d, want error", result.OutputBuffers[0].Status)
	}
	if result.OutputBuffers[0].ReleaseFence != -1 {
		t.Errorf("release fence = %d, want -1", result.OutputBuffers[0].ReleaseFence)
	}

	callbacks.mu.Lock()
	defer callbacks.mu.Unlock()
	if len(callbacks.errors) != 1 || callbacks.errors[0].Code != ErrorRequest {
		t.Fatalf("error notifies = %v, want one ERROR_REQUEST", callbacks.errors)
	}
	if len(callbacks.shutters) != 0 {
		t.Errorf("unexpected shutter notifies: %v", callbacks.shutters)
	}

	if err := camera.Close(); err != nil {
		t.Errorf("Close() = %v, want nil", err)
	}
}

func TestProcessCaptureRequestValidation(t *testing.T) {
	camera, _, callbacks := newTestCamera(t)
	stream := openAndConfigure(t, camera, callbacks)
	defer camera.Close()

	if err := camera.ProcessCaptureRequest(nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("nil request = %v, want ErrInvalidArgument", err)
	}

	// Empty settings without a previous valid-settings request.
	empty := &CaptureRequest{
		FrameNumber: 1,
		Settings:    metadata.New(),
		OutputBuffers: []StreamBuffer{{
			Stream: stream, Buffer: gralloc.NewHandle(1, 640, 480, 0, 640*480*2),
			AcquireFence: -1, ReleaseFence: -1,
		}},
	}
	if err := camera.ProcessCaptureRequest(empty); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("empty settings without previous = %v, want ErrInvalidArgument", err)
	}

	// No output buffers.
	noBuffers := previewRequest(t, camera, stream, 2)
	noBuffers.OutputBuffers = nil
	if err := camera.ProcessCaptureRequest(noBuffers); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("no output buffers = %v, want ErrInvalidArgument", err)
	}

	// Input buffers are forbidden.
	withInput := previewRequest(t, camera, stream, 3)
	withInput.InputBuffer = &StreamBuffer{Stream: stream}
	if err := camera.ProcessCaptureRequest(withInput); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("input buffer = %v, want ErrInvalidArgument", err)
	}

	// Settings rejected by the metadata registry.
	unsupported := previewRequest(t, camera, stream, 4)
	metadata.Update(unsupported.Settings, metadata.TagControlAeMode, uint8(250))
	if err := camera.ProcessCaptureRequest(unsupported); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("unsupported settings = %v, want ErrInvalidArgument", err)
	}

	// After one valid request, empty settings reuse the previous ones.
	if err := camera.ProcessCaptureRequest(previewRequest(t, camera, stream, 5)); err != nil {
		t.Fatalf("valid request = %v, want nil", err)
	}
	callbacks.awaitResult(t)
	reuse := &CaptureRequest{
		FrameNumber: 6,
		Settings:    metadata.New(),
		OutputBuffers: []StreamBuffer{{
			Stream: stream, Buffer: gralloc.NewHandle(6, 640, 480, 0, 640*480*2),
			AcquireFence: -1, ReleaseFence: -1,
		}},
	}
	if err := camera.ProcessCaptureRequest(reuse); err != nil {
		t.Errorf("reuse of previous settings = %v, want nil", err)
	}
	callbacks.awaitResult(t)
}

// Reconfiguring invalidates previously provided settings.
func TestConfigureStreamsResetsSettingsLatch(t *testing.T) {
	camera, _, callbacks := newTestCamera(t)
	stream := openAndConfigure(t, camera, callbacks)
	defer camera.Close()

	if err := camera.ProcessCaptureRequest(previewRequest(t, camera, stream, 1)); err != nil {
		t.Fatalf("valid request = %v, want nil", err)
	}
	callbacks.awaitResult(t)

	config := &StreamConfig{Streams: []*FrameworkStream{stream}}
	if err := camera.ConfigureStreams(config); err != nil {
		t.Fatalf("reconfigure = %v, want nil", err)
	}

	empty := &CaptureRequest{
		FrameNumber: 2,
		Settings:    metadata.New(),
		OutputBuffers: []StreamBuffer{{
			Stream: stream, Buffer: gralloc.NewHandle(2, 640, 480, 0, 640*480*2),
			AcquireFence: -1, ReleaseFence: -1,
		}},
	}
	if err := camera.ProcessCaptureRequest(empty); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("empty settings after reconfigure = %v, want ErrInvalidArgument", err)
	}
}

func TestFlushUnimplemented(t *testing.T) {
	camera, _, _ := newTestCamera(t)
	if err := camera.Flush(); !errors.Is(err, ErrNotSupported) {
		t.Errorf("Flush() = %v, want ErrNotSupported", err)
	}
}

func TestDumpFormat(t *testing.T) {
	camera, _, callbacks := newTestCamera(t)
	openAndConfigure(t, camera, callbacks)
	defer camera.Close()

	var out bytes.Buffer
	camera.Dump(&out)
	dump := out.String()
	for _, want := range []string{
		fmt.Sprintf("Camera ID: %d (Busy: 1)", camera.ID()),
		"Number of streams: 1",
		"Width: 640 Height: 480",
	} {
		if !strings.Contains(dump, want) {
			t.Errorf("dump missing %q:\n%s", want, dump)
		}
	}
}
