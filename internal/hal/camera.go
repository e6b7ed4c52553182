// Package hal implements the camera HAL core: the framework-facing
// device operations, the per-camera capture pipeline, and the static
// characteristics / template builders, all over a V4L2 capture device.
package hal

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/camhal/camhal/internal/metadata"
	"github.com/camhal/camhal/pkg/linuxav/v4l2"
)

// DeviceVersion is the camera device API version this HAL implements.
const DeviceVersion = "3.4"

// ResourceCost reported through the info table.
const ResourceCost = 100

// Info is the per-camera information surface.
type Info struct {
	ID                    int
	DeviceVersion         string
	Facing                uint8
	Orientation           int32
	ResourceCost          int
	StaticCharacteristics *metadata.Metadata
}

// Camera is one camera device: a state machine over
// CLOSED → OPENED → CONFIGURED → STREAMING driven by the framework's
// device operations, backed by a V4L2 device and a metadata registry.
type Camera struct {
	id     int
	device CaptureDevice
	meta   *metadata.Registry
	caps   *capabilities
	logger *slog.Logger

	// deviceLock serializes the framework-facing operations.
	deviceLock  sync.Mutex
	busy        bool
	settingsSet bool // a previous request with valid settings was provided
	callbacks   CallbackOps
	streams     []*Stream
	pipeline    *pipeline

	// staticLock serializes lazy initialization of the static
	// characteristics and templates.
	staticLock       sync.Mutex
	staticInfo       *metadata.Metadata
	templates        map[int]*metadata.Metadata
	maxInputStreams  int32
	maxOutputStreams [3]int32
	staticReady      bool
}

// NewCamera builds a camera over a V4L2 capture device. The device is
// probed during construction; unsupportable devices are rejected here.
func NewCamera(id int, device CaptureDevice) (*Camera, error) {
	registry, caps, err := buildCameraMetadata(device)
	if err != nil {
		return nil, err
	}
	return &Camera{
		id:        id,
		device:    device,
		meta:      registry,
		caps:      caps,
		logger:    slog.With("module", "hal", "camera", id),
		templates: make(map[int]*metadata.Metadata),
	}, nil
}

// ID returns the camera's identifier.
func (c *Camera) ID() int { return c.id }

// Busy reports whether the camera is currently open.
func (c *Camera) Busy() bool {
	c.deviceLock.Lock()
	defer c.deviceLock.Unlock()
	return c.busy
}

// Open transitions CLOSED → OPENED. A camera that is already open
// reports Busy.
func (c *Camera) Open() error {
	c.logger.Info("Opening camera device")
	c.deviceLock.Lock()
	defer c.deviceLock.Unlock()

	if c.busy {
		return newError(ErrCodeBusy, "camera device is already open", nil)
	}
	if err := c.device.Connect(); err != nil {
		return newError(ErrCodeNoDevice, "failed to connect to device", err)
	}
	c.busy = true
	return nil
}

// Close releases the V4L2 device from any state. Closing a camera that
// is not open is an invalid argument.
func (c *Camera) Close() error {
	c.logger.Info("Closing camera device")
	c.deviceLock.Lock()
	defer c.deviceLock.Unlock()

	if !c.busy {
		return newError(ErrCodeInvalidArgument, "camera device is not open", nil)
	}
	c.teardownPipelineLocked()
	c.device.Disconnect()
	c.busy = false
	c.callbacks = nil
	return nil
}

// Initialize stores the framework callback table and performs per-device
// initialization. Idempotent per open session.
func (c *Camera) Initialize(callbacks CallbackOps) error {
	c.deviceLock.Lock()
	defer c.deviceLock.Unlock()

	if !c.busy {
		return newError(ErrCodeInvalidArgument, "camera device is not open", nil)
	}
	c.callbacks = callbacks

	// Pre-populate the request templates so the first
	// construct_default_request_settings call is cheap. Unsupported
	// template ids are simply absent.
	for id := metadata.TemplatePreview; id < metadata.TemplateCount; id++ {
		c.templateFor(id)
	}
	return nil
}

// GetInfo assembles the camera's info table, building the static
// characteristics on first use.
func (c *Camera) GetInfo() (*Info, error) {
	static, err := c.ensureStaticInfo()
	if err != nil {
		return nil, err
	}

	facing, err := metadata.SingleValue[uint8](static, metadata.TagLensFacing)
	if err != nil {
		return nil, newError(ErrCodeNoDevice, "static metadata is missing the lens facing", err)
	}
	orientation, err := metadata.SingleValue[int32](static, metadata.TagSensorOrientation)
	if err != nil {
		return nil, newError(ErrCodeNoDevice, "static metadata is missing the orientation", err)
	}

	return &Info{
		ID:                    c.id,
		DeviceVersion:         DeviceVersion,
		Facing:                facing,
		Orientation:           orientation,
		ResourceCost:          ResourceCost,
		StaticCharacteristics: static,
	}, nil
}

func (c *Camera) ensureStaticInfo() (*metadata.Metadata, error) {
	c.staticLock.Lock()
	defer c.staticLock.Unlock()

	if c.staticReady {
		return c.staticInfo, nil
	}

	static := metadata.New()
	if err := c.meta.FillStatic(static); err != nil {
		return nil, newError(ErrCodeNoDevice, "failed to fill static metadata", err)
	}

	// Extract the stream count limits used to verify stream configs.
	maxInput, err := metadata.SingleValue[int32](static, metadata.TagRequestMaxNumInputStreams)
	if err != nil {
		return nil, newError(ErrCodeNoDevice, "static metadata is missing max input streams", err)
	}
	maxOutput, err := metadata.ArrayValue[int32](static, metadata.TagRequestMaxNumOutputStreams, 3)
	if err != nil {
		return nil, newError(ErrCodeNoDevice, "static metadata is missing max output streams", err)
	}

	c.staticInfo = static
	c.maxInputStreams = maxInput
	copy(c.maxOutputStreams[:], maxOutput)
	c.staticReady = true
	return static, nil
}

// ConstructDefaultRequestSettings returns the default request metadata
// for a template id, or nil for unsupported ids.
func (c *Camera) ConstructDefaultRequestSettings(templateID int) *metadata.Metadata {
	if templateID <= 0 || templateID >= metadata.TemplateCount {
		c.logger.Error("Invalid template request type", "template", templateID)
		return nil
	}
	return c.templateFor(templateID)
}

func (c *Camera) templateFor(templateID int) *metadata.Metadata {
	c.staticLock.Lock()
	defer c.staticLock.Unlock()

	if template, built := c.templates[templateID]; built {
		return template
	}
	template, err := c.buildTemplate(templateID)
	if err != nil {
		c.logger.Debug("No template for type", "template", templateID, "error", err)
		return nil
	}
	c.templates[templateID] = template
	return template
}

// ConfigureStreams replaces the active stream configuration. Prior
// settings are invalidated; on failure the previously active stream set
// is preserved.
func (c *Camera) ConfigureStreams(config *StreamConfig) error {
	c.deviceLock.Lock()
	defer c.deviceLock.Unlock()

	// Must provide new settings after a stream configuration change.
	c.settingsSet = false

	if !c.busy {
		return newError(ErrCodeInvalidArgument, "camera device is not open", nil)
	}
	if c.callbacks == nil {
		return newError(ErrCodeInvalidArgument, "camera device is not initialized", nil)
	}
	if config == nil || len(config.Streams) == 0 {
		return newError(ErrCodeInvalidArgument, "empty stream configuration", nil)
	}

	if _, err := c.ensureStaticInfo(); err != nil {
		return err
	}

	// Mark all current streams unused for now; reused ones are marked
	// again below.
	for _, stream := range c.streams {
		stream.Reuse = false
	}

	newStreams := make([]*Stream, len(config.Streams))
	for i, frameworkStream := range config.Streams {
		if frameworkStream.MaxBuffers > 0 && frameworkStream.priv != nil {
			reused := frameworkStream.priv
			if !reused.isValidReuseStream(c.id, frameworkStream) {
				c.destroyStreams(newStreams[:i])
				return newError(ErrCodeInvalidArgument,
					fmt.Sprintf("mismatched parameter in reused stream %d", i), nil)
			}
			reused.Reuse = true
			newStreams[i] = reused
		} else {
			newStreams[i] = newStream(c.id, frameworkStream)
			frameworkStream.priv = newStreams[i]
		}
	}

	if err := c.validateStreamSet(newStreams, config.OperationMode); err != nil {
		c.destroyStreams(newStreams)
		return err
	}

	// Reconfiguring tears down any in-flight streaming state before the
	// device format changes.
	c.teardownPipelineLocked()

	if err := c.setupStreams(newStreams); err != nil {
		c.destroyStreams(newStreams)
		return err
	}

	// Destroy replaced streams and install the new set.
	c.destroyStreams(c.streams)
	c.streams = newStreams
	for _, stream := range c.streams {
		stream.Reuse = false
	}

	c.pipeline = newPipeline(c.device, c.meta, c.callbacks, c.logger)
	c.pipeline.start()
	return nil
}

// destroyStreams drops streams that were not marked for reuse and clears
// their framework back-pointers.
func (c *Camera) destroyStreams(streams []*Stream) {
	for _, stream := range streams {
		if stream != nil && !stream.Reuse {
			stream.framework.priv = nil
		}
	}
}

// validateStreamSet applies both the generic stream-count rules and this
// HAL's single-configuration limitation: every stream must share one
// format and size, because V4L2 streams a single configuration at a
// time. (The framework spec requires accepting any valid multi-stream
// config; this deviation is a documented limitation.)
func (c *Camera) validateStreamSet(streams []*Stream, mode uint32) error {
	if mode != OperationModeNormal {
		return newError(ErrCodeInvalidArgument,
			fmt.Sprintf("unsupported stream configuration mode %d", mode), nil)
	}

	outputs := 0
	var numRaw, numStalling, numNonStalling int32
	for i, stream := range streams {
		if stream.isInputType() {
			// Reprocessing input streams are outside this core.
			return newError(ErrCodeInvalidArgument,
				fmt.Sprintf("input stream %d is not supported", i), nil)
		}
		if !stream.isOutputType() {
			return newError(ErrCodeInvalidArgument,
				fmt.Sprintf("stream %d is neither input nor output", i), nil)
		}
		outputs++
		switch Category(stream.format) {
		case CategoryRaw:
			numRaw++
		case CategoryStalling:
			numStalling++
		case CategoryNonStalling:
			numNonStalling++
		default:
			return newError(ErrCodeInvalidArgument,
				fmt.Sprintf("unsupported format %#x for stream %d", int32(stream.format), i), nil)
		}
	}
	if outputs < 1 {
		return newError(ErrCodeInvalidArgument, "stream config must have at least one output", nil)
	}
	if numRaw > c.maxOutputStreams[0] ||
		numNonStalling > c.maxOutputStreams[1] ||
		numStalling > c.maxOutputStreams[2] {
		return newError(ErrCodeInvalidArgument,
			fmt.Sprintf("stream counts exceed device limits: %d raw, %d non-stalling, %d stalling",
				numRaw, numNonStalling, numStalling), nil)
	}

	first := streams[0]
	for i, stream := range streams[1:] {
		if stream.format != first.format || stream.width != first.width || stream.height != first.height {
			return newError(ErrCodeInvalidArgument,
				fmt.Sprintf("V4L2 supports one stream configuration at a time "+
					"(stream 0 is format %#x %dx%d, stream %d is format %#x %dx%d)",
					int32(first.format), first.width, first.height,
					i+1, int32(stream.format), stream.width, stream.height), nil)
		}
	}
	return nil
}

// setupStreams assigns usage flags and negotiates the device format,
// producing max_buffers for each stream.
func (c *Camera) setupStreams(streams []*Stream) error {
	for _, stream := range streams {
		stream.setUsage(UsageSWWriteOften)

		if stream.rotation != Rotation0 {
			return newError(ErrCodeInvalidArgument,
				fmt.Sprintf("rotation %d not supported", stream.rotation), nil)
		}
		// Doesn't matter what was requested; output is always JFIF.
		stream.setDataSpace(DataspaceJFIF)

		fourcc, known := V4L2PixelFormat(stream.format)
		if !known {
			return newError(ErrCodeInvalidArgument,
				fmt.Sprintf("no device format for stream format %#x", int32(stream.format)), nil)
		}
		maxBuffers, err := c.device.SetFormat(v4l2.StreamFormat{
			PixelFormat: fourcc,
			Width:       stream.width,
			Height:      stream.height,
		})
		if err != nil {
			return newError(ErrCodeNoDevice, "failed to set device format for stream", err)
		}
		if maxBuffers < 1 {
			return newError(ErrCodeNoDevice,
				fmt.Sprintf("format negotiation produced an invalid max of %d buffers", maxBuffers), nil)
		}
		stream.setMaxBuffers(maxBuffers)
	}
	return nil
}

// ProcessCaptureRequest accepts one capture request for asynchronous
// completion. The request is copied; acceptance returns before any
// device work happens.
func (c *Camera) ProcessCaptureRequest(incoming *CaptureRequest) error {
	if incoming == nil {
		return newError(ErrCodeInvalidArgument, "null capture request", nil)
	}

	c.deviceLock.Lock()

	if c.pipeline == nil {
		c.deviceLock.Unlock()
		return newError(ErrCodeInvalidArgument, "streams are not configured", nil)
	}
	activePipeline := c.pipeline

	// Make a persistent copy of the request; the framework's copy does
	// not outlive this call.
	request := incoming.clone()
	c.logger.Debug("Processing capture request", "frame", request.FrameNumber)

	// Empty settings mean "reuse the last non-empty settings", which
	// requires such settings to exist.
	if request.Settings.IsEmpty() && !c.settingsSet {
		c.deviceLock.Unlock()
		return newError(ErrCodeInvalidArgument,
			fmt.Sprintf("empty settings without a previous set, frame %d", request.FrameNumber), nil)
	}
	if request.InputBuffer != nil {
		c.deviceLock.Unlock()
		return newError(ErrCodeInvalidArgument, "reprocessing input buffers are not supported", nil)
	}
	if len(request.OutputBuffers) == 0 {
		c.deviceLock.Unlock()
		return newError(ErrCodeInvalidArgument, "request has no output buffers", nil)
	}

	if !c.meta.IsValidRequest(settingsOrNil(request.Settings)) {
		c.deviceLock.Unlock()
		return newError(ErrCodeInvalidArgument,
			fmt.Sprintf("invalid request settings for frame %d", request.FrameNumber), nil)
	}
	if !request.Settings.IsEmpty() {
		if err := c.meta.ApplyRequest(request.Settings); err != nil {
			c.deviceLock.Unlock()
			return newError(ErrCodeInvalidArgument, "failed to apply request settings", err)
		}
	}
	// A previous request with valid settings has now been provided.
	c.settingsSet = true
	// Fence waits may park for seconds; they happen off the device lock.
	c.deviceLock.Unlock()

	// Wait out each output buffer's acquire fence. A timeout fails the
	// request at the request level, not the device level: the request is
	// still accepted and completes through the error callback path.
	for i := range request.OutputBuffers {
		buffer := &request.OutputBuffers[i]
		if err := waitFence(buffer.AcquireFence, captureSyncTimeout); err != nil {
			c.logger.Error("Acquire fence wait failed",
				"frame", request.FrameNumber, "buffer", i, "error", err)
			request.failed = true
		}
		buffer.AcquireFence = -1
		buffer.ReleaseFence = -1
		buffer.Status = BufferStatusOK
	}

	return activePipeline.submit(request)
}

// settingsOrNil maps empty settings onto the registry's "use previous
// settings" convention.
func settingsOrNil(settings *metadata.Metadata) *metadata.Metadata {
	if settings.IsEmpty() {
		return nil
	}
	return settings
}

// Flush is unimplemented at this layer.
func (c *Camera) Flush() error {
	return newError(ErrCodeNotSupported, "flush is not implemented", nil)
}

// Dump writes the camera id, busy flag, and per-stream state.
func (c *Camera) Dump(w io.Writer) {
	c.deviceLock.Lock()
	defer c.deviceLock.Unlock()

	busy := 0
	if c.busy {
		busy = 1
	}
	fmt.Fprintf(w, "Camera ID: %d (Busy: %d)\n", c.id, busy)
	fmt.Fprintf(w, "Number of streams: %d\n", len(c.streams))
	for i, stream := range c.streams {
		fmt.Fprintf(w, "Stream %d/%d:\n", i, len(c.streams))
		stream.dump(w)
	}
}

// teardownPipelineLocked drains the workers and turns the stream off.
// Callers hold deviceLock.
func (c *Camera) teardownPipelineLocked() {
	if c.pipeline == nil {
		return
	}
	c.pipeline.shutdown()
	if err := c.pipeline.streamOff(); err != nil {
		c.logger.Error("Failed to turn off stream during teardown", "error", err)
	}
	c.pipeline = nil
}
