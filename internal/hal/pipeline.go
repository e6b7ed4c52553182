package hal

import (
	"log/slog"
	"sync"

	"github.com/camhal/camhal/internal/metadata"
)

// waitingQueueDepth bounds how many accepted requests may sit between
// process_capture_request and the enqueue worker.
const waitingQueueDepth = 8

// inFlightItem is one output buffer's trip through the device. The last
// item of a request carries the completion.
type inFlightItem struct {
	request     *CaptureRequest
	bufferIndex int
	enqueued    bool
	last        bool
}

// pipeline runs the two async capture workers: the enqueuer moves
// requests from the waiting queue onto the device and the dequeuer
// collects filled buffers and completes requests through the framework
// callbacks. Requests flow strictly FIFO through both queues, so frame
// numbers complete monotonically.
type pipeline struct {
	device    CaptureDevice
	meta      *metadata.Registry
	callbacks CallbackOps
	logger    *slog.Logger

	waiting  chan *CaptureRequest
	inFlight chan inFlightItem
	// deviceSlot keeps at most one buffer queued on the device at any
	// time; V4L2 streams a single request through this HAL.
	deviceSlot chan struct{}
	stop       chan struct{}
	wg         sync.WaitGroup

	mu          sync.Mutex
	streamingOn bool
}

func newPipeline(device CaptureDevice, meta *metadata.Registry, callbacks CallbackOps, logger *slog.Logger) *pipeline {
	return &pipeline{
		device:     device,
		meta:       meta,
		callbacks:  callbacks,
		logger:     logger,
		waiting:    make(chan *CaptureRequest, waitingQueueDepth),
		inFlight:   make(chan inFlightItem, waitingQueueDepth),
		deviceSlot: make(chan struct{}, 1),
		stop:       make(chan struct{}),
	}
}

func (p *pipeline) start() {
	p.wg.Add(2)
	go p.enqueueWorker()
	go p.dequeueWorker()
}

// shutdown parks both workers. Close is expected to be preceded by
// natural completion of accepted requests; anything still queued is
// failed so no request goes unanswered.
func (p *pipeline) shutdown() {
	close(p.stop)
	p.wg.Wait()

	for {
		select {
		case request := <-p.waiting:
			p.completeWithError(request)
		case item := <-p.inFlight:
			if item.last {
				p.completeWithError(item.request)
			}
		default:
			return
		}
	}
}

// submit hands an accepted request to the enqueue worker.
func (p *pipeline) submit(request *CaptureRequest) error {
	select {
	case p.waiting <- request:
		return nil
	case <-p.stop:
		return newError(ErrCodeNoDevice, "capture pipeline is shut down", nil)
	}
}

func (p *pipeline) enqueueWorker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.stop:
			return
		case request := <-p.waiting:
			p.enqueueRequest(request)
		}
	}
}

// enqueueRequest pushes each of a request's buffers onto the device and
// forwards per-buffer items to the dequeue worker. A request that
// already failed (fence timeout) passes straight through.
func (p *pipeline) enqueueRequest(request *CaptureRequest) {
	for i := range request.OutputBuffers {
		last := i == len(request.OutputBuffers)-1
		item := inFlightItem{request: request, bufferIndex: i, last: last}

		if !request.failed {
			select {
			case p.deviceSlot <- struct{}{}:
			case <-p.stop:
				request.failed = true
			}
		}
		if !request.failed {
			if err := p.device.EnqueueBuffer(request.OutputBuffers[i].Buffer); err != nil {
				p.logger.Error("Device failed to enqueue buffer",
					"frame", request.FrameNumber, "buffer", i, "error", err)
				request.failed = true
				<-p.deviceSlot
			} else if err := p.ensureStreaming(); err != nil {
				p.logger.Error("Device failed to turn on stream",
					"frame", request.FrameNumber, "error", err)
				request.failed = true
				<-p.deviceSlot
			} else {
				item.enqueued = true
			}
		}

		select {
		case p.inFlight <- item:
		case <-p.stop:
			p.completeWithError(request)
			return
		}
	}
}

func (p *pipeline) ensureStreaming() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.streamingOn {
		return nil
	}
	if err := p.device.StreamOn(); err != nil {
		return err
	}
	p.streamingOn = true
	return nil
}

// streamOff is called by the camera on reconfiguration and close, after
// the workers have drained.
func (p *pipeline) streamOff() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.streamingOn {
		return nil
	}
	p.streamingOn = false
	return p.device.StreamOff()
}

func (p *pipeline) dequeueWorker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.stop:
			return
		case item := <-p.inFlight:
			if item.enqueued {
				if _, err := p.device.DequeueBuffer(); err != nil {
					p.logger.Error("Device failed to dequeue buffer",
						"frame", item.request.FrameNumber, "error", err)
					item.request.failed = true
				}
				<-p.deviceSlot
			}
			if item.last {
				p.completeRequest(item.request)
			}
		}
	}
}

// completeRequest fills result metadata, extracts the shutter timestamp,
// and issues exactly one notify plus one result callback.
func (p *pipeline) completeRequest(request *CaptureRequest) {
	if request.failed {
		p.completeWithError(request)
		return
	}

	result := request.Settings.Clone()
	if err := p.meta.FillResult(result); err != nil {
		p.logger.Error("Failed to fill result metadata",
			"frame", request.FrameNumber, "error", err)
		p.completeWithError(request)
		return
	}

	timestamp, err := metadata.SingleValue[int64](result, metadata.TagSensorTimestamp)
	if err != nil {
		p.logger.Error("Result metadata is missing the sensor timestamp",
			"frame", request.FrameNumber, "error", err)
		p.completeWithError(request)
		return
	}

	p.callbacks.NotifyShutter(ShutterMessage{
		FrameNumber: request.FrameNumber,
		Timestamp:   timestamp,
	})

	buffers := make([]StreamBuffer, len(request.OutputBuffers))
	copy(buffers, request.OutputBuffers)
	for i := range buffers {
		buffers[i].Status = BufferStatusOK
		buffers[i].ReleaseFence = -1
	}

	p.callbacks.ProcessCaptureResult(&CaptureResult{
		FrameNumber:   request.FrameNumber,
		Result:        result,
		OutputBuffers: buffers,
		InputBuffer:   nil,
		PartialResult: 1,
	})
}

// completeWithError sends the ERROR_REQUEST notify followed by a result
// carrying the request's buffers with error status. Buffers are never
// leaked: release fences are cleared on every exit path.
func (p *pipeline) completeWithError(request *CaptureRequest) {
	p.callbacks.NotifyError(ErrorMessage{
		FrameNumber: request.FrameNumber,
		Code:        ErrorRequest,
	})

	buffers := make([]StreamBuffer, len(request.OutputBuffers))
	copy(buffers, request.OutputBuffers)
	for i := range buffers {
		buffers[i].Status = BufferStatusError
		buffers[i].ReleaseFence = -1
	}

	p.callbacks.ProcessCaptureResult(&CaptureResult{
		FrameNumber:   request.FrameNumber,
		Result:        request.Settings,
		OutputBuffers: buffers,
		InputBuffer:   nil,
		PartialResult: 1,
	})
}
