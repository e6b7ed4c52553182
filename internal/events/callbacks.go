package events

import (
	"github.com/camhal/camhal/internal/hal"
	"github.com/camhal/camhal/internal/metrics"
)

// Callbacks adapts the event bus (and metrics) into the HAL's framework
// callback table, fanning each completion out to an inner callback table
// when one is attached.
type Callbacks struct {
	CameraID int
	Bus      *Bus
	Metrics  *metrics.Pipeline
	Inner    hal.CallbackOps
}

// NewCallbacks builds the callback table for one camera.
func NewCallbacks(cameraID int, bus *Bus, pipelineMetrics *metrics.Pipeline, inner hal.CallbackOps) *Callbacks {
	return &Callbacks{CameraID: cameraID, Bus: bus, Metrics: pipelineMetrics, Inner: inner}
}

// ProcessCaptureResult publishes the completion and forwards it.
func (c *Callbacks) ProcessCaptureResult(result *hal.CaptureResult) {
	success := true
	for _, buffer := range result.OutputBuffers {
		if buffer.Status != hal.BufferStatusOK {
			success = false
			break
		}
	}
	c.Bus.Publish(CaptureResultEvent{
		CameraID:    c.CameraID,
		FrameNumber: result.FrameNumber,
		BufferCount: len(result.OutputBuffers),
		Success:     success,
	})
	if c.Metrics != nil {
		c.Metrics.ObserveResult(success)
	}
	if c.Inner != nil {
		c.Inner.ProcessCaptureResult(result)
	}
}

// NotifyShutter publishes the shutter and forwards it.
func (c *Callbacks) NotifyShutter(msg hal.ShutterMessage) {
	c.Bus.Publish(ShutterEvent{
		CameraID:    c.CameraID,
		FrameNumber: msg.FrameNumber,
		Timestamp:   msg.Timestamp,
	})
	if c.Inner != nil {
		c.Inner.NotifyShutter(msg)
	}
}

// NotifyError publishes the error notification and forwards it.
func (c *Callbacks) NotifyError(msg hal.ErrorMessage) {
	c.Bus.Publish(RequestErrorEvent{
		CameraID:    c.CameraID,
		FrameNumber: msg.FrameNumber,
		ErrorCode:   int32(msg.Code),
	})
	if c.Metrics != nil {
		c.Metrics.ObserveNotifyError()
	}
	if c.Inner != nil {
		c.Inner.NotifyError(msg)
	}
}
