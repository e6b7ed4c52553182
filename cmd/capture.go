package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/camhal/camhal/internal/events"
	"github.com/camhal/camhal/internal/gralloc"
	"github.com/camhal/camhal/internal/hal"
	"github.com/camhal/camhal/internal/logging"
	"github.com/camhal/camhal/internal/metadata"
	"github.com/camhal/camhal/internal/metrics"
	"github.com/camhal/camhal/pkg/linuxav/v4l2"
)

// captureCallbacks collects the single capture's completion.
type captureCallbacks struct {
	shutter chan hal.ShutterMessage
	result  chan *hal.CaptureResult
	failure chan hal.ErrorMessage
}

func (c *captureCallbacks) ProcessCaptureResult(result *hal.CaptureResult) {
	c.result <- result
}

func (c *captureCallbacks) NotifyShutter(msg hal.ShutterMessage) {
	c.shutter <- msg
}

func (c *captureCallbacks) NotifyError(msg hal.ErrorMessage) {
	c.failure <- msg
}

// CreateCaptureCmd creates the capture command.
func CreateCaptureCmd() *cobra.Command {
	var width, height uint32
	var output string

	cmd := &cobra.Command{
		Use:   "capture [device-path]",
		Short: "Run one capture request through the HAL pipeline",
		Long: `Opens the device as a HAL camera, configures a single YUV stream, ` +
			`submits one still-capture-template capture request, and writes the raw ` +
			`frame bytes to the output file.`,
		Args: cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			logging.Initialize(logging.Config{Level: "info", Format: "text"})
			logger := logging.GetLogger("capture")

			camera, err := hal.NewCamera(0, v4l2.NewWrapper(args[0], gralloc.New()))
			if err != nil {
				logger.Error("Device cannot back a HAL camera", "error", err)
				os.Exit(1)
			}

			if err := camera.Open(); err != nil {
				logger.Error("Failed to open camera", "error", err)
				os.Exit(1)
			}
			defer camera.Close()

			collector := &captureCallbacks{
				shutter: make(chan hal.ShutterMessage, 1),
				result:  make(chan *hal.CaptureResult, 1),
				failure: make(chan hal.ErrorMessage, 1),
			}
			callbacks := events.NewCallbacks(0, events.New(), metrics.NewPipeline(), collector)
			if err := camera.Initialize(callbacks); err != nil {
				logger.Error("Failed to initialize camera", "error", err)
				os.Exit(1)
			}

			stream := &hal.FrameworkStream{
				Type:   hal.StreamOutput,
				Width:  width,
				Height: height,
				Format: hal.FormatYCbCr420Flexible,
			}
			config := &hal.StreamConfig{Streams: []*hal.FrameworkStream{stream}}
			if err := camera.ConfigureStreams(config); err != nil {
				logger.Error("Failed to configure stream", "error", err)
				os.Exit(1)
			}

			settings := camera.ConstructDefaultRequestSettings(metadata.TemplateStillCapture)
			if settings == nil {
				logger.Error("No still-capture template available")
				os.Exit(1)
			}

			// YUV 4:2:0 needs 3/2 bytes per pixel; round up generously.
			handle := gralloc.NewHandle(1, width, height, 0, int(width*height*2))
			request := &hal.CaptureRequest{
				FrameNumber: 1,
				Settings:    settings.Clone(),
				OutputBuffers: []hal.StreamBuffer{{
					Stream:       stream,
					Buffer:       handle,
					AcquireFence: -1,
					ReleaseFence: -1,
				}},
			}
			if err := camera.ProcessCaptureRequest(request); err != nil {
				logger.Error("Capture request rejected", "error", err)
				os.Exit(1)
			}

			select {
			case msg := <-collector.failure:
				logger.Error("Capture failed", "frame", msg.FrameNumber, "code", msg.Code)
				os.Exit(1)
			case result := <-collector.result:
				if len(result.OutputBuffers) == 0 || result.OutputBuffers[0].Status != hal.BufferStatusOK {
					logger.Error("Capture completed with error buffers", "frame", result.FrameNumber)
					os.Exit(1)
				}
				shutter := <-collector.shutter
				fmt.Printf("Frame %d captured at %d ns\n", result.FrameNumber, shutter.Timestamp)
				if err := os.WriteFile(output, handle.Bytes(), 0o644); err != nil {
					logger.Error("Failed to write frame", "path", output, "error", err)
					os.Exit(1)
				}
				fmt.Printf("Wrote %d bytes to %s\n", len(handle.Bytes()), output)
			case <-time.After(10 * time.Second):
				logger.Error("Timed out waiting for capture completion")
				os.Exit(1)
			}
		},
	}

	cmd.Flags().Uint32Var(&width, "width", 640, "Frame width in pixels")
	cmd.Flags().Uint32Var(&height, "height", 480, "Frame height in pixels")
	cmd.Flags().StringVarP(&output, "output", "o", "frame.yuv", "Output file for the raw frame")
	return cmd
}
