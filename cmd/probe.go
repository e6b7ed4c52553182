package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/camhal/camhal/internal/devices"
	"github.com/camhal/camhal/internal/gralloc"
	"github.com/camhal/camhal/internal/hal"
	"github.com/camhal/camhal/internal/logging"
	"github.com/camhal/camhal/internal/metadata"
	"github.com/camhal/camhal/pkg/linuxav/v4l2"
)

// CreateProbeCmd creates the probe command.
func CreateProbeCmd() *cobra.Command {
	var logJSON bool

	cmd := &cobra.Command{
		Use:   "probe [device-path]",
		Short: "Probe V4L2 devices as HAL cameras",
		Long: `Without arguments, lists all V4L2 capture devices. With a device path, ` +
			`builds the HAL camera over it and prints the info table, static ` +
			`characteristics, and available request templates.`,
		Args: cobra.MaximumNArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			loggingConfig := logging.Config{Level: "warn", Format: "text"}
			if logJSON {
				loggingConfig.Format = "json"
			}
			logging.Initialize(loggingConfig)
			logger := logging.GetLogger("probe")

			if len(args) == 0 {
				listDevices(logger)
				return
			}
			probeDevice(args[0], logger)
		},
	}

	cmd.Flags().BoolVar(&logJSON, "log-json", false, "Log in JSON format")
	return cmd
}

func listDevices(logger logging.Logger) {
	detector := devices.NewDetector()
	found, err := detector.FindDevices()
	if err != nil {
		logger.Error("Failed to find devices", "error", err)
		os.Exit(1)
	}

	if len(found) == 0 {
		fmt.Println("No V4L2 capture devices found.")
		return
	}

	fmt.Printf("Found %d V4L2 capture devices:\n", len(found))
	for i, dev := range found {
		fmt.Printf("%d. Device Path: %s\n", i+1, dev.DevicePath)
		fmt.Printf("   Device Name: %s\n", dev.DeviceName)
		fmt.Printf("   Device ID: %s\n", dev.DeviceID)
		fmt.Println()
	}
}

func probeDevice(path string, logger logging.Logger) {
	camera, err := hal.NewCamera(0, v4l2.NewWrapper(path, gralloc.New()))
	if err != nil {
		logger.Error("Device cannot back a HAL camera", "path", path, "error", err)
		os.Exit(1)
	}

	info, err := camera.GetInfo()
	if err != nil {
		logger.Error("Failed to read camera info", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Device: %s\n", path)
	fmt.Printf("  API version: %s\n", info.DeviceVersion)
	fmt.Printf("  Facing: %d  Orientation: %d  Resource cost: %d\n",
		info.Facing, info.Orientation, info.ResourceCost)
	fmt.Printf("  Static characteristics: %d entries\n", info.StaticCharacteristics.Count())

	fpsRanges, err := metadata.EntryData[int32](info.StaticCharacteristics,
		metadata.TagControlAeAvailableTargetFpsRanges)
	if err == nil {
		fmt.Printf("  Target FPS ranges:")
		for i := 0; i+1 < len(fpsRanges); i += 2 {
			fmt.Printf(" [%d,%d]", fpsRanges[i], fpsRanges[i+1])
		}
		fmt.Println()
	}

	templateNames := map[int]string{
		metadata.TemplatePreview:        "preview",
		metadata.TemplateStillCapture:   "still-capture",
		metadata.TemplateVideoRecord:    "video-record",
		metadata.TemplateVideoSnapshot:  "video-snapshot",
		metadata.TemplateZeroShutterLag: "zero-shutter-lag",
		metadata.TemplateManual:         "manual",
	}
	fmt.Println("  Templates:")
	for id := metadata.TemplatePreview; id < metadata.TemplateCount; id++ {
		template := camera.ConstructDefaultRequestSettings(id)
		if template == nil {
			fmt.Printf("    %-16s absent\n", templateNames[id])
			continue
		}
		fmt.Printf("    %-16s %d entries\n", templateNames[id], template.Count())
	}
}
