package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"

	"github.com/camhal/camhal/cmd"
	"github.com/camhal/camhal/internal/api"
	"github.com/camhal/camhal/internal/config"
	"github.com/camhal/camhal/internal/devices"
	"github.com/camhal/camhal/internal/events"
	"github.com/camhal/camhal/internal/hal"
	"github.com/camhal/camhal/internal/logging"
	"github.com/camhal/camhal/internal/metrics"
	"github.com/camhal/camhal/internal/nats"
	"github.com/camhal/camhal/internal/systemd"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port string `help:"Port to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`

	// Messaging settings
	NATSUrl     string `help:"NATS server URL for the event bridge" default:"" toml:"nats.url" env:"NATS_URL"`
	NATSEnabled bool   `help:"Enable the NATS event bridge" default:"false" toml:"nats.enabled" env:"NATS_ENABLED"`

	// Logging settings
	LoggingLevel   string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat  string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingHAL     string `help:"HAL logging level" default:"info" toml:"logging.hal" env:"LOGGING_HAL"`
	LoggingV4L2    string `help:"V4L2 wrapper logging level" default:"info" toml:"logging.v4l2" env:"LOGGING_V4L2"`
	LoggingAPI     string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingDevices string `help:"Device detection logging level" default:"info" toml:"logging.devices" env:"LOGGING_DEVICES"`
}

// busBroadcaster republishes hotplug notifications onto the event bus.
type busBroadcaster struct {
	bus *events.Bus
}

func (b *busBroadcaster) DeviceAdded(device devices.DeviceInfo) {
	b.bus.Publish(events.DeviceAddedEvent{
		DevicePath: device.DevicePath,
		DeviceName: device.DeviceName,
		DeviceID:   device.DeviceID,
	})
}

func (b *busBroadcaster) DeviceRemoved(device devices.DeviceInfo) {
	b.bus.Publish(events.DeviceRemovedEvent{
		DevicePath: device.DevicePath,
		DeviceID:   device.DeviceID,
	})
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.LoadConfig(opts, nil); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"hal":     opts.LoggingHAL,
				"v4l2":    opts.LoggingV4L2,
				"api":     opts.LoggingAPI,
				"devices": opts.LoggingDevices,
			},
		})
		logger := logging.GetLogger("main")

		// Follow the config file so log levels can be changed without a
		// restart.
		reloader := config.NewLogLevelReloader(opts.Config, func(cfg logging.Config) {
			for module, level := range cfg.Modules {
				logging.SetModuleLevel(module, level)
			}
		}, logger)

		eventBus := events.New()
		pipelineMetrics := metrics.NewPipeline()

		manager, err := hal.NewManager(devices.NewDetector())
		if err != nil {
			logger.Error("Failed to enumerate cameras", "error", err)
			os.Exit(1)
		}
		if len(manager.Entries()) == 0 {
			logger.Warn("No supported cameras found; serving an empty camera list")
		}

		server := api.NewServer(manager, api.Options{
			Port:           opts.Port,
			MetricsHandler: pipelineMetrics.Handler(),
		})

		var bridge *nats.Bridge
		if opts.NATSEnabled && opts.NATSUrl != "" {
			bridge = nats.NewBridge(opts.NATSUrl, eventBus, logger)
		}

		monitorCtx, cancelMonitor := context.WithCancel(context.Background())

		hooks.OnStart(func() {
			if err := reloader.Start(); err != nil {
				logger.Warn("Config watcher unavailable", "error", err)
			}
			if err := manager.StartMonitoring(monitorCtx, &busBroadcaster{bus: eventBus}); err != nil {
				logger.Warn("Device hotplug monitoring unavailable", "error", err)
			}
			if bridge != nil {
				if err := bridge.Start(); err != nil {
					logger.Warn("NATS bridge unavailable", "error", err)
					bridge = nil
				}
			}

			systemd.NotifyReady(logger)
			if err := server.Start(); err != nil {
				logger.Error("API server failed", "error", err)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			systemd.NotifyStopping(logger)
			reloader.Stop()
			cancelMonitor()
			manager.StopMonitoring()
			if bridge != nil {
				bridge.Stop()
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				logger.Error("API server shutdown failed", "error", err)
			}
		})
	})

	// Subcommands for one-shot device work.
	root := cli.Root()
	root.Use = "camhal"
	root.AddCommand(cmd.CreateProbeCmd())
	root.AddCommand(cmd.CreateCaptureCmd())

	cli.Run()
}
