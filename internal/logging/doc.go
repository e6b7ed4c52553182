// Package logging provides structured logging with per-module log level configuration.
//
// # Overview
//
// The logging system uses Go's slog package with automatic output routing:
//   - Logs to systemd journal when available (Linux systems with journald)
//   - Logs to stdout when a terminal, pipe, or file is connected
//   - Logs to both when both are available
//
// # Usage
//
// Initialize the logging system once at startup:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",      // Global log level: debug, info, warn, error
//		Format: "text",      // Output format: text or json
//		Modules: map[string]string{
//			"hal":  "debug",  // Per-module overrides
//			"v4l2": "warn",
//		},
//	})
//
// Get a logger for your module:
//
//	logger := logging.GetLogger("hal")
//	logger.Info("Opening camera", "id", 0)
//
// Add contextual attributes:
//
//	logger := logging.GetLogger("hal").With("camera", id)
//	logger.Info("Stream configured")  // Includes camera in all logs
//
// # Viewing Logs
//
// When running as a systemd service or on a system with journald:
//
//	journalctl -t camhal              # All camhal logs
//	journalctl -t camhal -f           # Follow live
//	journalctl -t camhal -p err       # Errors only
//
// Filter by structured fields:
//
//	journalctl -t camhal MODULE=hal
//	journalctl -t camhal CAMERA=0
//
// # Configuration
//
// Log levels can be set globally or per-module. Module-specific levels
// override the global level for that module only.
//
// Example TOML configuration:
//
//	[logging]
//	level = "info"
//	format = "text"
//	hal = "debug"
//	v4l2 = "warn"
package logging
