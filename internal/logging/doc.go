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
//			"acquire": "debug",  // Per-module overrides
//			"decode":  "warn",
//		},
//	})
//
// Get a logger for your module:
//
//	logger := logging.GetLogger("camera")
//	logger.Info("Camera connected", "serial", serial)
//
// Add contextual attributes:
//
//	logger := logging.GetLogger("acquire").With("serial", serial)
//	logger.Info("Streaming started")  // Includes serial in all logs
//
// # Viewing Logs
//
// When running as a systemd service or on a system with journald:
//
//	journalctl -t camgrab              # All camgrab logs
//	journalctl -t camgrab -f           # Follow live
//	journalctl -t camgrab -p err       # Errors only
//
// Filter by structured fields:
//
//	journalctl -t camgrab MODULE=acquire
//	journalctl -t camgrab SERIAL=DA1262775
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
//
//	[logging.modules]
//	acquire = "debug"
//	camera = "info"
package logging
