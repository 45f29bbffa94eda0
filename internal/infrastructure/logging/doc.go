// Package logging provides structured logging for dockscan.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the agent.
//
// # Features
//
//   - JSON output for log shipping, text output for interactive runs
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//   - Stderr or file output, keeping stdout free for the Intune report
//   - Thread-safe for concurrent use
//
// # Configuration
//
// Logging is configured via the LoggingConfig in config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stderr"   # stdout, stderr, or a file path
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	defer logger.Close()
//	logger.Info("scan complete", "dock_count", 1)
//
// # Security
//
// Never log MQTT passwords or InfluxDB tokens.
package logging
