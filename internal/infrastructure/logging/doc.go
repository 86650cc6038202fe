// Package logging provides structured logging for the edge bridge.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the entire application.
//
// # Features
//
//   - JSON output for production (machine-parsable)
//   - Text output for development (human-readable)
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//   - Thread-safe for concurrent use
//
// # Configuration
//
// Logging is configured via the LoggingConfig in config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr, none
//	  file:
//	    path: "edgebridge.log"  # optional, appended to
//
// # Usage
//
//	logger, err := logging.Open(cfg.Logging, "1.0.0")
//	if err != nil { ... }
//	defer logger.Close()
//	logger.Info("starting service", "port", 8088)
//	logger.Error("failed to connect", "error", err)
//
// # Security
//
// Never log secrets, tokens, passwords, or API keys.
// The bearer token is never passed to a logger.
package logging
