package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nerrad567/edge-bridge/internal/infrastructure/config"
)

// Logger wraps slog.Logger with edge bridge defaults.
//
// It provides structured logging with default fields and level-based filtering.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Logger struct {
	*slog.Logger

	// file is the append-mode log file opened by Open, if any.
	file *os.File
}

// New creates a new Logger with the specified configuration.
//
// It configures:
//   - Output format (JSON or text)
//   - Log level filtering
//   - Default fields (service name, version)
//   - Output destination (stdout, stderr, or none)
//
// New ignores cfg.File; use Open to also append to a log file.
//
// Parameters:
//   - cfg: Logging configuration from config.yaml
//   - version: Application version for default field
//
// Returns:
//   - *Logger: Configured logger ready for use
func New(cfg config.LoggingConfig, version string) *Logger {
	return &Logger{
		Logger: slog.New(newHandler(cfg, version, consoleWriter(cfg.Output))),
	}
}

// Open creates a Logger like New and, when cfg.File.Path is set, also
// appends every entry to that file. Call Close to release the file.
func Open(cfg config.LoggingConfig, version string) (*Logger, error) {
	if cfg.File.Path == "" {
		return New(cfg, version), nil
	}

	f, err := os.OpenFile(cfg.File.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644) //nolint:gosec // log file path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	var output io.Writer = f
	if console := consoleWriter(cfg.Output); console != io.Discard {
		output = io.MultiWriter(console, f)
	}

	return &Logger{
		Logger: slog.New(newHandler(cfg, version, output)),
		file:   f,
	}, nil
}

// Close releases the log file, if one was opened.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// consoleWriter maps the output setting to a writer.
func consoleWriter(output string) io.Writer {
	switch strings.ToLower(output) {
	case "stderr":
		return os.Stderr
	case "none":
		return io.Discard
	default:
		return os.Stdout
	}
}

// newHandler builds the slog handler for cfg writing to output.
func newHandler(cfg config.LoggingConfig, version string, output io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "text":
		handler = slog.NewTextHandler(output, opts)
	default:
		handler = slog.NewJSONHandler(output, opts)
	}

	// Add default fields
	return handler.WithAttrs([]slog.Attr{
		slog.String("service", "edgebridge"),
		slog.String("version", version),
	})
}

// parseLevel converts a string log level to slog.Level.
//
// Supported levels: debug, info, warn, error
// Defaults to info if unrecognised.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a new Logger with additional default attributes.
//
// The returned logger shares the parent's log file; only the parent
// should be closed.
//
// Example:
//
//	relayLogger := logger.With("component", "relay")
//	relayLogger.Info("forwarded") // Includes component=relay
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger: l.Logger.With(args...),
	}
}
