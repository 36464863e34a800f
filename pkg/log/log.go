// Package log configures the process-wide slog default for the Chatflow
// services.
package log

import (
	"io"
	"log/slog"
	"os"
)

// FormatText and FormatJSON are the accepted log output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Setup installs the default logger. Unknown levels fall back to info,
// unknown formats to text.
func Setup(logLevel, format string) {
	slog.SetDefault(slog.New(newHandler(os.Stderr, logLevel, format)))
}

// ParseLevel maps a level name to its slog level, defaulting to info.
func ParseLevel(logLevel string) slog.Level {
	switch logLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithModule returns a child of the default logger tagged with the module name.
func WithModule(module string) *slog.Logger {
	return slog.With("module", module)
}

func newHandler(w io.Writer, logLevel, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: ParseLevel(logLevel)}

	if format == FormatJSON {
		return slog.NewJSONHandler(w, opts)
	}

	return slog.NewTextHandler(w, opts)
}
