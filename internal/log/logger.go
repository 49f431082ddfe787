package log

import (
	"io"
	"log/slog"
)

// NewLogger creates a text-format slog.Logger.
//
// Parameters:
//   - w: The io.Writer to write log output to (typically os.Stderr)
//   - verbose: If true, sets log level to Debug; otherwise Warn
//
// The Warn default keeps scheduled runs quiet: a healthy run prints
// nothing, and anything at Warn or above means state was dropped or I/O
// degraded.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, handlerOptions(verbose)))
}

// NewJSONLogger creates a JSON-format slog.Logger with the same level
// rules as NewLogger. Useful for structured log aggregation.
func NewJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, handlerOptions(verbose)))
}

func handlerOptions(verbose bool) *slog.HandlerOptions {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return &slog.HandlerOptions{Level: level}
}
