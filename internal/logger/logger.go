// Package logger builds the process-wide structured logger.
package logger

import (
	"io"
	"log/slog"
	"os"
)

// Setup returns a JSON slog.Logger writing to w. Debug mode lowers the level to Debug
// and switches to the human-readable text handler.
func Setup(w io.Writer, debug bool) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	if debug {
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// SetupDefault builds the logger and installs it as the slog default
func SetupDefault(w io.Writer, debug bool) *slog.Logger {
	l := Setup(w, debug)
	slog.SetDefault(l)
	return l
}
