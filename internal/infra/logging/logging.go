package logging

import (
	"io"
	"log/slog"
	"os"
)

const serviceName = "seamless-wallet"

// SetupJSON sets slog's default logger to use JSON output at the given level.
func SetupJSON(level slog.Level) *slog.Logger {
	logger := NewJSON(os.Stdout, level)
	slog.SetDefault(logger)

	return logger
}

// NewJSON returns a JSON logger writing to w, tagged with the service name.
func NewJSON(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(
		slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}),
	).With("service", serviceName)
}
