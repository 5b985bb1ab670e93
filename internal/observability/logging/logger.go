package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New builds the service-wide JSON logger and installs it as the slog
// default so library warnings share the same output stream.
func New(service, level string) *slog.Logger {
	logger := NewWithWriter(os.Stdout, service, level)
	slog.SetDefault(logger)
	return logger
}

func NewWithWriter(w io.Writer, service, level string) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})
	return slog.New(handler).With("service", service)
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
