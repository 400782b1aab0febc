package logging

import (
	"log/slog"
	"os"
	"strings"
)

// NewLogger returns the process-wide JSON logger. Dispatch flows log
// booking and driver IDs as attributes so a single match can be
// reassembled from interleaved output.
func NewLogger(level string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     parseLevel(level),
		AddSource: true,
	})
	return slog.New(handler)
}

// parseLevel is forgiving: unknown or empty values fall back to info
// rather than failing startup over a typo in LOG_LEVEL.
func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
