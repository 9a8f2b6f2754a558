// Package logging wraps log/slog with the level-parsing and
// component-scoping conventions the server's packages share.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// ParseLevel converts a case-insensitive level name to a slog.Level,
// defaulting to Info for anything unrecognised.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
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

// Init builds the process-wide default logger writing JSON records to w at
// the given level, and installs it via slog.SetDefault so every package
// that calls slog.Default() picks it up without being passed a logger
// explicitly.
func Init(level slog.Level, w *os.File) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// Component returns a child logger tagging every record with
// component=name, used so a session's or tool's log lines can be filtered
// without a per-package logger instance to thread through every
// constructor.
func Component(name string) *slog.Logger {
	return slog.Default().With("component", name)
}
