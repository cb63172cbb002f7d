// Package logger provides the structured logger used across the service,
// a thin wrapper over log/slog configured from the process environment.
package logger

import (
	"log/slog"
	"os"
	"strings"
)

// Scope tags a logger with the subsystem emitting the record, e.g.
// log.With(logger.Scope("workflow")).
func Scope(scope string) slog.Attr {
	return slog.String("scope", scope)
}

// Error attaches an error to a log record under a consistent key.
func Error(err error) slog.Attr {
	return slog.Any("error", err)
}

// NewLogger builds a *slog.Logger from LOG_LEVEL and GO_ENV.
//
// LOG_LEVEL is one of debug, info, warn/warning, error (case-insensitive);
// an unset or unrecognized value defaults to info. GO_ENV=production
// selects a JSON handler for machine-readable log aggregation; anything
// else uses a human-readable text handler.
func NewLogger() *slog.Logger {
	level := parseLevel(os.Getenv("LOG_LEVEL"))

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(os.Getenv("GO_ENV"), "production") {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "info":
		return slog.LevelInfo
	default:
		return slog.LevelInfo
	}
}
