package logger

import (
	"log/slog"
	"os"

	"go.uber.org/fx"
)

// Module provides the process-wide *slog.Logger and *HTTPLogger to fx.
var Module = fx.Module("logger",
	fx.Provide(
		NewLogger,
		provideHTTPLogger,
	),
)

func provideHTTPLogger(log *slog.Logger) (*HTTPLogger, error) {
	return NewHTTPLogger(os.Getenv("HTTP_ACCESS_LOG_PATH"), log)
}
