package logger

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// HTTPLogger appends one line per request to a dedicated access-log file,
// independent of the structured application log. Kept separate so access
// logs can be rotated/shipped on their own schedule.
type HTTPLogger struct {
	mu   sync.Mutex
	file *os.File
	log  *slog.Logger
}

// NewHTTPLogger opens (creating if needed) the access log at path. If path
// is empty, access-file writes are skipped and only the fallback slog
// record is emitted.
func NewHTTPLogger(path string, log *slog.Logger) (*HTTPLogger, error) {
	h := &HTTPLogger{log: log.With(Scope("http_logger"))}

	if path == "" {
		return h, nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open access log: %w", err)
	}
	h.file = f

	return h, nil
}

// LogRequest writes one access-log line for a completed HTTP request.
func (h *HTTPLogger) LogRequest(ip, method, uri string, status int, latency time.Duration, userAgent, requestID string) {
	line := fmt.Sprintf("%s %s %s %s %d %s %q %s\n",
		time.Now().UTC().Format(time.RFC3339), ip, method, uri, status, latency, userAgent, requestID)

	if h.file == nil {
		h.log.Debug("access", slog.String("line", line))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, err := h.file.WriteString(line); err != nil {
		h.log.Warn("failed to write access log line", Error(err))
	}
}

// Close releases the underlying file handle, if any.
func (h *HTTPLogger) Close() error {
	if h.file == nil {
		return nil
	}
	return h.file.Close()
}
