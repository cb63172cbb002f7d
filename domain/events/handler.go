package events

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/emergent-company/codeforge/pkg/logger"
	"github.com/emergent-company/codeforge/pkg/sse"
)

const heartbeatInterval = 20 * time.Second

// Handler exposes the §6 event stream over SSE.
type Handler struct {
	svc *Service
	log *slog.Logger
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, log *slog.Logger) *Handler {
	return &Handler{svc: svc, log: log.With(logger.Scope("events.handler"))}
}

// Stream handles GET /sessions/:id/events. It first replays everything
// recorded after the client's Last-Event-ID (or ?after=N), then streams
// live events until the session finishes or the client disconnects.
func (h *Handler) Stream(c echo.Context) error {
	sessionID := c.Param("id")
	if sessionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "session id required")
	}

	after := int64(0)
	if v := c.Request().Header.Get("Last-Event-ID"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			after = n
		}
	} else if v := c.QueryParam("after"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			after = n
		}
	}

	ctx := c.Request().Context()
	w := sse.NewWriter(c.Response())
	if err := w.Start(); err != nil {
		return err
	}
	defer w.Close()

	backlog, err := h.svc.Replay(ctx, sessionID, after)
	if err != nil {
		h.log.Warn("failed to replay session events", "session_id", sessionID, "error", err)
	}
	for _, rec := range backlog {
		if err := w.WriteEvent(rec.Kind, eventPayload{Seq: rec.Seq, Payload: rec.PayloadJSON}); err != nil {
			return nil
		}
	}

	live, unsubscribe := h.svc.Subscribe(sessionID)
	defer unsubscribe()

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-live:
			if !ok {
				return nil
			}
			if err := w.WriteEvent(event.Kind, event); err != nil {
				return nil
			}
		case <-ticker.C:
			if err := w.WriteComment("heartbeat"); err != nil {
				return nil
			}
		}
	}
}

type eventPayload struct {
	Seq     int64  `json:"seq"`
	Payload string `json:"payload"`
}
