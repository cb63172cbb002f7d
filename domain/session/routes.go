package session

import (
	"github.com/labstack/echo/v4"

	"github.com/emergent-company/codeforge/domain/events"
	"github.com/emergent-company/codeforge/pkg/auth"
)

// RegisterRoutes wires the §6 Session API plus its event stream.
func RegisterRoutes(e *echo.Echo, h *Handler, eventsHandler *events.Handler, authMiddleware *auth.Middleware) {
	g := e.Group("/sessions")
	g.Use(authMiddleware.RequireAuth())

	g.POST("", h.Start)
	g.POST("/:id/resume", h.Resume)
	g.POST("/:id/pause", h.Pause)
	g.GET("/:id/progress", h.Progress)
	g.POST("/:id/clear-progress", h.ClearProgress)
	g.GET("/:id/events", eventsHandler.Stream)
}
