// Package session is the HTTP façade over §6's Session API: it
// translates Echo requests into workflow.Engine calls and workflow
// errors into apperror-shaped HTTP responses. It owns no state of its
// own — domain/workflow.Engine is the single source of truth for a
// session's lifecycle.
package session

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/emergent-company/codeforge/domain/workflow"
	"github.com/emergent-company/codeforge/pkg/apperror"
	"github.com/emergent-company/codeforge/pkg/auth"
)

// Handler implements the Session API.
type Handler struct {
	engine *workflow.Engine
}

// NewHandler constructs a Handler.
func NewHandler(engine *workflow.Engine) *Handler {
	return &Handler{engine: engine}
}

type startRequest struct {
	Description string `json:"description"`
	Mode        string `json:"mode"`
}

type startResponse struct {
	SessionID string `json:"session_id"`
}

// Start handles POST /sessions. The project the session belongs to is
// the caller's X-Project-ID, the same project-scoping convention every
// other project-owned resource in this API uses.
func (h *Handler) Start(c echo.Context) error {
	projectID, err := auth.GetProjectID(c)
	if err != nil {
		return err
	}

	var req startRequest
	if err := c.Bind(&req); err != nil {
		return apperror.ErrBadRequest.WithInternal(err)
	}

	mode := workflow.ModeFresh
	if req.Mode != "" {
		mode = workflow.Mode(req.Mode)
	}

	sessionID, err := h.engine.Start(c.Request().Context(), projectID, req.Description, mode)
	if err != nil {
		return translateErr(err)
	}
	return c.JSON(http.StatusCreated, startResponse{SessionID: sessionID})
}

// Resume handles POST /sessions/:id/resume.
func (h *Handler) Resume(c echo.Context) error {
	var req struct {
		Message string `json:"message"`
	}
	if err := c.Bind(&req); err != nil {
		return apperror.ErrBadRequest.WithInternal(err)
	}

	if err := h.engine.Resume(c.Request().Context(), c.Param("id"), req.Message); err != nil {
		return translateErr(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Pause handles POST /sessions/:id/pause.
func (h *Handler) Pause(c echo.Context) error {
	if err := h.engine.Pause(c.Request().Context(), c.Param("id")); err != nil {
		return translateErr(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Progress handles GET /sessions/:id/progress. Progress is keyed by
// project (§6): :id is not read; the project is the caller's project id
// from auth.GetProjectID, matching workflow.Engine.Progress's own
// contract.
func (h *Handler) Progress(c echo.Context) error {
	projectID, err := auth.GetProjectID(c)
	if err != nil {
		return err
	}

	summary, err := h.engine.Progress(c.Request().Context(), projectID)
	if err != nil {
		return translateErr(err)
	}
	return c.JSON(http.StatusOK, summary)
}

// ClearProgress handles POST /sessions/:id/clear-progress: it starts a
// new session for the project with mode=fresh. Earlier session rows are
// left in place; the new one becomes the project's latest session.
// Engine.Start's running-session check, which applies to every mode, is
// what enforces that only one can be running at a time.
func (h *Handler) ClearProgress(c echo.Context) error {
	projectID, err := auth.GetProjectID(c)
	if err != nil {
		return err
	}

	var req struct {
		Description string `json:"description"`
	}
	_ = c.Bind(&req)

	sessionID, err := h.engine.Start(c.Request().Context(), projectID, req.Description, workflow.ModeFresh)
	if err != nil {
		return translateErr(err)
	}
	return c.JSON(http.StatusOK, startResponse{SessionID: sessionID})
}

// translateErr maps the engine's sentinel error types to their §7 HTTP
// status: a concurrent start is a conflict, a dependency deadlock is
// unprocessable, everything else is a 500 — the engine classified it
// already (§4.3) and there is nothing more specific to report at the
// HTTP layer.
func translateErr(err error) error {
	var concurrent *workflow.ConcurrentStart
	if errors.As(err, &concurrent) {
		return apperror.ErrConcurrentStart.WithMessage(err.Error())
	}
	var depMissing *workflow.DependencyMissing
	if errors.As(err, &depMissing) {
		return apperror.ErrValidation.WithMessage(err.Error())
	}
	return apperror.ErrInternal.WithInternal(err)
}
