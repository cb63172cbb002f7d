package testutil

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"

	"github.com/emergent-company/codeforge/domain/agentinvoke"
	"github.com/emergent-company/codeforge/domain/capabilities"
	"github.com/emergent-company/codeforge/domain/events"
	"github.com/emergent-company/codeforge/domain/health"
	"github.com/emergent-company/codeforge/domain/learning"
	"github.com/emergent-company/codeforge/domain/session"
	"github.com/emergent-company/codeforge/domain/tit"
	"github.com/emergent-company/codeforge/domain/workflow"
	"github.com/emergent-company/codeforge/pkg/apperror"
	"github.com/emergent-company/codeforge/pkg/auth"
)

// TestServer wires an Echo instance against every live domain this
// orchestrator ships (workflow engine, capability executor, agent
// invocation, tool-invocation trace, event stream, learning store), the
// same graph cmd/server/main.go builds via fx, constructed by hand so a
// failing assertion doesn't also have to unwind an fx lifecycle.
type TestServer struct {
	Echo           *echo.Echo
	TestDB         *TestDB
	DB             bun.IDB
	AuthMiddleware *auth.Middleware
	Engine         *workflow.Engine
	LLM            *FakeProvider
}

// NewTestServer creates a test server against the test database's base
// connection.
func NewTestServer(testDB *TestDB) *TestServer {
	return newTestServerWithDB(testDB, testDB.GetDB())
}

// newTestServerWithDB creates a test server against a specific
// connection (the base DB, or an active per-test transaction).
func newTestServerWithDB(testDB *TestDB, db bun.IDB) *TestServer {
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apperror.HTTPErrorHandler(log)

	// Auth
	userSvc := auth.NewUserProfileService(db, log)
	authMiddleware := auth.NewMiddleware(db, testDB.Config, log, userSvc)

	// Health, readiness, /metrics
	healthHandler := health.NewHandler(testDB.Pool, testDB.Config)
	health.RegisterRoutes(e, healthHandler)

	// Tool-invocation trace, shared by the capability executor and the
	// agent invocation layer.
	titRepo := tit.NewRepository(db)
	titRecorder := tit.NewRecorder(titRepo, log, testDB.Config.Workflow.TITEnabled)

	// Workflow's own state: repository, step catalog, artifact store, and
	// the leaf StepInputProvider that lets the invoker read session state
	// without depending on *workflow.Engine (see domain/workflow/module.go
	// and the cycle it avoids).
	repo := workflow.NewRepository(db)
	catalog, err := workflow.LoadCatalog("")
	if err != nil {
		panic("testutil: embedded default step catalog failed to parse: " + err.Error())
	}
	artifacts := workflow.NewArtifactStore(db)
	sessions := workflow.NewSessionReader(repo, catalog, artifacts)

	// LLM backend: a fake provider, never a real google.golang.org/genai
	// client, so tests never need network access or API credentials.
	llm := NewFakeProvider()

	assembler, err := agentinvoke.NewAssembler()
	if err != nil {
		panic("testutil: agent prompt templates failed to parse: " + err.Error())
	}
	invoker := agentinvoke.NewInvoker(llm, assembler, sessions, titRecorder, testDB.Config, log)

	planner := capabilities.NewPlanner()
	tools := capabilities.NewBuiltinRegistry(invoker, db)
	executor := capabilities.NewExecutor(tools, titRecorder, log)

	supervisor := workflow.NewSupervisor(llm, testDB.Config.LLM.Model)

	learningRepo := learning.NewRepository(db, log)

	eventsRepo := events.NewRepository(db)
	eventsSvc := events.NewService(eventsRepo, log)
	eventsHandler := events.NewHandler(eventsSvc, log)

	engine := workflow.NewEngine(workflow.EngineParams{
		Repo:         repo,
		Catalog:      catalog,
		Artifacts:    artifacts,
		Planner:      planner,
		Executor:     executor,
		Invoker:      invoker,
		Supervisor:   supervisor,
		LearningRepo: learningRepo,
		Events:       eventsSvc,
		Config:       testDB.Config,
		Log:          log,
	})

	sessionHandler := session.NewHandler(engine)
	session.RegisterRoutes(e, sessionHandler, eventsHandler, authMiddleware)

	// Generic protected routes for auth-mechanics tests (scope gating,
	// project-ID requirement) that aren't tied to a specific domain route.
	protected := e.Group("/api/test")
	protected.Use(authMiddleware.RequireAuth())
	protected.GET("/me", func(c echo.Context) error {
		user := auth.GetUser(c)
		if user == nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "No user in context")
		}
		return c.JSON(http.StatusOK, map[string]any{
			"id":        user.ID,
			"sub":       user.Sub,
			"email":     user.Email,
			"scopes":    user.Scopes,
			"projectId": user.ProjectID,
			"orgId":     user.OrgID,
		})
	})

	scopedGroup := e.Group("/api/test/scoped")
	scopedGroup.Use(authMiddleware.RequireAuth())
	scopedGroup.Use(authMiddleware.RequireScopes("project:read"))
	scopedGroup.GET("", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{"message": "You have project:read scope"})
	})

	projectGroup := e.Group("/api/test/project")
	projectGroup.Use(authMiddleware.RequireAuth())
	projectGroup.Use(authMiddleware.RequireProjectID())
	projectGroup.GET("", func(c echo.Context) error {
		user := auth.GetUser(c)
		return c.JSON(http.StatusOK, map[string]any{
			"message":   "Project ID required endpoint",
			"projectId": user.ProjectID,
		})
	})

	return &TestServer{
		Echo:           e,
		TestDB:         testDB,
		DB:             db,
		AuthMiddleware: authMiddleware,
		Engine:         engine,
		LLM:            llm,
	}
}

// Request performs an HTTP request against the test server
func (s *TestServer) Request(method, path string, opts ...RequestOption) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)

	for _, opt := range opts {
		opt(req)
	}

	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	return rec
}

// GET performs a GET request
func (s *TestServer) GET(path string, opts ...RequestOption) *httptest.ResponseRecorder {
	return s.Request(http.MethodGet, path, opts...)
}

// POST performs a POST request
func (s *TestServer) POST(path string, opts ...RequestOption) *httptest.ResponseRecorder {
	return s.Request(http.MethodPost, path, opts...)
}

// PUT performs a PUT request
func (s *TestServer) PUT(path string, opts ...RequestOption) *httptest.ResponseRecorder {
	return s.Request(http.MethodPut, path, opts...)
}

// DELETE performs a DELETE request
func (s *TestServer) DELETE(path string, opts ...RequestOption) *httptest.ResponseRecorder {
	return s.Request(http.MethodDelete, path, opts...)
}

// PATCH performs a PATCH request
func (s *TestServer) PATCH(path string, opts ...RequestOption) *httptest.ResponseRecorder {
	return s.Request(http.MethodPatch, path, opts...)
}

// RequestOption modifies an HTTP request
type RequestOption func(*http.Request)

// WithHeader adds a header to the request
func WithHeader(key, value string) RequestOption {
	return func(r *http.Request) {
		r.Header.Set(key, value)
	}
}

// WithAuth adds an Authorization header
func WithAuth(token string) RequestOption {
	return WithHeader("Authorization", "Bearer "+token)
}

// WithProjectID adds an X-Project-ID header
func WithProjectID(projectID string) RequestOption {
	return WithHeader("X-Project-ID", projectID)
}

// WithOrgID adds an X-Org-ID header
func WithOrgID(orgID string) RequestOption {
	return WithHeader("X-Org-ID", orgID)
}

// WithJSON adds Content-Type: application/json header
func WithJSON() RequestOption {
	return WithHeader("Content-Type", "application/json")
}

// WithBody adds a request body
func WithBody(body string) RequestOption {
	return func(r *http.Request) {
		r.Body = io.NopCloser(strings.NewReader(body))
		r.ContentLength = int64(len(body))
	}
}

// WithAPIToken adds an Authorization header without Bearer prefix (for API tokens)
func WithAPIToken(token string) RequestOption {
	return WithHeader("Authorization", "Bearer "+token)
}

// WithRawAuth adds a raw Authorization header value
func WithRawAuth(value string) RequestOption {
	return WithHeader("Authorization", value)
}

// WithJSONBody sets Content-Type to application/json and marshals the body to JSON
func WithJSONBody(body any) RequestOption {
	return func(r *http.Request) {
		data, err := json.Marshal(body)
		if err != nil {
			panic(err)
		}
		r.Header.Set("Content-Type", "application/json")
		r.Body = io.NopCloser(strings.NewReader(string(data)))
		r.ContentLength = int64(len(data))
	}
}
