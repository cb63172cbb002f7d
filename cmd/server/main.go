// Package main provides the entry point for the autonomous code-generation
// orchestrator server.
//
// @title Codeforge Orchestrator API
// @version 0.1.0
// @description Session API + event stream for the autonomous code-generation workflow engine
// @contact.name Codeforge Team
// @license.name Proprietary
// @host localhost:5300
// @BasePath /
// @schemes http https
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description OAuth 2.0 access token (format: "Bearer <token>")
package main

import (
	"context"
	"log/slog"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/emergent-company/codeforge/domain/agentinvoke"
	"github.com/emergent-company/codeforge/domain/capabilities"
	"github.com/emergent-company/codeforge/domain/events"
	"github.com/emergent-company/codeforge/domain/health"
	"github.com/emergent-company/codeforge/domain/learning"
	"github.com/emergent-company/codeforge/domain/scheduler"
	"github.com/emergent-company/codeforge/domain/session"
	"github.com/emergent-company/codeforge/domain/tit"
	"github.com/emergent-company/codeforge/domain/tracing"
	"github.com/emergent-company/codeforge/domain/workflow"
	"github.com/emergent-company/codeforge/internal/config"
	"github.com/emergent-company/codeforge/internal/database"
	"github.com/emergent-company/codeforge/internal/migrate"
	"github.com/emergent-company/codeforge/internal/server"
	"github.com/emergent-company/codeforge/pkg/auth"
	"github.com/emergent-company/codeforge/pkg/llmprovider"
	"github.com/emergent-company/codeforge/pkg/logger"
)

func main() {
	// Load .env files if present (for local development)
	// Order matters: .env.local overrides .env
	// Note: Load() won't overwrite existing vars, Overload() will
	_ = godotenv.Load("../../.env")
	_ = godotenv.Overload("../../.env.local") // Overload ensures local values take precedence

	fx.New(
		// Logging
		fx.WithLogger(func(log *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: log}
		}),

		// Infrastructure modules
		logger.Module,
		config.Module,
		database.Module,
		migrate.Module,
		server.Module,
		tracing.Module,

		// Auth module
		auth.Module,

		// LLM backend (google.golang.org/genai)
		llmprovider.Module,

		// Component C: capability planner and executor
		capabilities.Module,

		// Component D: agent invocation layer (prompt assembly + LLM calls)
		agentinvoke.Module,

		// Hard-isolated learning store (write path only; domain/learning/readapi
		// is reached exclusively by cmd/learning-inspect)
		learning.Module,

		// Component E: the workflow engine itself
		workflow.Module,

		// Tool-invocation trace store
		tit.Module,

		// Durable event stream + SSE fan-out
		events.Module,

		// Session API HTTP façade (§6)
		session.Module,

		// Poll-loop driver for workflow.Engine.Advance + stale-session recovery
		scheduler.Module,

		// Health, readiness, and /metrics
		health.Module,

		// Run pending migrations against both databases before serving traffic
		fx.Invoke(runMigrations),
	).Run()
}

type migrateParams struct {
	fx.In
	Orchestrator *migrate.Migrator `name:"orchestrator"`
	Learning     *migrate.Migrator `name:"learning"`
}

func runMigrations(lc fx.Lifecycle, p migrateParams) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := p.Orchestrator.Up(ctx); err != nil {
				return err
			}
			return p.Learning.Up(ctx)
		},
	})
}
