// Package migrate provides database migration functionality using Goose,
// one Migrator per physically distinct database (operational, learning).
package migrate

import (
	"context"
	"embed"
	"fmt"
	"log/slog"

	"github.com/pressly/goose/v3"
	"github.com/uptrace/bun"
	"go.uber.org/fx"

	"github.com/emergent-company/codeforge/migrations"
	"github.com/emergent-company/codeforge/pkg/logger"
)

// Module provides both migrators, named so callers (cmd/server/main.go)
// can request the one they need without either shadowing the other.
var Module = fx.Module("migrate",
	fx.Provide(
		fx.Annotate(
			NewOrchestratorMigrator,
			fx.ResultTags(`name:"orchestrator"`),
		),
		fx.Annotate(
			NewLearningMigrator,
			fx.ParamTags(`name:"learning"`, ""),
			fx.ResultTags(`name:"learning"`),
		),
	),
)

// Migrator runs goose migrations for one database, against one embedded
// SQL set and one dialect-set directory name (goose tracks applied
// versions per call to goose.*Context, keyed by the dir argument it's
// given, so the two Migrators never see each other's version table).
type Migrator struct {
	db   *bun.DB
	fs   embed.FS
	dir  string
	log  *slog.Logger
}

// NewOrchestratorMigrator builds the Migrator for the operational store.
func NewOrchestratorMigrator(db *bun.DB, log *slog.Logger) *Migrator {
	return &Migrator{db: db, fs: migrations.OrchestratorFS, dir: "orchestrator", log: log.With(logger.Scope("migrate.orchestrator"))}
}

// NewLearningMigrator builds the Migrator for the hard-isolated learning
// store. db must come from the named learning bun.DB instance
// (internal/database.NewLearningBunDB), never the operational one.
func NewLearningMigrator(db *bun.DB, log *slog.Logger) *Migrator {
	return &Migrator{db: db, fs: migrations.LearningFS, dir: "learning", log: log.With(logger.Scope("migrate.learning"))}
}

// Up runs all pending migrations.
func (m *Migrator) Up(ctx context.Context) error {
	m.log.Info("running database migrations")

	goose.SetBaseFS(m.fs)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, m.db.DB, m.dir); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	m.log.Info("migrations completed successfully")
	return nil
}

// Down rolls back the last migration.
func (m *Migrator) Down(ctx context.Context) error {
	goose.SetBaseFS(m.fs)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.DownContext(ctx, m.db.DB, m.dir); err != nil {
		return fmt.Errorf("rollback migration: %w", err)
	}
	m.log.Info("rollback completed successfully")
	return nil
}

// Status logs the current migration status.
func (m *Migrator) Status(ctx context.Context) error {
	goose.SetBaseFS(m.fs)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.StatusContext(ctx, m.db.DB, m.dir); err != nil {
		return fmt.Errorf("get migration status: %w", err)
	}
	return nil
}

// Version returns the current database version.
func (m *Migrator) Version(ctx context.Context) (int64, error) {
	goose.SetBaseFS(m.fs)
	if err := goose.SetDialect("postgres"); err != nil {
		return 0, fmt.Errorf("set dialect: %w", err)
	}
	version, err := goose.GetDBVersionContext(ctx, m.db.DB)
	if err != nil {
		return 0, fmt.Errorf("get version: %w", err)
	}
	return version, nil
}
