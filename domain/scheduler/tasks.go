package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/emergent-company/codeforge/domain/workflow"
	"github.com/emergent-company/codeforge/pkg/logger"
)

// AdvanceTask drives the workflow engine: every tick it lists the
// sessions currently in status=running and calls Advance on each once,
// realizing the §4.1 poll-loop driver the engine's own Advance doc
// comment describes.
type AdvanceTask struct {
	engine *workflow.Engine
	log    *slog.Logger
}

// NewAdvanceTask constructs an AdvanceTask.
func NewAdvanceTask(engine *workflow.Engine, log *slog.Logger) *AdvanceTask {
	return &AdvanceTask{engine: engine, log: log.With(logger.Scope("scheduler.advance"))}
}

// Run advances every running session by one step.
func (t *AdvanceTask) Run(ctx context.Context) error {
	ids, err := t.engine.RunningSessionIDs(ctx)
	if err != nil {
		return fmt.Errorf("list running sessions: %w", err)
	}
	workflow.SetRunningSessions(len(ids))

	for _, id := range ids {
		if _, err := t.engine.Advance(ctx, id); err != nil {
			t.log.Warn("advance failed for session, will retry next tick",
				slog.String("session_id", id), slog.String("error", err.Error()))
		}
	}
	return nil
}

// StaleSessionRecoveryTask requeues sessions stuck in status=running with
// no step transition past a threshold — the driver process that last
// called Advance on them died before persisting the next transition.
type StaleSessionRecoveryTask struct {
	engine     *workflow.Engine
	staleAfter time.Duration
	log        *slog.Logger
}

// NewStaleSessionRecoveryTask constructs a StaleSessionRecoveryTask.
func NewStaleSessionRecoveryTask(engine *workflow.Engine, staleAfter time.Duration, log *slog.Logger) *StaleSessionRecoveryTask {
	return &StaleSessionRecoveryTask{
		engine:     engine,
		staleAfter: staleAfter,
		log:        log.With(logger.Scope("scheduler.stale_session_recovery")),
	}
}

// Run recovers stale sessions.
func (t *StaleSessionRecoveryTask) Run(ctx context.Context) error {
	n, err := t.engine.RecoverStale(ctx, t.staleAfter)
	if err != nil {
		return fmt.Errorf("recover stale sessions: %w", err)
	}
	for i := 0; i < n; i++ {
		workflow.RecordStaleSessionRecovered()
	}
	if n > 0 {
		t.log.Info("recovered stale sessions", slog.Int("count", n))
	}
	return nil
}
