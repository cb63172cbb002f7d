package scheduler

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/emergent-company/codeforge/domain/workflow"
	"github.com/emergent-company/codeforge/internal/config"
)

// Module provides the poll-loop driver behind workflow.Engine.Advance
// and the stale-session recovery task.
var Module = fx.Module("scheduler",
	fx.Provide(
		provideConfig,
		NewScheduler,
		NewAdvanceTask,
		provideStaleSessionRecoveryTask,
	),
	fx.Invoke(
		RegisterTasks,
		RegisterSchedulerLifecycle,
	),
)

// provideConfig pulls StaleSessionAfter out of the shared
// *config.Config instead of requiring a bare time.Duration in the
// container, which would be ambiguous against any other duration some
// other package might provide.
func provideConfig(cfg *config.Config) *Config {
	return NewConfig(cfg.Workflow.StaleSessionAfter)
}

func provideStaleSessionRecoveryTask(engine *workflow.Engine, cfg *Config, log *slog.Logger) *StaleSessionRecoveryTask {
	return NewStaleSessionRecoveryTask(engine, cfg.StaleSessionAfter, log)
}

// TaskParams contains dependencies for registering scheduled tasks.
type TaskParams struct {
	fx.In
	Scheduler   *Scheduler
	Log         *slog.Logger
	Cfg         *Config
	Advance     *AdvanceTask
	StaleRecover *StaleSessionRecoveryTask
}

// RegisterTasks registers the poll-loop and stale-session recovery tasks.
func RegisterTasks(p TaskParams) error {
	if !p.Cfg.Enabled {
		p.Log.Info("scheduler disabled, skipping task registration")
		return nil
	}

	if err := p.Scheduler.AddIntervalTask("workflow_advance", p.Cfg.AdvanceInterval, p.Advance.Run); err != nil {
		p.Log.Error("failed to register workflow advance task", slog.String("error", err.Error()))
	}

	if err := p.Scheduler.AddIntervalTask("stale_session_recovery", p.Cfg.StaleSessionRecoveryInterval, p.StaleRecover.Run); err != nil {
		p.Log.Error("failed to register stale session recovery task", slog.String("error", err.Error()))
	}

	p.Log.Info("registered scheduled tasks", slog.Any("tasks", p.Scheduler.ListTasks()))
	return nil
}

// RegisterSchedulerLifecycle registers the scheduler with fx lifecycle.
func RegisterSchedulerLifecycle(lc fx.Lifecycle, scheduler *Scheduler, cfg *Config) {
	if !cfg.Enabled {
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return scheduler.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return scheduler.Stop(ctx)
		},
	})
}
