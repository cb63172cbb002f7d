package tit

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/emergent-company/codeforge/internal/config"
)

// Module provides the tool invocation trace's repository and recorder.
var Module = fx.Module("tit",
	fx.Provide(
		NewRepository,
		provideRecorder,
	),
)

func provideRecorder(repo *Repository, log *slog.Logger, cfg *config.Config) *Recorder {
	return NewRecorder(repo, log, cfg.Workflow.TITEnabled)
}
