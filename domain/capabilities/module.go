package capabilities

import (
	"log/slog"

	"github.com/uptrace/bun"
	"go.uber.org/fx"

	"github.com/emergent-company/codeforge/domain/tit"
)

// Module provides the planner and executor. The built-in tool registry
// is provided here too, parameterized on whatever SubAgentInvoker the
// agent invocation layer (component D) supplies via fx.Annotate in its
// own module.
var Module = fx.Module("capabilities",
	fx.Provide(
		NewPlanner,
		provideExecutor,
	),
)

func provideExecutor(subAgent SubAgentInvoker, db bun.IDB, recorder *tit.Recorder, log *slog.Logger) *Executor {
	tools := NewBuiltinRegistry(subAgent, db)
	return NewExecutor(tools, recorder, log)
}
