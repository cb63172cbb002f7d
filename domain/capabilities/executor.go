package capabilities

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/emergent-company/codeforge/domain/tit"
	"github.com/emergent-company/codeforge/pkg/logger"
)

// StepFailure is raised by Execute when a required tool fails. The
// workflow engine decides whether to retry the step; the executor itself
// never retries.
type StepFailure struct {
	Step     string
	ToolName string
	Err      error
}

func (e *StepFailure) Error() string {
	return fmt.Sprintf("step %q: required tool %q failed: %v", e.Step, e.ToolName, e.Err)
}

func (e *StepFailure) Unwrap() error {
	return e.Err
}

// Executor runs a ToolPlan linearly: no loops, no retries, no
// self-healing, no reflection. Every call is recorded by the tool
// invocation trace regardless of outcome.
type Executor struct {
	tools    map[string]Tool
	recorder *tit.Recorder
	log      *slog.Logger
}

// NewExecutor constructs an Executor bound to a tool registry and the
// shared TIT recorder.
func NewExecutor(tools map[string]Tool, recorder *tit.Recorder, log *slog.Logger) *Executor {
	return &Executor{tools: tools, recorder: recorder, log: log.With(logger.Scope("capabilities"))}
}

// Execute runs plan's entries in order against session. It stops and
// returns *StepFailure on the first required-tool failure; non-required
// failures are logged and traced but do not stop the plan.
func (e *Executor) Execute(ctx context.Context, plan ToolPlan, session SessionContext) error {
	for _, invocation := range plan.Entries {
		tool, ok := e.tools[invocation.ToolName]
		if !ok {
			if invocation.Required {
				return &StepFailure{Step: plan.Step, ToolName: invocation.ToolName, Err: fmt.Errorf("tool not registered")}
			}
			e.log.Warn("skipping unregistered optional tool",
				slog.String("step", plan.Step),
				slog.String("tool", invocation.ToolName),
			)
			continue
		}

		result, err := e.recorder.Wrap(ctx, session.SessionID, plan.Step, tit.BoundaryCapability, invocation.ToolName, invocation.Args, func() (any, error) {
			return tool.Invoke(ctx, invocation.Args)
		})

		if err != nil {
			if invocation.Required {
				return &StepFailure{Step: plan.Step, ToolName: invocation.ToolName, Err: err}
			}
			e.log.Warn("optional tool failed, continuing",
				slog.String("step", plan.Step),
				slog.String("tool", invocation.ToolName),
				logger.Error(err),
			)
			continue
		}

		_ = result
	}

	return nil
}
