package agentinvoke

import (
	"go.uber.org/fx"

	"github.com/emergent-company/codeforge/domain/capabilities"
)

// Module provides the prompt assembler and the invoker, and binds the
// invoker into capabilities.SubAgentInvoker so component C's executor
// can reach component D without either package importing the other's
// concrete types.
var Module = fx.Module("agentinvoke",
	fx.Provide(
		NewAssembler,
		fx.Annotate(
			NewInvoker,
			fx.As(new(*Invoker)),
			fx.As(new(capabilities.SubAgentInvoker)),
		),
	),
)
