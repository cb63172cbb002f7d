package events

import (
	"go.uber.org/fx"

	"github.com/emergent-company/codeforge/domain/workflow"
)

// Module provides the durable event stream and binds it into
// workflow.EventPublisher so the engine can publish without importing
// this package — the same reversed-direction binding used for
// domain/capabilities' SubAgentInvoker and domain/agentinvoke's
// StepInputProvider.
// Module provides the durable event stream and its SSE Handler.
// Routing is owned by domain/session, which mounts Handler.Stream
// under the same authenticated /sessions group as the rest of the
// Session API, rather than this package registering its own route.
var Module = fx.Module("events",
	fx.Provide(
		NewRepository,
		NewService,
		func(s *Service) workflow.EventPublisher { return s },
		NewHandler,
	),
)
