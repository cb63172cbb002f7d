package workflow

import (
	"github.com/uptrace/bun"
	"go.uber.org/fx"

	"github.com/emergent-company/codeforge/domain/agentinvoke"
	"github.com/emergent-company/codeforge/internal/config"
	"github.com/emergent-company/codeforge/pkg/llmprovider"
)

// Module provides the workflow engine and binds SessionReader into
// agentinvoke.StepInputProvider, the reverse direction of the same
// consumer-declares-interface wiring component C uses to reach component
// D: domain/agentinvoke declares the interface, domain/workflow
// implements it, and fx.As ties them together without either package
// importing the other's concrete type. SessionReader, not Engine, is
// bound here — Engine depends on *agentinvoke.Invoker, and Invoker
// depends on StepInputProvider, so the interface has to be satisfied by
// something Invoker's construction doesn't wait on Engine for.
var Module = fx.Module("workflow",
	fx.Provide(
		NewRepository,
		provideCatalog,
		provideArtifactStore,
		provideSupervisor,
		fx.Annotate(
			NewSessionReader,
			fx.As(new(agentinvoke.StepInputProvider)),
		),
		NewEngine,
	),
)

func provideCatalog(cfg *config.Config) (*Catalog, error) {
	return LoadCatalog(cfg.Workflow.StepCatalogPath)
}

func provideArtifactStore(db bun.IDB) *ArtifactStore {
	return NewArtifactStore(db)
}

func provideSupervisor(provider llmprovider.Provider, cfg *config.Config) *Supervisor {
	return NewSupervisor(provider, cfg.LLM.Model)
}
