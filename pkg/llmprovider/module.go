package llmprovider

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/emergent-company/codeforge/internal/config"
)

// Module provides the Provider interface backed by GenAIProvider.
var Module = fx.Module("llmprovider",
	fx.Provide(
		fx.Annotate(
			provideGenAIProvider,
			fx.As(new(Provider)),
		),
	),
)

func provideGenAIProvider(lc fx.Lifecycle, cfg *config.Config, log *slog.Logger) (*GenAIProvider, error) {
	ctx := context.Background()
	return NewGenAIProvider(ctx, &cfg.LLM, log)
}
