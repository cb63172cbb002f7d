package learning

import "go.uber.org/fx"

// Module provides the learning store's write-only Repository. It
// deliberately does not provide anything resembling a query/finder type;
// see domain/learning/readapi for the offline read path. The repository
// is bound to the learning store's own named bun.IDB
// (internal/database.NewLearningBunDB), never the operational one.
var Module = fx.Module("learning",
	fx.Provide(
		fx.Annotate(
			NewRepository,
			fx.ParamTags(`name:"learning"`, ""),
		),
	),
)
