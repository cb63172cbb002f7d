package session

import (
	"go.uber.org/fx"
)

// Module provides the Session API's HTTP handler and routes.
var Module = fx.Module("session",
	fx.Provide(
		NewHandler,
	),
	fx.Invoke(RegisterRoutes),
)
