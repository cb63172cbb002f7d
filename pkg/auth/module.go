package auth

import (
	"go.uber.org/fx"
)

// Module provides the auth middleware against the operational store's
// bun.IDB — user profiles and API tokens are operational data, not
// learning-store data, so this never needs the named learning instance.
var Module = fx.Module("auth",
	fx.Provide(
		NewUserProfileService,
		NewMiddleware,
	),
)
