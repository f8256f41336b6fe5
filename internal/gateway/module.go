package gateway

import "go.uber.org/fx"

// Module provides the gateway Service
var Module = fx.Module("gateway",
	fx.Provide(
		fx.Annotate(
			NewClient,
			fx.As(new(Service)),
		),
	),
)
