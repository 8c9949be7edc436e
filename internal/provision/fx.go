package provision

import "go.uber.org/fx"

var Module = fx.Module("provision",
	fx.Provide(New),
)
