package admincache

import "go.uber.org/fx"

var Module = fx.Module("admincache",
	fx.Provide(New),
)
