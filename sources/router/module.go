package router

import (
	"context"

	"claudir/sources/tracing"

	"go.uber.org/fx"
)

var Module = fx.Module("router",
	fx.Provide(New),

	fx.Invoke(func(lc fx.Lifecycle, r *Router, log *tracing.Logger) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				go r.Run(context.Background())
				log.I("router started")
				return nil
			},
		})
	}),
)
