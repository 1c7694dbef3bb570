package supervisor

import (
	"context"

	"claudir/sources/tracing"

	"go.uber.org/fx"
)

var Module = fx.Module("supervisor",
	fx.Provide(New),

	fx.Invoke(func(lc fx.Lifecycle, s *Supervisor, log *tracing.Logger) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				s.Start()
				log.I("supervisor started")
				return nil
			},
			OnStop: func(ctx context.Context) error {
				s.Stop()
				log.I("supervisor stopped")
				return nil
			},
		})
	}),
)
