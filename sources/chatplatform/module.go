package chatplatform

import (
	"context"

	"claudir/sources/tracing"

	"go.uber.org/fx"
)

var Module = fx.Module("chatplatform",
	fx.Provide(
		NewBotAPI,
		NewTelegramPlatform,
		NewPoller,
		func(p *TelegramPlatform) ChatPlatform { return p },
	),

	fx.Invoke(func(lc fx.Lifecycle, poller *Poller, log *tracing.Logger) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				go poller.Start()
				log.I("telegram poller started")
				return nil
			},
			OnStop: func(ctx context.Context) error {
				poller.Stop()
				log.I("telegram poller stopped")
				return nil
			},
		})
	}),
)
