package toolthrottle

import (
	"time"

	"claudir/sources/tracing"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

var Module = fx.Module("toolthrottle",
	fx.Provide(func(client *redis.Client, log *tracing.Logger) *Throttle {
		return New(client, time.Minute, log)
	}),
)
