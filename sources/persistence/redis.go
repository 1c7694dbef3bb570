package persistence

import (
	"strconv"

	"claudir/sources/configuration"
	"claudir/sources/tracing"

	"github.com/redis/go-redis/v9"
)

// NewRedis builds the shared client backing admincache and toolthrottle.
// MaxRetries is left at the go-redis default; claudir's RedisConfig has
// no knob for it since the teacher's own tuning was never exercised by
// anything but its default value.
func NewRedis(config *configuration.Config, log *tracing.Logger) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:                  config.Redis.Host + ":" + strconv.Itoa(config.Redis.Port),
		Password:              config.Redis.Password,
		DB:                    config.Redis.DB,
		DialTimeout:           config.Redis.DialTimeout,
		ContextTimeoutEnabled: true,
	})

	log.I("Redis client initialized successfully")
	return rdb
}
