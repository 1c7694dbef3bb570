// Package toolthrottle rate-limits ToolDispatcher's web_search calls per
// chat, so a chatty conversation cannot spend the external search
// provider's quota in a single burst. Grounded on
// sources/throttler/throttler.go's SetNX-as-rate-limit idiom.
package toolthrottle

import (
	"context"
	"fmt"
	"time"

	"claudir/sources/platform"
	"claudir/sources/tracing"

	"github.com/redis/go-redis/v9"
)

// Throttle gates web_search: at most one call per chat per window.
type Throttle struct {
	client *redis.Client
	window time.Duration
	log    *tracing.Logger
}

func New(client *redis.Client, window time.Duration, log *tracing.Logger) *Throttle {
	if window <= 0 {
		window = time.Minute
	}
	return &Throttle{client: client, window: window, log: log}
}

// Allow reports whether chat may issue a web_search call now. A Redis
// error fails open, matching throttler.go's "unknown means allowed"
// policy rather than blocking a tool call on cache unavailability.
func (t *Throttle) Allow(ctx context.Context, chat platform.ChatID) bool {
	key := fmt.Sprintf("toolthrottle:web_search:%d", chat)

	allowed, err := t.client.SetNX(ctx, key, time.Now().Unix(), t.window).Result()
	if err != nil {
		t.log.W("toolthrottle: redis error, failing open", tracing.InnerError, err)
		return true
	}

	return allowed
}
