// Package admincache caches ToolDispatcher's two most frequent platform
// round trips — "is the bot admin in chat X" and get_user_info lookups —
// behind a Redis TTL, so a burst of admin-gated tool calls in one
// debounce fire does not each pay a Telegram API round trip. This is
// metadata cache, not the chat-history persistence spec.md's Non-goals
// exclude. Grounded on sources/throttler/throttler.go's SetNX/TTL idiom,
// generalized from a boolean throttle into a value cache via GET/SETEX.
package admincache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"claudir/sources/chatplatform"
	"claudir/sources/platform"
	"claudir/sources/tracing"

	"github.com/redis/go-redis/v9"
)

const (
	adminTTL    = 5 * time.Minute
	userInfoTTL = 30 * time.Minute
)

// Cache wraps a ChatPlatform, memoizing its admin-roster and user-info
// lookups. It embeds no ChatPlatform methods beyond the two it caches;
// callers reach the rest of ChatPlatform directly.
type Cache struct {
	client   *redis.Client
	platform chatplatform.ChatPlatform
	log      *tracing.Logger
}

func New(client *redis.Client, platform chatplatform.ChatPlatform, log *tracing.Logger) *Cache {
	return &Cache{client: client, platform: platform, log: log}
}

// IsAdmin reports whether user is one of chat's administrators. A Redis
// error degrades to an uncached platform call rather than failing the
// tool dispatch outright.
func (c *Cache) IsAdmin(ctx context.Context, chat platform.ChatID, user platform.UserID) (bool, error) {
	key := fmt.Sprintf("admincache:admins:%d", chat)

	if cached, err := c.client.Get(ctx, key).Result(); err == nil {
		var admins []platform.UserID
		if jsonErr := json.Unmarshal([]byte(cached), &admins); jsonErr == nil {
			return containsUser(admins, user), nil
		}
	} else if err != redis.Nil {
		c.log.W("admincache: redis read failed, falling through to platform", tracing.InnerError, err)
	}

	admins, err := c.platform.GetChatAdministrators(ctx, chat)
	if err != nil {
		return false, err
	}

	if encoded, err := json.Marshal(admins); err == nil {
		if err := c.client.Set(ctx, key, encoded, adminTTL).Err(); err != nil {
			c.log.W("admincache: redis write failed", tracing.InnerError, err)
		}
	}

	return containsUser(admins, user), nil
}

// UserInfo memoizes get_user_info lookups, keyed by user id alone since
// Telegram user profiles are not chat-scoped.
func (c *Cache) UserInfo(ctx context.Context, user platform.UserID) (chatplatform.UserInfo, error) {
	key := fmt.Sprintf("admincache:userinfo:%d", user)

	if cached, err := c.client.Get(ctx, key).Result(); err == nil {
		var info chatplatform.UserInfo
		if jsonErr := json.Unmarshal([]byte(cached), &info); jsonErr == nil {
			return info, nil
		}
	} else if err != redis.Nil {
		c.log.W("admincache: redis read failed, falling through to platform", tracing.InnerError, err)
	}

	info, err := c.platform.GetUserInfo(ctx, user)
	if err != nil {
		return chatplatform.UserInfo{}, err
	}

	if encoded, err := json.Marshal(info); err == nil {
		if err := c.client.Set(ctx, key, encoded, userInfoTTL).Err(); err != nil {
			c.log.W("admincache: redis write failed", tracing.InnerError, err)
		}
	}

	return info, nil
}

func containsUser(users []platform.UserID, target platform.UserID) bool {
	for _, u := range users {
		if u == target {
			return true
		}
	}
	return false
}
