// Package ratelimit implements a Redis-backed fixed-window request limiter,
// applied per source address regardless of actor role.
package ratelimit

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	apperrors "github.com/shaileshgontewar/crm-server/pkg/util"
)

// INCR and EXPIRE must run atomically so the window starts on the first hit.
const fixedWindowScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
    redis.call("EXPIRE", KEYS[1], ARGV[2])
end
if current > tonumber(ARGV[1]) then
    return 0
end
return 1
`

// Limiter counts requests per key within a fixed window.
type Limiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	logger *zap.Logger
}

// NewLimiter constructs a limiter.
func NewLimiter(client *redis.Client, limit int, window time.Duration, logger *zap.Logger) *Limiter {
	return &Limiter{client: client, limit: limit, window: window, logger: logger}
}

// Allow reports whether the key may proceed in the current window.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	result, err := l.client.Eval(ctx, fixedWindowScript,
		[]string{"ratelimit:" + key}, l.limit, int(l.window.Seconds())).Int()
	if err != nil {
		return false, err
	}
	return result == 1, nil
}

// Middleware enforces the limit per client IP. When Redis is unreachable the
// limiter fails open: availability of the API does not depend on it.
func (l *Limiter) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		allowed, err := l.Allow(c.UserContext(), c.IP())
		if err != nil {
			l.logger.Warn("rate limiter unavailable", zap.Error(err))
			return c.Next()
		}
		if !allowed {
			return apperrors.NewDomainError("RATE_LIMITED",
				"Too many requests from this IP, please try again later.",
				fiber.StatusTooManyRequests, nil)
		}
		return c.Next()
	}
}
