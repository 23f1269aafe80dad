package mw

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"

	"eventtrack-api/internal/redisx"
)

var fixedWindow = redis.NewScript(`
local current = redis.call('INCR', KEYS[1])
if current == 1 then redis.call('PEXPIRE', KEYS[1], ARGV[1]) end
return current`)

// RateLimitKey buckets ingestion traffic by API key and client IP, or by
// account for authenticated management calls.
func RateLimitKey(c *fiber.Ctx) string {
	if id := AccountID(c); id != "" {
		return "acct:" + id
	}
	return fmt.Sprintf("key:%s|ip:%s", c.Get(HeaderAPIKey), c.IP())
}

// RateLimit allows limit requests per window per key. It counts in Redis when
// rdb is set and falls back to fiber's in-memory limiter otherwise. Redis
// errors let the request through.
func RateLimit(rdb *redisx.Client, windowSec, limit int) fiber.Handler {
	if limit <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	if rdb == nil {
		return limiter.New(limiter.Config{
			Max:          limit,
			Expiration:   time.Duration(windowSec) * time.Second,
			KeyGenerator: RateLimitKey,
			LimitReached: func(_ *fiber.Ctx) error {
				return fiber.NewError(fiber.StatusTooManyRequests, "rate limit exceeded")
			},
		})
	}
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), 200*time.Millisecond)
		defer cancel()
		n, err := fixedWindow.Run(ctx, rdb, []string{"rl:" + RateLimitKey(c)}, int64(windowSec)*1000).Int64()
		if err != nil {
			return c.Next()
		}
		c.Set("X-RateLimit-Limit", fmt.Sprint(limit))
		c.Set("X-RateLimit-Remaining", fmt.Sprint(lo.Max([]int64{0, int64(limit) - n})))
		if n > int64(limit) {
			c.Set(fiber.HeaderRetryAfter, fmt.Sprint(windowSec))
			return fiber.NewError(fiber.StatusTooManyRequests, "rate limit exceeded")
		}
		return c.Next()
	}
}
