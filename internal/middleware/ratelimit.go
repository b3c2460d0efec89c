package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy picks what happens to a request when the limiter's Redis
// backend cannot be reached.
type FailPolicy int

const (
	// FailOpen lets the request through.
	FailOpen FailPolicy = iota
	// FailClosed answers 503 until the backend is reachable again.
	FailClosed
)

var errNoLimiterStore = errors.New("rate limiter has no redis client")

// limiterDisabled reports whether rate limiting is switched off for the
// current environment. Local, test, and load-test runs are never throttled.
func limiterDisabled() bool {
	switch os.Getenv("APP_ENV") {
	case "", "test", "development", "stress":
		return true
	}
	return false
}

// CheckRateLimit consumes one unit of an identity's budget for a resource
// and reports whether the request may proceed. Budgets are counters in
// Redis under rl:<resource>:<identity> with a window-long expiry.
func CheckRateLimit(ctx context.Context, rdb *redis.Client, resource, identity string, limit int, window time.Duration) (bool, error) {
	if limiterDisabled() {
		return true, nil
	}
	if rdb == nil {
		return false, errNoLimiterStore
	}

	key := fmt.Sprintf("rl:%s:%s", resource, identity)
	count, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		// First hit in a fresh window starts the clock.
		rdb.Expire(ctx, key, window)
	}
	return count <= int64(limit), nil
}

// RateLimit enforces limit requests per window per identity, keyed by the
// authenticated user when one is set in locals and by client IP otherwise.
// The optional name scopes the budget; without it the request path is the
// scope. Backend outages fail open.
func RateLimit(rdb *redis.Client, limit int, window time.Duration, name ...string) fiber.Handler {
	return RateLimitWithPolicy(rdb, limit, window, FailOpen, name...)
}

// RateLimitWithPolicy is RateLimit with an explicit backend-outage policy.
func RateLimitWithPolicy(rdb *redis.Client, limit int, window time.Duration, policy FailPolicy, name ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity := fmt.Sprintf("ip:%s", c.IP())
		if uid := c.Locals("userID"); uid != nil {
			identity = fmt.Sprintf("user:%v", uid)
		}

		resource := c.Path()
		if len(name) > 0 {
			resource = name[0]
		}

		allowed, err := CheckRateLimit(c.UserContext(), rdb, resource, identity, limit, window)
		switch {
		case err != nil && policy == FailClosed:
			Logger.Warn("rate limiter unavailable, failing closed",
				slog.String("resource", resource),
				slog.String("path", c.Path()),
				slog.String("error", err.Error()),
			)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "rate limit unavailable",
			})
		case err != nil:
			return c.Next()
		case !allowed:
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "rate limit exceeded",
			})
		}
		return c.Next()
	}
}
