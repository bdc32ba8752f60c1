package ratelimit

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "rate_limit:chat:"

// Result reports whether a request may proceed and, when limited by an
// identity key, how much budget remains in the current window.
type Result struct {
	Allowed   bool
	Remaining int
}

// FixedWindowLimiter counts requests per identity within a fixed window,
// backed by Redis. On Redis failures it fails open: availability is
// prioritized over strict enforcement.
type FixedWindowLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// NewFixedWindowLimiter builds a limiter on an existing Redis client.
func NewFixedWindowLimiter(client *redis.Client, limit int, window time.Duration) (*FixedWindowLimiter, error) {
	if client == nil {
		return nil, errors.New("rate limiter requires a redis client")
	}
	if limit <= 0 || window <= 0 {
		return nil, errors.New("rate limiter requires positive limit and window")
	}
	return &FixedWindowLimiter{client: client, limit: limit, window: window}, nil
}

// Check increments the identity's counter and reports the verdict. Requests
// without an identity are always allowed: there is no IP fallback keying.
func (l *FixedWindowLimiter) Check(ctx context.Context, identity string) Result {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return Result{Allowed: true, Remaining: l.limit}
	}
	key := keyPrefix + identity

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		slog.Warn("rate limit check failed, allowing request", "err", err)
		return Result{Allowed: true, Remaining: l.limit}
	}

	// Self-repair: a counter left without an expiry would never reset, so a
	// missing TTL gets the window (re)installed.
	ttl, err := l.client.TTL(ctx, key).Result()
	if err == nil && ttl < 0 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			slog.Warn("rate limit expiry install failed", "err", err)
		}
	}

	if count > int64(l.limit) {
		return Result{Allowed: false, Remaining: 0}
	}
	remaining := l.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Result{Allowed: true, Remaining: remaining}
}
