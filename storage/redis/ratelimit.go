package redisstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter is a fixed-window request counter keyed by an arbitrary string
// (client IP in the HTTP adapter). This is transport abuse protection; the
// per-phone send budget is enforced separately by the identity core.
type RateLimiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
}

func NewRateLimiter(rdb *redis.Client, limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 30
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{rdb: rdb, limit: limit, window: window}
}

// Allow increments the counter for the key and reports whether the request
// fits in the current window. Fails open on Redis errors.
func (r *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	fullKey := "identitykit:ratelimit:" + key
	n, err := r.rdb.Incr(ctx, fullKey).Result()
	if err != nil {
		return true, err
	}
	if n == 1 {
		if err := r.rdb.Expire(ctx, fullKey, r.window).Err(); err != nil {
			return true, err
		}
	}
	return n <= int64(r.limit), nil
}
