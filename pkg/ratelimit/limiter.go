// Package ratelimit implements a fixed-window request counter per key.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"chatbot-billing-be/internal/pkg/logger"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

type Decision struct {
	Allowed bool
	Count   int64
	Limit   int
	ResetIn time.Duration
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

func windowKey(prefix, key string, now time.Time, window time.Duration) (string, time.Duration) {
	start := now.Truncate(window)
	return fmt.Sprintf("%s:%s:%d", prefix, key, start.Unix()), start.Add(window).Sub(now)
}

// MemoryLimiter counts in process. Counts are not shared between instances.
type MemoryLimiter struct {
	cache  *cache.Cache
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		cache:  cache.New(window, 2*window),
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

func (l *MemoryLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	k, resetIn := windowKey("ratelimit", key, l.now(), l.window)

	// Add fails when the window already exists; the increment below covers both cases.
	_ = l.cache.Add(k, int64(0), l.window)
	count, err := l.cache.IncrementInt64(k, 1)
	if err != nil {
		return Decision{}, err
	}

	return Decision{
		Allowed: count <= int64(l.limit),
		Count:   count,
		Limit:   l.limit,
		ResetIn: resetIn,
	}, nil
}

// RedisLimiter shares counts through Redis and falls back to an in-process
// limiter while Redis is unreachable.
type RedisLimiter struct {
	rdb      redis.UniversalClient
	limit    int
	window   time.Duration
	fallback *MemoryLimiter
	logger   logger.ILogger
	now      func() time.Time
}

func NewRedisLimiter(rdb redis.UniversalClient, limit int, window time.Duration, log logger.ILogger) *RedisLimiter {
	return &RedisLimiter{
		rdb:      rdb,
		limit:    limit,
		window:   window,
		fallback: NewMemoryLimiter(limit, window),
		logger:   log,
		now:      time.Now,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	if l.rdb == nil {
		return l.fallback.Allow(ctx, key)
	}

	k, resetIn := windowKey("ratelimit", key, l.now(), l.window)

	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		l.logger.Warn("RATE_LIMIT", "Redis unavailable, using in-process limiter", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return l.fallback.Allow(ctx, key)
	}

	count := incr.Val()
	return Decision{
		Allowed: count <= int64(l.limit),
		Count:   count,
		Limit:   l.limit,
		ResetIn: resetIn,
	}, nil
}
