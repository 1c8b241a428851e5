package ratelimit

import (
	"context"
	"testing"
	"time"

	"chatbot-billing-be/internal/pkg/logger"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter_FixedWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 6, 1, 10, 0, 5, 0, time.UTC)
	l := NewMemoryLimiter(3, time.Minute)
	l.now = func() time.Time { return now }

	for i := 1; i <= 3; i++ {
		d, err := l.Allow(ctx, "bot:1")
		require.NoError(t, err)
		assert.True(t, d.Allowed, "request %d", i)
		assert.Equal(t, int64(i), d.Count)
	}

	d, err := l.Allow(ctx, "bot:1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 55*time.Second, d.ResetIn)

	other, err := l.Allow(ctx, "bot:2")
	require.NoError(t, err)
	assert.True(t, other.Allowed)

	now = now.Add(time.Minute)
	d, err = l.Allow(ctx, "bot:1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, int64(1), d.Count)
}

func TestRedisLimiter_FallsBackWhenUnreachable(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })

	l := NewRedisLimiter(rdb, 2, time.Minute, logger.NewNopLogger())
	fixed := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return fixed }
	l.fallback.now = l.now
	ctx := context.Background()

	first, err := l.Allow(ctx, "bot:9")
	require.NoError(t, err)
	assert.True(t, first.Allowed)

	_, err = l.Allow(ctx, "bot:9")
	require.NoError(t, err)

	third, err := l.Allow(ctx, "bot:9")
	require.NoError(t, err)
	assert.False(t, third.Allowed)
	assert.Equal(t, 2, third.Limit)
}

func TestRedisLimiter_NilClient(t *testing.T) {
	l := NewRedisLimiter(nil, 1, time.Minute, logger.NewNopLogger())
	d, err := l.Allow(context.Background(), "bot:1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}
