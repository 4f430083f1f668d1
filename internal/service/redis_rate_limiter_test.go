package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRedisLimiter(t *testing.T) (*RedisRateLimiter, *miniredis.Miniredis, *testClock) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	clock := newTestClock()
	return NewRedisRateLimiter(client, zap.NewNop()).WithClock(clock.Now), mr, clock
}

func TestRedisRateLimiter_DeniesOverLimit(t *testing.T) {
	limiter, _, clock := newTestRedisLimiter(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		allowed, _ := limiter.Allow(ctx, "auth:1.2.3.4", 5, time.Minute)
		require.True(t, allowed, "request %d", i+1)
		clock.Advance(time.Second)
	}

	allowed, retryAfter := limiter.Allow(ctx, "auth:1.2.3.4", 5, time.Minute)
	assert.False(t, allowed)
	assert.Equal(t, 55, retryAfter)
}

func TestRedisRateLimiter_WindowSlides(t *testing.T) {
	limiter, _, clock := newTestRedisLimiter(t)
	ctx := context.Background()

	allowed, _ := limiter.Allow(ctx, "k", 1, time.Minute)
	require.True(t, allowed)
	allowed, _ = limiter.Allow(ctx, "k", 1, time.Minute)
	require.False(t, allowed)

	clock.Advance(time.Minute)
	allowed, _ = limiter.Allow(ctx, "k", 1, time.Minute)
	assert.True(t, allowed)
}

func TestRedisRateLimiter_SetsExpiry(t *testing.T) {
	limiter, mr, _ := newTestRedisLimiter(t)

	allowed, _ := limiter.Allow(context.Background(), "k", 3, time.Minute)
	require.True(t, allowed)

	assert.True(t, mr.Exists("ratelimit:k"))
	assert.Equal(t, time.Minute, mr.TTL("ratelimit:k"))
}

func TestRedisRateLimiter_FailsOpen(t *testing.T) {
	limiter, mr, _ := newTestRedisLimiter(t)
	mr.Close()

	allowed, retryAfter := limiter.Allow(context.Background(), "k", 0, time.Minute)
	assert.True(t, allowed)
	assert.Zero(t, retryAfter)
}
