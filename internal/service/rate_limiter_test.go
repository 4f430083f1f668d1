package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestMemoryRateLimiter_DeniesOverLimit(t *testing.T) {
	clock := newTestClock()
	limiter := NewMemoryRateLimiter().WithClock(clock.Now)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		allowed, _ := limiter.Allow(ctx, "auth:1.2.3.4", 5, time.Minute)
		require.True(t, allowed, "request %d", i+1)
		clock.Advance(time.Second)
	}

	allowed, retryAfter := limiter.Allow(ctx, "auth:1.2.3.4", 5, time.Minute)
	assert.False(t, allowed)
	// first request was 5s ago
	assert.Equal(t, 55, retryAfter)
}

func TestMemoryRateLimiter_WindowSlides(t *testing.T) {
	clock := newTestClock()
	limiter := NewMemoryRateLimiter().WithClock(clock.Now)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, _ := limiter.Allow(ctx, "k", 3, time.Minute)
		require.True(t, allowed)
	}
	allowed, _ := limiter.Allow(ctx, "k", 3, time.Minute)
	require.False(t, allowed)

	clock.Advance(time.Minute)
	allowed, _ = limiter.Allow(ctx, "k", 3, time.Minute)
	assert.True(t, allowed)
}

func TestMemoryRateLimiter_SpacedRequestsNeverDenied(t *testing.T) {
	clock := newTestClock()
	limiter := NewMemoryRateLimiter().WithClock(clock.Now)

	for i := 0; i < 20; i++ {
		allowed, _ := limiter.Allow(context.Background(), "k", 1, time.Minute)
		require.True(t, allowed, "request %d", i+1)
		clock.Advance(time.Minute + time.Millisecond)
	}
}

func TestMemoryRateLimiter_KeysAreIndependent(t *testing.T) {
	limiter := NewMemoryRateLimiter()
	ctx := context.Background()

	allowed, _ := limiter.Allow(ctx, "auth:a", 1, time.Minute)
	require.True(t, allowed)
	allowed, _ = limiter.Allow(ctx, "auth:a", 1, time.Minute)
	require.False(t, allowed)

	allowed, _ = limiter.Allow(ctx, "auth:b", 1, time.Minute)
	assert.True(t, allowed)
	allowed, _ = limiter.Allow(ctx, "reset:a", 1, time.Minute)
	assert.True(t, allowed)
}

func TestMemoryRateLimiter_ZeroLimit(t *testing.T) {
	limiter := NewMemoryRateLimiter()

	allowed, retryAfter := limiter.Allow(context.Background(), "k", 0, 30*time.Second)
	assert.False(t, allowed)
	assert.Equal(t, 30, retryAfter)
}

func TestMemoryRateLimiter_ConcurrentCallersShareBudget(t *testing.T) {
	limiter := NewMemoryRateLimiter()
	ctx := context.Background()

	var allowedCount atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := limiter.Allow(ctx, "shared", 10, time.Minute); ok {
				allowedCount.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(10), allowedCount.Load())
}

func TestMemoryRateLimiter_Prune(t *testing.T) {
	clock := newTestClock()
	limiter := NewMemoryRateLimiter().WithClock(clock.Now)
	ctx := context.Background()

	limiter.Allow(ctx, "old", 1, time.Minute)
	clock.Advance(2 * time.Hour)
	limiter.Allow(ctx, "fresh", 1, time.Minute)

	assert.Equal(t, 1, limiter.Prune(time.Hour))

	// the pruned key starts over
	allowed, _ := limiter.Allow(ctx, "old", 1, time.Minute)
	assert.True(t, allowed)
	allowed, _ = limiter.Allow(ctx, "fresh", 1, time.Minute)
	assert.False(t, allowed)
}

func TestRetrySeconds(t *testing.T) {
	assert.Equal(t, 1, retrySeconds(0))
	assert.Equal(t, 1, retrySeconds(200*time.Millisecond))
	assert.Equal(t, 2, retrySeconds(1001*time.Millisecond))
	assert.Equal(t, 60, retrySeconds(time.Minute))
}
