package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// slidingWindowScript trims the window, counts, and records the request atomically.
// Scores are unix milliseconds. Returns {allowed, oldest score}.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)

local count = redis.call('ZCARD', key)
if count >= limit then
	local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
	if oldest[2] then
		return {0, tonumber(oldest[2])}
	end
	return {0, now}
end

redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return {1, 0}
`)

// RedisRateLimiter shares the sliding window between instances through Redis
type RedisRateLimiter struct {
	client *redis.Client
	logger *zap.Logger
	now    func() time.Time
}

var _ RateLimiter = (*RedisRateLimiter)(nil)

// NewRedisRateLimiter creates a new Redis-backed rate limiter
func NewRedisRateLimiter(client *redis.Client, logger *zap.Logger) *RedisRateLimiter {
	return &RedisRateLimiter{
		client: client,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock replaces the time source
func (r *RedisRateLimiter) WithClock(now func() time.Time) *RedisRateLimiter {
	r.now = now
	return r
}

// Allow fails open when Redis is unavailable
func (r *RedisRateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, int) {
	now := r.now().UnixMilli()
	windowMs := window.Milliseconds()

	res, err := slidingWindowScript.Run(ctx, r.client,
		[]string{"ratelimit:" + key},
		now, windowMs, limit, uuid.NewString(),
	).Int64Slice()
	if err != nil || len(res) != 2 {
		r.logger.Error("rate limiter unavailable, allowing request",
			zap.String("key", key),
			zap.Error(err),
		)
		return true, 0
	}

	if res[0] == 1 {
		return true, 0
	}

	remaining := time.Duration(windowMs-(now-res[1])) * time.Millisecond
	return false, retrySeconds(remaining)
}
