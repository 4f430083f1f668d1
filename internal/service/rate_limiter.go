package service

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

const (
	pruneEvery  = 4096
	defaultIdle = time.Hour
)

// RateLimiter decides whether a request identified by key may proceed.
// When it may not, retryAfter is the number of seconds until it may.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (allowed bool, retryAfter int)
}

// MemoryRateLimiter is a process-local sliding window log.
// Calls for the same key are serialized; different keys do not contend.
// Keys idle for longer than the idle period are dropped every pruneEvery calls.
type MemoryRateLimiter struct {
	mu      sync.Mutex
	windows map[string]*requestLog
	now     func() time.Time
	idle    time.Duration
	calls   atomic.Uint64
}

type requestLog struct {
	mu      sync.Mutex
	hits    []time.Time
	removed bool
}

var _ RateLimiter = (*MemoryRateLimiter)(nil)

// NewMemoryRateLimiter creates a new in-memory rate limiter
func NewMemoryRateLimiter() *MemoryRateLimiter {
	return &MemoryRateLimiter{
		windows: make(map[string]*requestLog),
		now:     time.Now,
		idle:    defaultIdle,
	}
}

// WithIdle sets how long a key may stay unused before it is forgotten.
// It must exceed the longest window in use.
func (r *MemoryRateLimiter) WithIdle(idle time.Duration) *MemoryRateLimiter {
	r.idle = idle
	return r
}

// WithClock replaces the time source
func (r *MemoryRateLimiter) WithClock(now func() time.Time) *MemoryRateLimiter {
	r.now = now
	return r
}

// Allow records a request for key unless limit requests already happened within window
func (r *MemoryRateLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, int) {
	if r.calls.Add(1)%pruneEvery == 0 {
		r.Prune(r.idle)
	}

	log := r.lockedLog(key)
	defer log.mu.Unlock()

	now := r.now()
	log.hits = dropBefore(log.hits, now.Add(-window))

	if len(log.hits) >= limit {
		if len(log.hits) == 0 {
			return false, retrySeconds(window)
		}
		return false, retrySeconds(window - now.Sub(log.hits[0]))
	}

	log.hits = append(log.hits, now)
	return true, 0
}

// Prune forgets keys with no requests in the last idle period
func (r *MemoryRateLimiter) Prune(idle time.Duration) int {
	cutoff := r.now().Add(-idle)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for key, log := range r.windows {
		log.mu.Lock()
		stale := len(log.hits) == 0 || !log.hits[len(log.hits)-1].After(cutoff)
		if stale {
			log.removed = true
			delete(r.windows, key)
			removed++
		}
		log.mu.Unlock()
	}
	return removed
}

// lockedLog returns the locked log of key. A log removed by Prune between
// lookup and locking is replaced, so no request is recorded in a dropped log.
func (r *MemoryRateLimiter) lockedLog(key string) *requestLog {
	for {
		log := r.logFor(key)
		log.mu.Lock()
		if !log.removed {
			return log
		}
		log.mu.Unlock()
	}
}

func (r *MemoryRateLimiter) logFor(key string) *requestLog {
	r.mu.Lock()
	defer r.mu.Unlock()

	log, ok := r.windows[key]
	if !ok {
		log = &requestLog{}
		r.windows[key] = log
	}
	return log
}

// dropBefore removes timestamps at or before cutoff. hits is ordered.
func dropBefore(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return hits
	}
	return append(hits[:0], hits[i:]...)
}

func retrySeconds(d time.Duration) int {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}
