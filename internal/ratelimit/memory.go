package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter is a single-process Limiter used when redis is not
// configured, and as a deterministic fake in tests via the injected clock.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

type bucket struct {
	count   int64
	resetAt time.Time
}

// NewMemoryLimiter constructs a MemoryLimiter with the real clock.
func NewMemoryLimiter() *MemoryLimiter {
	return NewMemoryLimiterWithClock(time.Now)
}

// NewMemoryLimiterWithClock constructs a MemoryLimiter with a custom clock.
func NewMemoryLimiterWithClock(now func() time.Time) *MemoryLimiter {
	return &MemoryLimiter{
		buckets: make(map[string]*bucket),
		now:     now,
	}
}

// CheckAndIncrement implements Limiter.
func (l *MemoryLimiter) CheckAndIncrement(_ context.Context, key string, limit int64) (bool, error) {
	if limit <= 0 {
		return false, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok || !now.Before(b.resetAt) {
		l.buckets[key] = &bucket{count: 1, resetAt: now.Add(Window)}
		l.sweepLocked(now)
		return false, nil
	}
	if b.count >= limit {
		return true, nil
	}
	b.count++
	return false, nil
}

// sweepLocked drops expired buckets so the map does not grow without bound.
func (l *MemoryLimiter) sweepLocked(now time.Time) {
	if len(l.buckets) < 4096 {
		return
	}
	for key, b := range l.buckets {
		if !now.Before(b.resetAt) {
			delete(l.buckets, key)
		}
	}
}
