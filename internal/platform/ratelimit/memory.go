package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter is an in-process Limiter for development and single-node
// deployments. Counters for past windows are dropped lazily on access.
type MemoryLimiter struct {
	mu      sync.Mutex
	window  int64
	counts  map[string]int
	nowFunc func() time.Time
}

// NewMemoryLimiter creates an empty in-memory limiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		counts:  make(map[string]int),
		nowFunc: time.Now,
	}
}

// Allow implements Limiter.
func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int) (bool, int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	window := l.nowFunc().Unix() / WindowSeconds
	if window != l.window {
		l.window = window
		l.counts = make(map[string]int)
	}

	l.counts[key]++
	count := l.counts[key]
	return count <= limit, count, nil
}
