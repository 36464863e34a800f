package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter is an in-process sliding-window limiter. Suitable for a single
// instance; multi-instance deployments should use the redis-backed limiter.
type MemoryLimiter struct {
	mu      sync.Mutex
	history map[string][]time.Time

	now func() time.Time
}

// NewMemoryLimiter creates an empty in-memory limiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		history: make(map[string][]time.Time),
		now:     time.Now,
	}
}

func limiterKey(ruleID, userID string) string {
	return ruleID + ":" + userID
}

// Count returns the number of recorded executions within the window, pruning
// entries that fell out of it.
func (l *MemoryLimiter) Count(_ context.Context, ruleID, userID string, window time.Duration) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := limiterKey(ruleID, userID)
	cutoff := l.now().Add(-window)

	kept := l.history[key][:0]
	for _, at := range l.history[key] {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}

	if len(kept) == 0 {
		delete(l.history, key)
	} else {
		l.history[key] = kept
	}

	return len(kept), nil
}

// Record attributes one execution to the pair.
func (l *MemoryLimiter) Record(_ context.Context, ruleID, userID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := limiterKey(ruleID, userID)
	l.history[key] = append(l.history[key], l.now())

	return nil
}
