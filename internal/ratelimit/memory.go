package ratelimit

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	expiresAt time.Time
	count     int
}

// MemoryLimiter implements a fixed-window in-memory rate limiter.
// The window starts at the first hit on a key.
type MemoryLimiter struct {
	mu       sync.Mutex
	counters map[string]*memoryEntry
}

// NewMemoryLimiter constructs a MemoryLimiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		counters: make(map[string]*memoryEntry),
	}
}

// Allow checks whether the request fits in the key's current window.
func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int, window time.Duration, now time.Time) (Result, error) {
	if limit <= 0 || key == "" || window <= 0 {
		return Result{Allowed: true}, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry := l.counters[key]
	if entry == nil || !now.Before(entry.expiresAt) {
		l.prune(now)
		entry = &memoryEntry{expiresAt: now.Add(window)}
		l.counters[key] = entry
	}
	if entry.count >= limit {
		return Result{Allowed: false, Remaining: 0, Reset: entry.expiresAt}, nil
	}
	entry.count++
	return Result{Allowed: true, Remaining: limit - entry.count, Reset: entry.expiresAt}, nil
}

// prune drops expired windows. Called with the lock held, only when a
// new window opens, so it stays off the hot path.
func (l *MemoryLimiter) prune(now time.Time) {
	for key, entry := range l.counters {
		if !now.Before(entry.expiresAt) {
			delete(l.counters, key)
		}
	}
}
