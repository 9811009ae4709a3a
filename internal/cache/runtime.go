package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

type runtimeEntry struct {
	value     []byte
	expiresAt time.Time
}

// RuntimeTier is the in-process map tier.
// Unlike the request-scoped layer it replaces, the process is long-lived,
// so entries carry an expiry and are dropped lazily on read.
type RuntimeTier struct {
	mu      sync.RWMutex
	entries map[string]runtimeEntry
	nowFn   func() time.Time
}

// NewRuntimeTier constructs an empty RuntimeTier.
func NewRuntimeTier() *RuntimeTier {
	return &RuntimeTier{
		entries: make(map[string]runtimeEntry),
		nowFn:   time.Now,
	}
}

// Name identifies the tier in logs.
func (t *RuntimeTier) Name() string { return "runtime" }

// Get returns the cached value when present and unexpired.
func (t *RuntimeTier) Get(_ context.Context, key string) ([]byte, bool, error) {
	t.mu.RLock()
	entry, ok := t.entries[key]
	t.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && t.nowFn().After(entry.expiresAt) {
		t.mu.Lock()
		delete(t.entries, key)
		t.mu.Unlock()
		return nil, false, nil
	}
	return entry.value, true, nil
}

// Set stores the value. A zero TTL means no expiry.
func (t *RuntimeTier) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	entry := runtimeEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = t.nowFn().Add(ttl)
	}
	t.mu.Lock()
	t.entries[key] = entry
	t.mu.Unlock()
	return nil
}

// Delete removes the key.
func (t *RuntimeTier) Delete(_ context.Context, key string) error {
	t.mu.Lock()
	delete(t.entries, key)
	t.mu.Unlock()
	return nil
}

// Flush removes every key starting with prefix.
func (t *RuntimeTier) Flush(_ context.Context, prefix string) error {
	t.mu.Lock()
	for key := range t.entries {
		if strings.HasPrefix(key, prefix) {
			delete(t.entries, key)
		}
	}
	t.mu.Unlock()
	return nil
}
