package cache

import (
	"context"
	"time"
)

// TTL tiers. Reference data uses TTLLong; rule lists and match
// decisions use TTLMedium.
const (
	TTLMedium = 15 * time.Minute
	TTLLong   = time.Hour
)

// Tier is one cache backend in fallthrough order.
// A tier failure must never abort a read; callers skip to the next tier.
type Tier interface {
	// Name identifies the tier in logs.
	Name() string
	// Get returns the raw value and whether the key was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores the value with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes the key.
	Delete(ctx context.Context, key string) error
	// Flush removes every key starting with prefix.
	Flush(ctx context.Context, prefix string) error
}
