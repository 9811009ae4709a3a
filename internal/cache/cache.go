package cache

import (
	"context"
	"encoding/json"
	"time"

	log "github.com/sirupsen/logrus"
)

// Cache reads through an ordered list of tiers, fastest first.
// Reads fall through tiers and write back to the faster ones on a hit;
// writes go to every tier. A failing tier is skipped, never fatal.
type Cache struct {
	namespace string
	tiers     []Tier
}

// New constructs a Cache over the given tiers, ordered fastest first.
func New(namespace string, tiers ...Tier) *Cache {
	if namespace == "" {
		namespace = "wardrate"
	}
	return &Cache{namespace: namespace, tiers: tiers}
}

// Namespace returns the key prefix shared by every entry of this cache.
func (c *Cache) Namespace() string {
	return c.namespace
}

func (c *Cache) fullKey(key string) string {
	return c.namespace + ":" + key
}

// Get returns the raw cached value for key, if any tier holds it.
// A hit on a slower tier backfills the faster tiers with TTLMedium.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	full := c.fullKey(key)
	for i, tier := range c.tiers {
		value, ok, errGet := tier.Get(ctx, full)
		if errGet != nil {
			log.WithError(errGet).WithField("tier", tier.Name()).Debug("cache: tier read failed")
			continue
		}
		if !ok {
			continue
		}
		for j := 0; j < i; j++ {
			if errSet := c.tiers[j].Set(ctx, full, value, TTLMedium); errSet != nil {
				log.WithError(errSet).WithField("tier", c.tiers[j].Name()).Debug("cache: backfill failed")
			}
		}
		return value, true
	}
	return nil, false
}

// GetJSON unmarshals the cached value for key into out.
func (c *Cache) GetJSON(ctx context.Context, key string, out any) bool {
	value, ok := c.Get(ctx, key)
	if !ok {
		return false
	}
	if errUnmarshal := json.Unmarshal(value, out); errUnmarshal != nil {
		log.WithError(errUnmarshal).WithField("key", key).Warn("cache: corrupt entry dropped")
		c.Delete(ctx, key)
		return false
	}
	return true
}

// Set writes the value to every tier. A tier write failure only means
// that tier will recompute on its next read.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if c == nil {
		return
	}
	full := c.fullKey(key)
	for _, tier := range c.tiers {
		if errSet := tier.Set(ctx, full, value, ttl); errSet != nil {
			log.WithError(errSet).WithField("tier", tier.Name()).Debug("cache: tier write failed")
		}
	}
}

// SetJSON marshals the value and writes it to every tier.
func (c *Cache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) {
	raw, errMarshal := json.Marshal(value)
	if errMarshal != nil {
		log.WithError(errMarshal).WithField("key", key).Warn("cache: marshal failed, not caching")
		return
	}
	c.Set(ctx, key, raw, ttl)
}

// Delete removes the key from every tier.
func (c *Cache) Delete(ctx context.Context, key string) {
	if c == nil {
		return
	}
	full := c.fullKey(key)
	for _, tier := range c.tiers {
		if errDelete := tier.Delete(ctx, full); errDelete != nil {
			log.WithError(errDelete).WithField("tier", tier.Name()).Debug("cache: tier delete failed")
		}
	}
}

// Flush clears the whole namespace on every tier.
func (c *Cache) Flush(ctx context.Context) {
	if c == nil {
		return
	}
	prefix := c.namespace + ":"
	for _, tier := range c.tiers {
		if errFlush := tier.Flush(ctx, prefix); errFlush != nil {
			log.WithError(errFlush).WithField("tier", tier.Name()).Warn("cache: tier flush failed")
		}
	}
}

// InvalidateRates drops every cached rate lookup after a rule mutation.
// Match-decision keys embed ward and subtotal bucket and rule lists are
// keyed per ward, so there is no coarser index to delete selectively;
// invalidation is a full namespace flush. Coarse but correct.
func (c *Cache) InvalidateRates(ctx context.Context) {
	c.Flush(ctx)
}
