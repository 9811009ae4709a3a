package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTier is the shared process-wide cache tier.
type RedisTier struct {
	client *redis.Client
}

// NewRedisTier constructs a RedisTier over an existing client.
func NewRedisTier(client *redis.Client) *RedisTier {
	return &RedisTier{client: client}
}

// Name identifies the tier in logs.
func (t *RedisTier) Name() string { return "redis" }

// Get returns the cached value when present.
func (t *RedisTier) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if t == nil || t.client == nil {
		return nil, false, nil
	}
	value, errGet := t.client.Get(ctx, key).Bytes()
	if errGet != nil {
		if errors.Is(errGet, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, errGet
	}
	return value, true, nil
}

// Set stores the value with the given TTL.
func (t *RedisTier) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if t == nil || t.client == nil {
		return nil
	}
	return t.client.Set(ctx, key, value, ttl).Err()
}

// Delete removes the key.
func (t *RedisTier) Delete(ctx context.Context, key string) error {
	if t == nil || t.client == nil {
		return nil
	}
	return t.client.Del(ctx, key).Err()
}

// Flush scans and deletes every key starting with prefix.
func (t *RedisTier) Flush(ctx context.Context, prefix string) error {
	if t == nil || t.client == nil {
		return nil
	}
	var cursor uint64
	for {
		keys, next, errScan := t.client.Scan(ctx, cursor, prefix+"*", 200).Result()
		if errScan != nil {
			return errScan
		}
		if len(keys) > 0 {
			if errDel := t.client.Del(ctx, keys...).Err(); errDel != nil {
				return errDel
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
