package ratelimit

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var redisIncrScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("TTL", KEYS[1])
return {current, ttl}
`)

// RedisLimiter implements a fixed-window rate limiter backed by Redis,
// shared across processes. The counter key expires with the window.
type RedisLimiter struct {
	client *redis.Client
	prefix string
}

// NewRedisLimiter constructs a RedisLimiter.
func NewRedisLimiter(client *redis.Client, prefix string) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		prefix: strings.TrimSpace(prefix),
	}
}

// Allow checks whether the request fits in the key's current window.
func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Result, error) {
	if limit <= 0 || key == "" || window <= 0 || l == nil || l.client == nil {
		return Result{Allowed: true}, nil
	}

	windowSeconds := int64(window / time.Second)
	if windowSeconds < 1 {
		windowSeconds = 1
	}

	res, errEval := redisIncrScript.Run(ctx, l.client, []string{l.buildKey(key)}, windowSeconds).Result()
	if errEval != nil {
		return Result{}, errEval
	}
	values, ok := res.([]any)
	if !ok || len(values) != 2 {
		return Result{}, errors.New("rate limit redis: unexpected response shape")
	}
	count, okCount := values[0].(int64)
	ttl, okTTL := values[1].(int64)
	if !okCount || !okTTL {
		return Result{}, errors.New("rate limit redis: unexpected response type")
	}
	if ttl < 0 {
		ttl = windowSeconds
	}
	reset := now.Add(time.Duration(ttl) * time.Second).UTC()

	if count > int64(limit) {
		return Result{Allowed: false, Remaining: 0, Reset: reset}, nil
	}
	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Result{Allowed: true, Remaining: remaining, Reset: reset}, nil
}

func (l *RedisLimiter) buildKey(key string) string {
	if l.prefix == "" {
		return key
	}
	return l.prefix + ":" + key
}
