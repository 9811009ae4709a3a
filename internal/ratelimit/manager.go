package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const redisBreakerDuration = 30 * time.Second

// Manager enforces per-(action, ip) fixed windows. Redis is preferred
// when configured so the counters are shared across processes; a Redis
// failure trips a breaker and falls back to the in-memory limiter.
type Manager struct {
	limit  int
	window time.Duration
	nowFn  func() time.Time

	memoryLimiter Limiter
	redisLimiter  *RedisLimiter

	mu           sync.Mutex
	breakerUntil time.Time
}

// NewManager constructs a Manager. A nil client disables the Redis
// backend entirely.
func NewManager(client *redis.Client, prefix string, limit int, window time.Duration) *Manager {
	m := &Manager{
		limit:         limit,
		window:        window,
		nowFn:         time.Now,
		memoryLimiter: NewMemoryLimiter(),
	}
	if client != nil {
		m.redisLimiter = NewRedisLimiter(client, prefix)
	}
	return m
}

// Allow checks whether another request for action from ip fits in the
// current window.
func (m *Manager) Allow(ctx context.Context, action, ip string) (Result, error) {
	if m == nil || m.limit <= 0 {
		return Result{Allowed: true}, nil
	}
	now := m.nowFn()
	key := Key(action, ip)

	if m.redisLimiter != nil && !m.isBreakerActive(now) {
		result, errAllow := m.redisLimiter.Allow(ctx, key, m.limit, m.window, now)
		if errAllow == nil {
			return result, nil
		}
		m.tripBreaker(errAllow, now)
	}
	return m.memoryLimiter.Allow(ctx, key, m.limit, m.window, now)
}

func (m *Manager) isBreakerActive(now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.breakerUntil.IsZero() {
		return false
	}
	if now.Before(m.breakerUntil) {
		return true
	}
	m.breakerUntil = time.Time{}
	return false
}

func (m *Manager) tripBreaker(err error, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.breakerUntil.IsZero() && now.Before(m.breakerUntil) {
		return
	}
	m.breakerUntil = now.Add(redisBreakerDuration)
	log.WithError(err).Warn("rate limit: redis unavailable, falling back to memory")
}
