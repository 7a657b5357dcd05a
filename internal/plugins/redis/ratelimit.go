package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/RohanSantra/Connecto-sub000/internal/core/contracts"
)

// RedisRateLimiter keeps one cooldown key per caller; the TTL is the
// remaining window. Shared across nodes so a caller cannot dodge the
// cooldown by reconnecting elsewhere.
type RedisRateLimiter struct {
	rdb      *redis.Client
	cooldown time.Duration
}

func NewRedisRateLimiter(rdb *redis.Client, cooldown time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{rdb: rdb, cooldown: cooldown}
}

var _ contracts.RateLimiter = (*RedisRateLimiter)(nil)

func cooldownKey(callerID string) string { return "callcd:" + callerID }

func (l *RedisRateLimiter) Allow(ctx context.Context, callerID string) (bool, time.Duration, error) {
	ttl, err := l.rdb.PTTL(ctx, cooldownKey(callerID)).Result()
	if err != nil {
		return false, 0, err
	}
	// PTTL returns a negative duration for missing or persistent keys.
	if ttl > 0 {
		return false, ttl, nil
	}
	return true, 0, nil
}

func (l *RedisRateLimiter) Record(ctx context.Context, callerID string) error {
	return l.rdb.Set(ctx, cooldownKey(callerID), "1", l.cooldown).Err()
}
