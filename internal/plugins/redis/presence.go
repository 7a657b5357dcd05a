package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/RohanSantra/Connecto-sub000/internal/core/contracts"
)

// RedisPresenceStore mirrors the per-user online flag so nodes that
// don't hold the connection can still answer reachability. The
// registry remains the source of truth; this is a read replica.
type RedisPresenceStore struct {
	rdb *redis.Client
}

func NewRedisPresenceStore(rdb *redis.Client) *RedisPresenceStore {
	return &RedisPresenceStore{rdb: rdb}
}

var _ contracts.PresenceStore = (*RedisPresenceStore)(nil)

func presenceKey(userID string) string { return "presence:" + userID }
func lastSeenKey(userID string) string { return "lastseen:" + userID }

func (p *RedisPresenceStore) SetOnline(ctx context.Context, userID string) error {
	return p.rdb.Set(ctx, presenceKey(userID), "1", 0).Err()
}

func (p *RedisPresenceStore) SetOffline(ctx context.Context, userID string, lastSeen time.Time) error {
	pipe := p.rdb.TxPipeline()
	pipe.Del(ctx, presenceKey(userID))
	pipe.Set(ctx, lastSeenKey(userID), strconv.FormatInt(lastSeen.Unix(), 10), 0)
	_, err := pipe.Exec(ctx)
	return err
}

func (p *RedisPresenceStore) IsOnline(ctx context.Context, userID string) (bool, error) {
	n, err := p.rdb.Exists(ctx, presenceKey(userID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
