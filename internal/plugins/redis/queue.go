package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/RohanSantra/Connecto-sub000/internal/core/contracts"
)

// RedisMessageQueue is the per-conversation stream between message
// ingest and the persist worker.
type RedisMessageQueue struct {
	rdb *redis.Client
	log *slog.Logger
}

func NewRedisMessageQueue(log *slog.Logger, rdb *redis.Client) *RedisMessageQueue {
	return &RedisMessageQueue{log: log, rdb: rdb}
}

var _ contracts.MessageQueue = (*RedisMessageQueue)(nil)

func (q *RedisMessageQueue) streamKey(topic string) string {
	return "stream:" + topic
}

func (q *RedisMessageQueue) PublishToStream(ctx context.Context, topic string, payload []byte) error {
	return q.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: q.streamKey(topic),
		MaxLen: 1000,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{"data": payload},
	}).Err()
}

func (q *RedisMessageQueue) SubscribeToStream(
	ctx context.Context,
	topic string,
	conGroup string,
	handler func(ctx context.Context, messageID string, data []byte) error,
) error {
	stream := q.streamKey(topic)
	err := q.rdb.XGroupCreateMkStream(ctx, stream, conGroup, "0").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	consumerName := uuid.NewString()
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			res, err := q.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
				Group:    conGroup,
				Consumer: consumerName,
				Streams:  []string{stream, ">"},
				Count:    1,
				Block:    2 * time.Second,
			}).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					q.log.Error("queue - subscribe - stream read failed", "stream", stream, "err", err)
				}
				continue
			}
			for _, st := range res {
				for _, msg := range st.Messages {
					raw, ok := msg.Values["data"].(string)
					if !ok {
						continue
					}
					if err := handler(ctx, msg.ID, []byte(raw)); err != nil {
						q.log.Error("queue - subscribe - handler failed", "stream", stream, "message_id", msg.ID, "err", err)
					}
				}
			}
		}
	}
}

func (q *RedisMessageQueue) AcknowledgeMessage(ctx context.Context, topic, conGroup, msgID string) error {
	return q.rdb.XAck(ctx, q.streamKey(topic), conGroup, msgID).Err()
}

func (q *RedisMessageQueue) DeleteMessage(ctx context.Context, topic, msgID string) error {
	return q.rdb.XDel(ctx, q.streamKey(topic), msgID).Err()
}

func (q *RedisMessageQueue) DeleteStream(ctx context.Context, topic string) error {
	return q.rdb.Del(ctx, q.streamKey(topic)).Err()
}
