package contracts

import "context"

// MessageQueue is the per-conversation redis stream between message
// ingest and the persist worker.
type MessageQueue interface {
	PublishToStream(ctx context.Context, topic string, payload []byte) error
	// SubscribeToStream reads the stream through a consumer group and
	// hands every entry to handler until ctx is cancelled.
	SubscribeToStream(ctx context.Context, topic string, conGroup string, handler func(ctx context.Context, messageID string, data []byte) error) error
	AcknowledgeMessage(ctx context.Context, topic, conGroup, msgID string) error
	DeleteMessage(ctx context.Context, topic, msgID string) error
	DeleteStream(ctx context.Context, topic string) error
}
