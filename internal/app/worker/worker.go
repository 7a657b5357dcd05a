package worker

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/RohanSantra/Connecto-sub000/internal/core/contracts"
	"github.com/RohanSantra/Connecto-sub000/internal/core/domain"
	"github.com/RohanSantra/Connecto-sub000/internal/core/services"
)

// ConversationWorker drains one conversation's ingest stream: persist
// the message with its sequence, fan out message-new, then ack and
// trim the stream entry.
type ConversationWorker struct {
	log      *slog.Logger
	queue    contracts.MessageQueue
	messages *services.MessageService
	conGroup string
}

func NewConversationWorker(
	log *slog.Logger,
	queue contracts.MessageQueue,
	messages *services.MessageService,
	conGroup string,
) *ConversationWorker {
	return &ConversationWorker{
		log:      log,
		queue:    queue,
		messages: messages,
		conGroup: conGroup,
	}
}

// Run blocks on the stream until ctx is cancelled.
func (w *ConversationWorker) Run(ctx context.Context, convID string) error {
	w.log.InfoContext(ctx, "worker - run - consuming stream", "topic", convID, "group", w.conGroup)
	return w.queue.SubscribeToStream(ctx, convID, w.conGroup, w.ProcessMessage)
}

func (w *ConversationWorker) ProcessMessage(ctx context.Context, messageID string, raw []byte) error {
	var payload domain.MessagePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		w.log.Error("worker - process message - wrong payload", "message_id", messageID)
		return err
	}
	if err := w.messages.SaveAndBroadcast(ctx, &payload); err != nil {
		w.log.ErrorContext(ctx, "worker - process message - save and broadcast failed", "message_id", messageID, "err", err)
		return err
	}
	// The row is committed; remove the stream entry from the pending
	// list and keep the stream memory-efficient.
	if err := w.queue.AcknowledgeMessage(ctx, payload.ConversationID, w.conGroup, messageID); err != nil {
		w.log.ErrorContext(ctx, "worker - process message - acknowledge failed", "message_id", messageID, "err", err)
		return err
	}
	if err := w.queue.DeleteMessage(ctx, payload.ConversationID, messageID); err != nil {
		// Already processed and acked; trimming is best-effort.
		w.log.ErrorContext(ctx, "worker - process message - delete failed", "message_id", messageID, "err", err)
	}
	return nil
}
