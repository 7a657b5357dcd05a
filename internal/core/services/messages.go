package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/RohanSantra/Connecto-sub000/internal/core/contracts"
	"github.com/RohanSantra/Connecto-sub000/internal/core/domain"
)

// MessageService ingests opaque ciphertext messages: publish to the
// per-conversation redis stream, ack the sender, and let the persist
// worker commit the row and fan out message-new. Once a message
// commits, buffered receipts for it merge through the reconciler.
type MessageService struct {
	queue    contracts.MessageQueue
	bcast    contracts.Broadcaster
	repo     domain.MessageRepository
	convs    domain.ConversationRepository
	receipts *ReceiptService
	tx       TxRunner
	log      *slog.Logger
	now      func() time.Time

	consumerMu sync.Mutex
	consumers  map[string]context.CancelFunc
	workerCtx  context.Context
	runWorker  func(ctx context.Context, convID string) error
}

func NewMessageService(
	log *slog.Logger,
	queue contracts.MessageQueue,
	bcast contracts.Broadcaster,
	repo domain.MessageRepository,
	convs domain.ConversationRepository,
	receipts *ReceiptService,
	tx TxRunner,
) *MessageService {
	return &MessageService{
		log:       log,
		queue:     queue,
		bcast:     bcast,
		repo:      repo,
		convs:     convs,
		receipts:  receipts,
		tx:        tx,
		now:       time.Now,
		consumers: make(map[string]context.CancelFunc),
	}
}

// RunWorker injects the stream consumer loop; consumers spawn lazily
// per conversation and live until ctx is cancelled.
func (s *MessageService) RunWorker(ctx context.Context, fn func(ctx context.Context, convID string) error) {
	s.consumerMu.Lock()
	defer s.consumerMu.Unlock()
	s.workerCtx = ctx
	s.runWorker = fn
}

// AcceptMessage validates the sender, publishes the envelope to the
// conversation stream, and acks server_received to the sender only.
func (s *MessageService) AcceptMessage(ctx context.Context, senderID string, conversationID uuid.UUID, payload, clientMsgID string) error {
	if senderID == "" {
		return domain.ErrInvalidUserID
	}
	if conversationID == uuid.Nil {
		return domain.ErrInvalidConversationID
	}
	member, err := s.convs.IsMember(ctx, conversationID, senderID)
	if err != nil {
		return err
	}
	if !member {
		return domain.ErrNotParticipant
	}
	envelope := domain.MessagePayload{
		ClientMsgID:    clientMsgID,
		ConversationID: conversationID.String(),
		SenderID:       senderID,
		Payload:        payload,
		CreatedAt:      s.now(),
	}
	raw, _ := json.Marshal(envelope)
	s.ensureConsumer(conversationID.String())
	if err := s.queue.PublishToStream(ctx, conversationID.String(), raw); err != nil {
		s.log.ErrorContext(ctx, "messages - accept message - publish to stream failed", "stream", conversationID.String(), "err", err)
		return err
	}
	s.bcast.ToUser(ctx, senderID, domain.MessageAck{
		Type:        domain.TypeMessageAck,
		ClientMsgID: clientMsgID,
		Status:      domain.AckServerReceived,
		Timestamp:   s.now(),
	})
	return nil
}

// SaveAndBroadcast commits the message with its conversation sequence
// and bumps recipient unread counters in one transaction, then fans
// out message-new, acks the sender, and merges buffered receipts.
func (s *MessageService) SaveAndBroadcast(ctx context.Context, payload *domain.MessagePayload) error {
	conversationID, err := uuid.Parse(payload.ConversationID)
	if err != nil {
		return domain.ErrInvalidConversationID
	}
	msg := &domain.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderID:       payload.SenderID,
		Payload:        payload.Payload,
		CreatedAt:      payload.CreatedAt,
	}
	var seq int64
	if err := s.tx.WithTx(ctx, func(txCtx context.Context) error {
		var txErr error
		if seq, txErr = s.repo.SaveWithSequence(txCtx, msg); txErr != nil {
			return txErr
		}
		return s.convs.IncrementUnread(txCtx, conversationID, msg.SenderID)
	}); err != nil {
		s.log.ErrorContext(ctx, "messages - save and broadcast - persist failed", "conv_id", payload.ConversationID, "err", err)
		return err
	}
	msg.Seq = seq
	s.log.InfoContext(ctx, "messages - save and broadcast - persisted", "message_id", msg.ID.String(), "conv_id", payload.ConversationID, "seq", seq)
	s.bcast.ToConversation(ctx, conversationID, domain.MessageNewEvent{
		Type:           domain.TypeMessageNew,
		MessageID:      msg.ID.String(),
		ConversationID: payload.ConversationID,
		SenderID:       msg.SenderID,
		Seq:            seq,
		Payload:        msg.Payload,
		CreatedAt:      msg.CreatedAt,
	})
	s.bcast.ToUser(ctx, msg.SenderID, domain.MessageAck{
		Type:        domain.TypeMessageAck,
		ClientMsgID: payload.ClientMsgID,
		MessageID:   msg.ID.String(),
		Status:      domain.AckPersisted,
		Seq:         seq,
		Timestamp:   s.now(),
	})
	// The message is now resolvable in-process: merge any receipts
	// that raced ahead of it.
	s.receipts.MessageCreated(ctx, msg.ID)
	return nil
}

func (s *MessageService) ensureConsumer(convID string) {
	s.consumerMu.Lock()
	defer s.consumerMu.Unlock()
	if s.runWorker == nil || s.workerCtx == nil {
		return
	}
	if _, ok := s.consumers[convID]; ok {
		return
	}
	ctx, cancel := context.WithCancel(s.workerCtx)
	s.consumers[convID] = cancel
	go func() {
		if err := s.runWorker(ctx, convID); err != nil {
			s.log.Error("messages - consumer - worker stopped", "stream", convID, "err", err)
		}
	}()
}
