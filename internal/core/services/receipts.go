package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/RohanSantra/Connecto-sub000/internal/core/contracts"
	"github.com/RohanSantra/Connecto-sub000/internal/core/domain"
)

var receiptTracer = otel.Tracer("receipt-service")

// ReceiptService turns raw delivered/read signals into canonical,
// idempotent per-message state and republishes status changes.
// Receipts that arrive before their message is resolvable in-process
// are buffered and merged exactly once when the message lands.
type ReceiptService struct {
	msgs  domain.MessageRepository
	convs domain.ConversationRepository
	tx    TxRunner
	bcast contracts.Broadcaster
	buf   *receiptBuffer
	log   *slog.Logger
	now   func() time.Time
}

func NewReceiptService(
	log *slog.Logger,
	msgs domain.MessageRepository,
	convs domain.ConversationRepository,
	tx TxRunner,
	bcast contracts.Broadcaster,
	bufferMax, perMessage int,
	bufferTTL time.Duration,
) *ReceiptService {
	return &ReceiptService{
		log:   log,
		msgs:  msgs,
		convs: convs,
		tx:    tx,
		bcast: bcast,
		buf:   newReceiptBuffer(bufferMax, perMessage, bufferTTL),
		now:   time.Now,
	}
}

// Run drives the buffer janitor until ctx is cancelled.
func (s *ReceiptService) Run(ctx context.Context) {
	interval := s.buf.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.buf.expire(s.now()); n > 0 {
				s.log.Warn("receipts - janitor - expired buffered receipts dropped", "messages", n)
			}
		}
	}
}

// MarkDelivered records one delivery receipt. Self-receipts and
// duplicates are silent no-ops; receipts for unknown messages are
// buffered. from names the acting connection so its sibling devices
// still hear the event (uuid.Nil fans out to all of them).
func (s *ReceiptService) MarkDelivered(ctx context.Context, messageID uuid.UUID, userID string, at time.Time, from uuid.UUID) error {
	return s.mark(ctx, kindDelivered, messageID, userID, at, from)
}

// MarkRead records a single-message read receipt under the same rules
// as MarkDelivered, against the read set.
func (s *ReceiptService) MarkRead(ctx context.Context, messageID uuid.UUID, userID string, at time.Time, from uuid.UUID) error {
	return s.mark(ctx, kindRead, messageID, userID, at, from)
}

func (s *ReceiptService) mark(ctx context.Context, kind receiptKind, messageID uuid.UUID, userID string, at time.Time, from uuid.UUID) error {
	if messageID == uuid.Nil {
		return domain.ErrInvalidMessageID
	}
	if userID == "" {
		return domain.ErrInvalidUserID
	}
	if at.IsZero() {
		at = s.now()
	}
	msg, err := s.msgs.GetMessage(ctx, messageID)
	if errors.Is(err, domain.ErrMessageNotFound) {
		// Receipt raced ahead of message creation: park it until the
		// message becomes resolvable.
		kept := s.buf.add(messageID, pendingReceipt{kind: kind, userID: userID, at: at}, s.now())
		s.log.InfoContext(ctx, "receipts - mark - receipt buffered", "message_id", messageID.String(), "user_id", userID, "kept", kept)
		return nil
	}
	if err != nil {
		return err
	}
	if msg.SenderID == userID {
		return nil
	}
	var inserted bool
	if kind == kindDelivered {
		inserted, err = s.msgs.AddDeliveryEntry(ctx, messageID, userID, at)
	} else {
		inserted, err = s.msgs.AddReadEntry(ctx, messageID, userID, at)
	}
	if err != nil {
		return err
	}
	if !inserted {
		return nil
	}
	s.publishReceipt(ctx, kind, msg, userID, at, from)
	return nil
}

func (s *ReceiptService) publishReceipt(ctx context.Context, kind receiptKind, msg *domain.Message, userID string, at time.Time, from uuid.UUID) {
	var event any
	if kind == kindDelivered {
		event = domain.MessageDeliveredEvent{
			Type:        domain.TypeMessageDelivered,
			MessageID:   msg.ID.String(),
			ChatID:      msg.ConversationID.String(),
			UserID:      userID,
			DeliveredAt: at,
		}
	} else {
		event = domain.MessageReadEvent{
			Type:       domain.TypeMessageRead,
			ChatID:     msg.ConversationID.String(),
			UserID:     userID,
			ReadAt:     at,
			ReadUpToID: msg.ID.String(),
		}
	}
	s.bcast.ToUser(ctx, msg.SenderID, event)
	s.bcast.ToUserOthers(ctx, userID, from, event)
	s.bcast.ToConversation(ctx, msg.ConversationID, event)
}

// MarkReadUpTo is the cutoff sweep: every message in the conversation
// with createdAt <= cutoff and sender != userID gains a read entry,
// and the user's unread counter resets to zero inside the same
// transaction, so no window exists where the counter is stale relative
// to the sweep. The cutoff comes from readUpToID's createdAt when
// given, otherwise from readAt.
func (s *ReceiptService) MarkReadUpTo(ctx context.Context, conversationID uuid.UUID, userID string, readUpToID uuid.UUID, readAt time.Time, from uuid.UUID) error {
	ctx, span := receiptTracer.Start(ctx, "ReceiptService.MarkReadUpTo", trace.WithAttributes(
		attribute.String("conv_id", conversationID.String()),
		attribute.String("user_id", userID),
	))
	defer span.End()
	if conversationID == uuid.Nil {
		return domain.ErrInvalidConversationID
	}
	if userID == "" {
		return domain.ErrInvalidUserID
	}
	cutoff := readAt
	if readUpToID != uuid.Nil {
		msg, err := s.msgs.GetMessage(ctx, readUpToID)
		if err != nil {
			span.RecordError(err)
			return err
		}
		cutoff = msg.CreatedAt
	}
	if cutoff.IsZero() {
		return domain.ErrInvalidReadCutoff
	}
	at := s.now()
	var marked []uuid.UUID
	err := s.tx.WithTx(ctx, func(txCtx context.Context) error {
		var txErr error
		if marked, txErr = s.msgs.MarkReadUpTo(txCtx, conversationID, userID, cutoff, at); txErr != nil {
			return txErr
		}
		return s.convs.ResetUnread(txCtx, conversationID, userID)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read sweep failed")
		s.log.ErrorContext(ctx, "receipts - mark read up to - sweep failed", "conv_id", conversationID.String(), "user_id", userID, "err", err)
		return err
	}
	span.SetAttributes(attribute.Int("marked", len(marked)))
	s.log.InfoContext(ctx, "receipts - mark read up to - sweep done", "conv_id", conversationID.String(), "user_id", userID, "marked", len(marked))
	event := domain.MessageReadEvent{
		Type:   domain.TypeMessageRead,
		ChatID: conversationID.String(),
		UserID: userID,
		ReadAt: at,
	}
	if readUpToID != uuid.Nil {
		event.ReadUpToID = readUpToID.String()
	}
	s.bcast.ToConversation(ctx, conversationID, event)
	s.bcast.ToUserOthers(ctx, userID, from, event)
	return nil
}

// MessageCreated merges any buffered receipts for the message, exactly
// once, through the same validation as the live path. The persist
// worker calls it right after the message commits.
func (s *ReceiptService) MessageCreated(ctx context.Context, messageID uuid.UUID) {
	entries := s.buf.drain(messageID)
	if len(entries) == 0 {
		return
	}
	s.log.InfoContext(ctx, "receipts - message created - merging buffered receipts", "message_id", messageID.String(), "entries", len(entries))
	for _, e := range entries {
		if err := s.mark(ctx, e.kind, messageID, e.userID, e.at, uuid.Nil); err != nil {
			s.log.ErrorContext(ctx, "receipts - message created - merge failed", "message_id", messageID.String(), "user_id", e.userID, "err", err)
		}
	}
}

// BufferedMessages is exposed for observability and tests.
func (s *ReceiptService) BufferedMessages() int {
	return s.buf.size()
}
