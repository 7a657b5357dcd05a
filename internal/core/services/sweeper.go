package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/RohanSantra/Connecto-sub000/internal/core/domain"
)

// OfflineSweeper replays delivery receipts when a user comes online:
// every message across their conversations that never reached them
// gains a delivery entry at "now", capped per sweep so a reconnect
// after a long absence cannot turn into a replay storm.
type OfflineSweeper struct {
	msgs     domain.MessageRepository
	receipts *ReceiptService
	limit    int
	log      *slog.Logger
	now      func() time.Time
}

var _ Sweeper = (*OfflineSweeper)(nil)

func NewOfflineSweeper(
	log *slog.Logger,
	msgs domain.MessageRepository,
	receipts *ReceiptService,
	limit int,
) *OfflineSweeper {
	if limit <= 0 {
		limit = 100
	}
	return &OfflineSweeper{
		log:      log,
		msgs:     msgs,
		receipts: receipts,
		limit:    limit,
		now:      time.Now,
	}
}

func (s *OfflineSweeper) Sweep(ctx context.Context, userID string) error {
	if userID == "" {
		return domain.ErrInvalidUserID
	}
	msgs, err := s.msgs.ListUndelivered(ctx, userID, s.limit)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}
	at := s.now()
	// Each receipt goes through the reconciler so idempotency and the
	// delivered-status events behave exactly like the live path.
	for _, m := range msgs {
		if err := s.receipts.MarkDelivered(ctx, m.ID, userID, at, uuid.Nil); err != nil {
			s.log.ErrorContext(ctx, "sweeper - sweep - mark delivered failed", "message_id", m.ID.String(), "user_id", userID, "err", err)
		}
	}
	s.log.InfoContext(ctx, "sweeper - sweep - replayed delivery receipts", "user_id", userID, "count", len(msgs))
	return nil
}
