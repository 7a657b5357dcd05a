package services

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"github.com/RohanSantra/Connecto-sub000/internal/app/registry"
	"github.com/RohanSantra/Connecto-sub000/internal/core/contracts"
	"github.com/RohanSantra/Connecto-sub000/internal/core/domain"
)

// BroadcastService resolves a target audience to live connections via
// the registry and pushes the payload to each. Canonical state changes
// are recorded by the caller before any publish, so a failed or absent
// push is never an error here: offline is a normal, common state.
type BroadcastService struct {
	registry *registry.Registry
	convRepo domain.ConversationRepository
	log      *slog.Logger
}

var _ contracts.Broadcaster = (*BroadcastService)(nil)

func NewBroadcastService(
	log *slog.Logger,
	reg *registry.Registry,
	convRepo domain.ConversationRepository,
) *BroadcastService {
	return &BroadcastService{
		log:      log,
		registry: reg,
		convRepo: convRepo,
	}
}

func (b *BroadcastService) ToUser(ctx context.Context, userID string, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		b.log.ErrorContext(ctx, "broadcast - to user - marshal failed", "user_id", userID, "err", err)
		return
	}
	b.push(ctx, b.registry.ConnectionsFor(userID), uuid.Nil, data)
}

func (b *BroadcastService) ToUserOthers(ctx context.Context, userID string, exclude uuid.UUID, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		b.log.ErrorContext(ctx, "broadcast - to user others - marshal failed", "user_id", userID, "err", err)
		return
	}
	b.push(ctx, b.registry.ConnectionsFor(userID), exclude, data)
}

func (b *BroadcastService) ToConversation(ctx context.Context, conversationID uuid.UUID, event any) {
	members, err := b.convRepo.Members(ctx, conversationID)
	if err != nil {
		b.log.ErrorContext(ctx, "broadcast - to conversation - members lookup failed", "conv_id", conversationID.String(), "err", err)
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		b.log.ErrorContext(ctx, "broadcast - to conversation - marshal failed", "conv_id", conversationID.String(), "err", err)
		return
	}
	for _, userID := range members {
		b.push(ctx, b.registry.ConnectionsFor(userID), uuid.Nil, data)
	}
}

func (b *BroadcastService) ToAll(ctx context.Context, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		b.log.ErrorContext(ctx, "broadcast - to all - marshal failed", "err", err)
		return
	}
	b.push(ctx, b.registry.All(), uuid.Nil, data)
}

func (b *BroadcastService) push(ctx context.Context, clients []contracts.Client, exclude uuid.UUID, data []byte) {
	for _, c := range clients {
		if c.ID() == exclude {
			continue
		}
		if err := c.Send(ctx, data); err != nil {
			b.log.DebugContext(ctx, "broadcast - push - send skipped", "conn_id", c.ID().String(), "user_id", c.UserID(), "err", err)
		}
	}
}
