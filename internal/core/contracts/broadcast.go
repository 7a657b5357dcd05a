package contracts

import (
	"context"

	"github.com/google/uuid"
)

// Broadcaster resolves a user, conversation, or global target to live
// connections and pushes one event payload to each. Delivery is
// at-least-once to currently connected recipients only; nothing is
// queued for absent ones. Per-connection ordering follows publish
// order.
type Broadcaster interface {
	ToUser(ctx context.Context, userID string, event any)
	// ToUserOthers targets the user's connections except the one named
	// by exclude, so a device's own action still updates its siblings.
	ToUserOthers(ctx context.Context, userID string, exclude uuid.UUID, event any)
	ToConversation(ctx context.Context, conversationID uuid.UUID, event any)
	ToAll(ctx context.Context, event any)
}
