package contracts

import (
	"context"

	"github.com/google/uuid"
)

// BlockChecker answers the social-graph predicate the call coordinator
// consults before ringing anyone. Evaluation of the graph itself lives
// outside this core.
type BlockChecker interface {
	// IsBlocked reports whether a direct block exists between the two
	// users, in either direction.
	IsBlocked(ctx context.Context, userID, otherID string) (bool, error)
	// IsConversationBlocked reports whether the user has blocked the
	// conversation (the group-call guard).
	IsConversationBlocked(ctx context.Context, userID string, conversationID uuid.UUID) (bool, error)
}
