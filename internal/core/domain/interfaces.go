package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MessageRepository exposes the two receipt sets on persisted messages
// plus the ingest path. Insert methods are idempotent at the store
// level (ON CONFLICT DO NOTHING) and report whether a row was added,
// which is what keeps duplicate receipts silent no-ops.
type MessageRepository interface {
	GetMessage(ctx context.Context, id uuid.UUID) (*Message, error)
	// AddDeliveryEntry inserts into the delivery set unless the entry
	// already exists. Returns true when a new entry was written.
	AddDeliveryEntry(ctx context.Context, messageID uuid.UUID, userID string, at time.Time) (bool, error)
	// AddReadEntry behaves like AddDeliveryEntry for the read set.
	AddReadEntry(ctx context.Context, messageID uuid.UUID, userID string, at time.Time) (bool, error)
	// MarkReadUpTo inserts read entries for every message in the
	// conversation with createdAt <= cutoff, sender != userID, and no
	// existing entry. Returns the message ids actually marked. Runs on
	// the transaction carried by ctx so the caller can pair it with
	// the unread counter reset.
	MarkReadUpTo(ctx context.Context, conversationID uuid.UUID, userID string, cutoff, at time.Time) ([]uuid.UUID, error)
	// ListUndelivered returns up to limit messages across all of the
	// user's conversations where the user is neither sender nor in the
	// delivery set, oldest first.
	ListUndelivered(ctx context.Context, userID string, limit int) ([]Message, error)
	// SaveWithSequence increments the conversation sequence and inserts
	// the message in one transaction, returning the assigned sequence.
	SaveWithSequence(ctx context.Context, msg *Message) (int64, error)
}

// ConversationRepository handles membership and the per-user unread
// counters that the cutoff read sweep resets.
type ConversationRepository interface {
	Members(ctx context.Context, conversationID uuid.UUID) ([]string, error)
	IsMember(ctx context.Context, conversationID uuid.UUID, userID string) (bool, error)
	ResetUnread(ctx context.Context, conversationID uuid.UUID, userID string) error
	// IncrementUnread bumps the counter for every member except the
	// sender.
	IncrementUnread(ctx context.Context, conversationID uuid.UUID, exceptUserID string) error
}

// CallRepository persists the call record alongside the in-memory
// state machine.
type CallRepository interface {
	Create(ctx context.Context, call *Call) error
	UpdateStatus(ctx context.Context, call *Call) error
	GetCall(ctx context.Context, id uuid.UUID) (*Call, error)
}

// UserStatusRepository persists the derived presence flag. The
// presence service is its sole writer.
type UserStatusRepository interface {
	SetOnline(ctx context.Context, userID string, online bool, lastSeen time.Time) error
	GetStatus(ctx context.Context, userID string) (*UserStatus, error)
}
