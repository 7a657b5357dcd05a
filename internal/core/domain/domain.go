package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Connection is one live transport session belonging to one user. A
// user with several devices or tabs holds several Connections at once.
type Connection struct {
	ID       uuid.UUID
	UserID   string
	DeviceID string
	OpenedAt time.Time
}

// Message is owned by the persistence layer; the coordinator only ever
// touches its delivery and read sets. Payload is opaque ciphertext.
type Message struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	SenderID       string
	Seq            int64
	Payload        string
	CreatedAt      time.Time
}

// DeliveryEntry records that a message reached one recipient's device
// environment. Entries are monotonic: once present, never removed.
type DeliveryEntry struct {
	UserID      string
	DeliveredAt time.Time
}

// ReadEntry records that a recipient viewed a message.
type ReadEntry struct {
	UserID string
	ReadAt time.Time
}

type CallType string

const (
	CallAudio CallType = "audio"
	CallVideo CallType = "video"
)

func (t CallType) Valid() bool {
	return t == CallAudio || t == CallVideo
}

type CallStatus string

const (
	CallRinging  CallStatus = "ringing"
	CallAccepted CallStatus = "accepted"
	CallRejected CallStatus = "rejected"
	CallEnded    CallStatus = "ended"
	CallMissed   CallStatus = "missed"
)

// Terminal reports whether no further transition is permitted.
func (s CallStatus) Terminal() bool {
	return s == CallRejected || s == CallEnded || s == CallMissed
}

// Call is an ephemeral voice/video session tracked through a fixed
// lifecycle: ringing → accepted → ended, or ringing → rejected/missed.
type Call struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	CallerID       string
	CalleeIDs      []string
	Type           CallType
	Status         CallStatus
	Metadata       json.RawMessage
	StartedAt      time.Time
	AcceptedAt     *time.Time
	EndedAt        *time.Time
	// Duration is derived from AcceptedAt/EndedAt and stays zero for
	// calls that were never accepted.
	Duration time.Duration
}

// Participants returns the caller plus every callee.
func (c *Call) Participants() []string {
	out := make([]string, 0, len(c.CalleeIDs)+1)
	out = append(out, c.CallerID)
	out = append(out, c.CalleeIDs...)
	return out
}

// HasParticipant reports whether userID takes part in the call.
func (c *Call) HasParticipant(userID string) bool {
	if c.CallerID == userID {
		return true
	}
	for _, id := range c.CalleeIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// UserStatus is the persisted per-user presence flag. Only the
// presence service writes it; everything else reads.
type UserStatus struct {
	UserID     string
	IsOnline   bool
	LastSeenAt time.Time
}
