package domain

import (
	"encoding/json"
	"time"
)

// Wire event names. One constant per outbound push; the inbound
// command names live with the websocket handler that decodes them.
const (
	TypeError            = "error"
	TypeHandshake        = "handshake"
	TypePresenceChanged  = "presence-changed"
	TypeDeviceOffline    = "device-offline"
	TypeMessageAck       = "message-ack"
	TypeMessageNew       = "message-new"
	TypeMessageDelivered = "message-delivered"
	TypeMessageRead      = "message-read"
	TypeCallRinging      = "call-ringing"
	TypeCallAccepted     = "call-accepted"
	TypeCallRejected     = "call-rejected"
	TypeCallEnded        = "call-ended"
	TypeCallMissed       = "call-missed"
)

type AckStatus string

const (
	AckServerReceived AckStatus = "server_received"
	AckPersisted      AckStatus = "persisted"
)

// HandshakeResponse is sent once on connect.
type HandshakeResponse struct {
	Type         string `json:"type"`
	ConnectionID string `json:"connection_id"`
	UserID       string `json:"user_id"`
}

// PresenceChangedEvent announces an online/offline transition. Exactly
// one fires per transition: first connection in, last connection out.
type PresenceChangedEvent struct {
	Type       string    `json:"type"`
	UserID     string    `json:"user_id"`
	IsOnline   bool      `json:"is_online"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// DeviceOfflineEvent is the lighter notice sent only to a user's own
// remaining connections when one of several devices disconnects.
type DeviceOfflineEvent struct {
	Type     string `json:"type"`
	UserID   string `json:"user_id"`
	DeviceID string `json:"device_id,omitempty"`
}

// MessagePayload travels through the redis stream between ingest and
// the persist worker.
type MessagePayload struct {
	ClientMsgID    string    `json:"client_msg_id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Payload        string    `json:"payload"`
	CreatedAt      time.Time `json:"created_at"`
}

// MessageAck is sent only to the sender: server_received on ingest,
// persisted once the worker has committed the row.
type MessageAck struct {
	Type        string    `json:"type"`
	ClientMsgID string    `json:"client_msg_id"`
	MessageID   string    `json:"message_id,omitempty"`
	Status      AckStatus `json:"status"`
	Seq         int64     `json:"seq,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// MessageNewEvent is broadcast to conversation subscribers.
type MessageNewEvent struct {
	Type           string    `json:"type"`
	MessageID      string    `json:"message_id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Seq            int64     `json:"seq"`
	Payload        string    `json:"payload"`
	CreatedAt      time.Time `json:"created_at"`
}

type MessageDeliveredEvent struct {
	Type        string    `json:"type"`
	MessageID   string    `json:"message_id"`
	ChatID      string    `json:"chat_id"`
	UserID      string    `json:"user_id"`
	DeliveredAt time.Time `json:"delivered_at"`
}

type MessageReadEvent struct {
	Type       string    `json:"type"`
	ChatID     string    `json:"chat_id"`
	UserID     string    `json:"user_id"`
	ReadAt     time.Time `json:"read_at"`
	ReadUpToID string    `json:"read_up_to_id,omitempty"`
}

type CallRingingEvent struct {
	Type      string          `json:"type"`
	CallID    string          `json:"call_id"`
	ChatID    string          `json:"chat_id"`
	CallType  CallType        `json:"call_type"`
	CallerID  string          `json:"caller_id"`
	CalleeIDs []string        `json:"callee_ids"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

type CallAcceptedEvent struct {
	Type      string    `json:"type"`
	CallID    string    `json:"call_id"`
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

type CallRejectedEvent struct {
	Type      string    `json:"type"`
	CallID    string    `json:"call_id"`
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

type CallEndedEvent struct {
	Type       string    `json:"type"`
	CallID     string    `json:"call_id"`
	DurationMS int64     `json:"duration_ms"`
	EndedBy    string    `json:"ended_by"`
	Timestamp  time.Time `json:"timestamp"`
}

type CallMissedEvent struct {
	Type      string    `json:"type"`
	CallID    string    `json:"call_id"`
	ChatID    string    `json:"chat_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorMessage is the WS-safe error envelope.
type ErrorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
