package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/RohanSantra/Connecto-sub000/internal/core/contracts"
	"github.com/RohanSantra/Connecto-sub000/internal/core/domain"
)

// Inbound command names. Connection open/close are the handshake and
// the socket close themselves.
const (
	cmdMarkDelivered = "mark-delivered"
	cmdMarkRead      = "mark-read"
	cmdMessageSend   = "message-send"
	cmdCallStart     = "call-start"
	cmdCallAccept    = "call-accept"
	cmdCallReject    = "call-reject"
	cmdCallEnd       = "call-end"
	cmdCallMissed    = "call-missed"
)

type markDeliveredCmd struct {
	MessageID string     `json:"message_id"`
	At        *time.Time `json:"at,omitempty"`
}

type markReadCmd struct {
	ChatID     string     `json:"chat_id"`
	MessageID  string     `json:"message_id,omitempty"`
	ReadUpToID string     `json:"read_up_to_id,omitempty"`
	ReadAt     *time.Time `json:"read_at,omitempty"`
}

type messageSendCmd struct {
	ClientMsgID string `json:"client_msg_id"`
	ChatID      string `json:"chat_id"`
	Payload     string `json:"payload"`
}

type callStartCmd struct {
	ChatID   string          `json:"chat_id"`
	CallType string          `json:"call_type"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

type callActionCmd struct {
	CallID string `json:"call_id"`
}

// dispatch routes one inbound frame on its type field. Command
// failures are typed, WS-safe errors back to the acting connection;
// they never tear the connection down.
func (h *WSHandler) dispatch(ctx context.Context, c contracts.Client, data []byte) {
	cmdType := gjson.GetBytes(data, "type").String()
	var err error
	switch cmdType {
	case cmdMarkDelivered:
		err = h.handleMarkDelivered(ctx, c, data)
	case cmdMarkRead:
		err = h.handleMarkRead(ctx, c, data)
	case cmdMessageSend:
		err = h.handleMessageSend(ctx, c, data)
	case cmdCallStart:
		err = h.handleCallStart(ctx, c, data)
	case cmdCallAccept:
		err = h.handleCallAction(ctx, c, data, h.calls.Accept)
	case cmdCallReject:
		err = h.handleCallAction(ctx, c, data, h.calls.Reject)
	case cmdCallEnd:
		err = h.handleCallAction(ctx, c, data, h.calls.End)
	case cmdCallMissed:
		err = h.handleCallAction(ctx, c, data, h.calls.MarkMissed)
	default:
		h.log.WarnContext(ctx, "ws dispatch - unknown command", "type", cmdType, "user_id", c.UserID())
		h.sendError(ctx, c, "invalid_argument", "unknown command type")
		return
	}
	if err != nil {
		h.log.WarnContext(ctx, "ws dispatch - command failed", "type", cmdType, "user_id", c.UserID(), "err", err)
		h.sendError(ctx, c, errCode(err), err.Error())
	}
}

func (h *WSHandler) handleMarkDelivered(ctx context.Context, c contracts.Client, data []byte) error {
	var cmd markDeliveredCmd
	if err := json.Unmarshal(data, &cmd); err != nil {
		return domain.ErrInvalidMessageID
	}
	messageID, err := uuid.Parse(cmd.MessageID)
	if err != nil {
		return domain.ErrInvalidMessageID
	}
	var at time.Time
	if cmd.At != nil {
		at = *cmd.At
	}
	return h.receipts.MarkDelivered(ctx, messageID, c.UserID(), at, c.ID())
}

func (h *WSHandler) handleMarkRead(ctx context.Context, c contracts.Client, data []byte) error {
	var cmd markReadCmd
	if err := json.Unmarshal(data, &cmd); err != nil {
		return domain.ErrInvalidConversationID
	}
	// Single-message mode targets one read entry; the other two forms
	// resolve to a cutoff sweep over the conversation.
	if cmd.MessageID != "" {
		messageID, err := uuid.Parse(cmd.MessageID)
		if err != nil {
			return domain.ErrInvalidMessageID
		}
		var at time.Time
		if cmd.ReadAt != nil {
			at = *cmd.ReadAt
		}
		return h.receipts.MarkRead(ctx, messageID, c.UserID(), at, c.ID())
	}
	chatID, err := uuid.Parse(cmd.ChatID)
	if err != nil {
		return domain.ErrInvalidConversationID
	}
	readUpToID := uuid.Nil
	if cmd.ReadUpToID != "" {
		if readUpToID, err = uuid.Parse(cmd.ReadUpToID); err != nil {
			return domain.ErrInvalidMessageID
		}
	}
	var readAt time.Time
	if cmd.ReadAt != nil {
		readAt = *cmd.ReadAt
	}
	return h.receipts.MarkReadUpTo(ctx, chatID, c.UserID(), readUpToID, readAt, c.ID())
}

func (h *WSHandler) handleMessageSend(ctx context.Context, c contracts.Client, data []byte) error {
	var cmd messageSendCmd
	if err := json.Unmarshal(data, &cmd); err != nil {
		return domain.ErrInvalidConversationID
	}
	chatID, err := uuid.Parse(cmd.ChatID)
	if err != nil {
		return domain.ErrInvalidConversationID
	}
	return h.messages.AcceptMessage(ctx, c.UserID(), chatID, cmd.Payload, cmd.ClientMsgID)
}

func (h *WSHandler) handleCallStart(ctx context.Context, c contracts.Client, data []byte) error {
	var cmd callStartCmd
	if err := json.Unmarshal(data, &cmd); err != nil {
		return domain.ErrInvalidConversationID
	}
	chatID, err := uuid.Parse(cmd.ChatID)
	if err != nil {
		return domain.ErrInvalidConversationID
	}
	_, err = h.calls.Start(ctx, c.UserID(), chatID, domain.CallType(cmd.CallType), cmd.Metadata, c.ID())
	return err
}

func (h *WSHandler) handleCallAction(ctx context.Context, c contracts.Client, data []byte, action func(context.Context, uuid.UUID, string) error) error {
	var cmd callActionCmd
	if err := json.Unmarshal(data, &cmd); err != nil {
		return domain.ErrInvalidCallID
	}
	callID, err := uuid.Parse(cmd.CallID)
	if err != nil {
		return domain.ErrInvalidCallID
	}
	return action(ctx, callID, c.UserID())
}

func (h *WSHandler) sendError(ctx context.Context, c contracts.Client, code, msg string) {
	data, _ := json.Marshal(domain.ErrorMessage{
		Type:    domain.TypeError,
		Code:    code,
		Message: msg,
	})
	_ = c.Send(ctx, data)
}

// errCode maps sentinel errors onto the wire taxonomy.
func errCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidConversationID),
		errors.Is(err, domain.ErrInvalidMessageID),
		errors.Is(err, domain.ErrInvalidCallID),
		errors.Is(err, domain.ErrInvalidUserID),
		errors.Is(err, domain.ErrInvalidCallType),
		errors.Is(err, domain.ErrInvalidReadCutoff):
		return "invalid_argument"
	case errors.Is(err, domain.ErrNotParticipant),
		errors.Is(err, domain.ErrBlocked):
		return "permission_denied"
	case errors.Is(err, domain.ErrCallAlreadyHandled):
		return "state_conflict"
	case errors.Is(err, domain.ErrCallCooldown):
		return "rate_limited"
	case errors.Is(err, domain.ErrConversationNotFound),
		errors.Is(err, domain.ErrMessageNotFound),
		errors.Is(err, domain.ErrCallNotFound),
		errors.Is(err, domain.ErrUserNotFound):
		return "not_found"
	default:
		return "internal"
	}
}
