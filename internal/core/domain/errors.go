package domain

import "errors"

// Sentinel errors returned synchronously to the command's caller.
// Idempotent no-ops (duplicate receipt, already delivered) succeed
// silently and never surface one of these.
var (
	// Validation
	ErrInvalidConversationID = errors.New("invalid conversation id")
	ErrInvalidMessageID      = errors.New("invalid message id")
	ErrInvalidCallID         = errors.New("invalid call id")
	ErrInvalidUserID         = errors.New("invalid user id")
	ErrInvalidCallType       = errors.New("invalid call type")
	ErrInvalidReadCutoff     = errors.New("read cutoff missing")

	// Permission
	ErrNotParticipant = errors.New("user is not a conversation participant")
	ErrBlocked        = errors.New("blocked relationship forbids the call")

	// State conflict: a duplicate or late transition on a call that
	// some other actor already resolved.
	ErrCallAlreadyHandled = errors.New("call already handled")

	// Rate limit
	ErrCallCooldown = errors.New("call cooldown still active")

	// Not found
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found")
	ErrCallNotFound         = errors.New("call not found")
	ErrUserNotFound         = errors.New("user not found")

	ErrSequenceNotInitialized = errors.New("conversation sequence not initialized")
)
