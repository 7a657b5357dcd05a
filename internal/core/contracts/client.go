package contracts

import (
	"context"

	"github.com/google/uuid"
)

// Client is the minimal surface the registry and broadcaster need to
// talk to one live websocket connection.
type Client interface {
	ID() uuid.UUID
	UserID() string
	DeviceID() string
	Send(ctx context.Context, data []byte) error
	Close()
}
