package ws

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/RohanSantra/Connecto-sub000/internal/core/contracts"
)

// RuntimeClient pumps outbound events through one buffered channel per
// connection, which is what preserves per-connection publish order.
type RuntimeClient struct {
	ctx      context.Context
	cancel   context.CancelFunc
	ws       *WebSocket
	id       uuid.UUID
	userID   string
	deviceID string
	out      chan []byte
	once     sync.Once
}

var _ contracts.Client = (*RuntimeClient)(nil)

func NewClient(
	parent context.Context,
	ws *WebSocket,
	userID, deviceID string,
) *RuntimeClient {
	ctx, cancel := context.WithCancel(parent)
	c := &RuntimeClient{
		ctx:      ctx,
		cancel:   cancel,
		ws:       ws,
		id:       uuid.New(),
		userID:   userID,
		deviceID: deviceID,
		out:      make(chan []byte, 256),
	}
	go c.writeLoop()
	return c
}

func (c *RuntimeClient) ID() uuid.UUID   { return c.id }
func (c *RuntimeClient) UserID() string  { return c.userID }
func (c *RuntimeClient) DeviceID() string { return c.deviceID }

func (c *RuntimeClient) Send(ctx context.Context, data []byte) error {
	select {
	case c.out <- data:
		return nil
	case <-c.ctx.Done():
		return errors.New("client closed")
	}
}

func (c *RuntimeClient) Close() {
	// The out channel stays open: a concurrent Send must never panic
	// on a closed channel, and the cancelled context unblocks both
	// sides.
	c.once.Do(func() {
		c.cancel()
		c.ws.Close()
	})
}

func (c *RuntimeClient) writeLoop() {
	defer c.Close()
	for {
		select {
		case <-c.ctx.Done():
			return
		case data := <-c.out:
			_ = c.ws.WriteMessage(data)
		}
	}
}
