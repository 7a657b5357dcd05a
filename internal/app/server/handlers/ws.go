package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/RohanSantra/Connecto-sub000/internal/app/server/ws"
	"github.com/RohanSantra/Connecto-sub000/internal/core/domain"
	"github.com/RohanSantra/Connecto-sub000/internal/core/services"
	"github.com/RohanSantra/Connecto-sub000/pkg/middleware"
)

// WSHandler upgrades the transport, registers the connection with the
// presence service, and pumps inbound commands into the coordinator.
type WSHandler struct {
	presence *services.PresenceService
	receipts *services.ReceiptService
	calls    *services.CallService
	messages *services.MessageService
	log      *slog.Logger
}

func NewWSHandler(
	log *slog.Logger,
	presence *services.PresenceService,
	receipts *services.ReceiptService,
	calls *services.CallService,
	messages *services.MessageService,
) *WSHandler {
	return &WSHandler{
		log:      log,
		presence: presence,
		receipts: receipts,
		calls:    calls,
		messages: messages,
	}
}

func (h *WSHandler) Handler(w http.ResponseWriter, r *http.Request) {
	span := trace.SpanFromContext(r.Context())
	userID, ok := r.Context().Value(middleware.UserIDKey).(string)
	if !ok || userID == "" {
		h.log.ErrorContext(r.Context(), "ws handler - unauthorised missing user_id")
		http.Error(w, "Unauthorized: User ID missing", http.StatusUnauthorized)
		return
	}
	span.SetAttributes(attribute.String("user.id", userID))
	deviceID := r.URL.Query().Get("device_id")

	sessionCtx := context.WithoutCancel(r.Context())
	ctx, cancel := context.WithCancel(sessionCtx)
	upgrader := websocket.Upgrader{
		ReadBufferSize:  32,
		WriteBufferSize: 32,
		CheckOrigin: func(r *http.Request) bool {
			return true // tighten later
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.ErrorContext(r.Context(), "ws handler - upgrade failed", "err", err)
		cancel()
		return
	}
	defer conn.Close()
	conn.SetCloseHandler(func(code int, text string) error {
		cancel()
		return nil
	})
	socket := ws.NewWebSocket(ctx, conn)
	client := ws.NewClient(ctx, socket, userID, deviceID)

	_ = conn.WriteJSON(domain.HandshakeResponse{
		Type:         domain.TypeHandshake,
		ConnectionID: client.ID().String(),
		UserID:       userID,
	})
	span.SetAttributes(attribute.String("conn.id", client.ID().String()))

	h.presence.HandleConnect(ctx, client)
	// A peer that vanishes without a close frame still unwinds here
	// when the read loop errors out.
	defer func() {
		h.presence.HandleDisconnect(sessionCtx, client)
		client.Close()
		cancel()
	}()
	h.log.InfoContext(ctx, "ws handler - connection established", "user_id", userID, "conn_id", client.ID().String(), "device_id", deviceID)

	socket.ReadLoop(func(data []byte) {
		go h.dispatch(ctx, client, data)
	})
}
