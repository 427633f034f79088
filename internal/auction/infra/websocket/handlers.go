package websocket

import (
	"context"
	"encoding/json"

	"github.com/cfuentes/bidroom/internal/auction/application"
	"github.com/cfuentes/bidroom/internal/auction/domain"
	ws "github.com/cfuentes/bidroom/internal/shared/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

// AuctionWSHandler handles inbound protocol frames for the auction module.
type AuctionWSHandler struct {
	service application.AuctionService
	hub     *ws.Hub
}

func NewAuctionWSHandler(service application.AuctionService, hub *ws.Hub) *AuctionWSHandler {
	return &AuctionWSHandler{
		service: service,
		hub:     hub,
	}
}

// RegisterRoutes wires the websocket endpoint. Connecting to a room is the
// join; the connection closing is the disconnect-leave.
func (h *AuctionWSHandler) RegisterRoutes(ctx context.Context, app *fiber.App) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/auction/:roomID", websocket.New(func(conn *websocket.Conn) {
		roomID := conn.Params("roomID")
		username := conn.Query("username")
		if username == "" {
			h.writeError(conn, "username is required")
			_ = conn.Close()
			return
		}

		client := &ws.Client{
			Hub:      h.hub,
			Conn:     conn,
			Send:     make(chan []byte, 256),
			RoomID:   roomID,
			Username: username,
		}
		h.hub.RegisterClient(client)

		if _, err := h.service.Join(ctx, roomID, username); err != nil {
			h.writeError(conn, err.Error())
			h.hub.UnregisterClient(client)
			_ = conn.Close()
			return
		}
		h.sendInitialState(ctx, client)

		go client.WritePump(ctx)
		client.ReadPump(ctx) // blocks until the connection drops

		// Socket gone: close this user's presence epoch. A manual quit was
		// already recorded by its own frame/route; the leave below is then a
		// no-op on membership.
		if _, err := h.service.Leave(ctx, roomID, username, domain.LeaveDisconnect); err != nil {
			log.Warn("failed to record disconnect leave",
				zap.String("roomID", roomID),
				zap.String("username", username),
				zap.Error(err),
			)
		}
	}))
}

// ListenForMessages consumes the hub's inbound channel and dispatches each
// frame. Runs in its own goroutine.
func (h *AuctionWSHandler) ListenForMessages(ctx context.Context) {
	log.Info("AuctionWSHandler started listening for inbound messages")
	for {
		select {
		case <-ctx.Done():
			log.Info("AuctionWSHandler stopped listening for inbound messages")
			return
		case msg := <-h.hub.InboundMessages:
			go h.processMessage(ctx, msg.Client, msg.Data)
		}
	}
}

func (h *AuctionWSHandler) processMessage(ctx context.Context, client *ws.Client, data []byte) {
	msgType, err := decodeType(data)
	if err != nil {
		h.sendErrorToClient(client, "invalid message format")
		return
	}
	switch msgType {
	case MessageTypeClientPlaceBid:
		h.handlePlaceBid(ctx, client, data)
	case MessageTypeClientQuit:
		h.handleQuit(ctx, client)
	}
}

func (h *AuctionWSHandler) handlePlaceBid(ctx context.Context, client *ws.Client, data []byte) {
	var bidMsg ClientPlaceBidMessage
	if err := json.Unmarshal(data, &bidMsg); err != nil {
		h.sendErrorToClient(client, "invalid bid message format")
		return
	}
	if bidMsg.Payload.RoomID != "" && bidMsg.Payload.RoomID != client.RoomID {
		h.sendErrorToClient(client, "room ID mismatch")
		return
	}

	cmd := application.PlaceBidDTO{
		RoomID:   client.RoomID,
		Username: client.Username,
		Amount:   bidMsg.Payload.Amount,
	}
	if _, err := h.service.PlaceBid(ctx, cmd); err != nil {
		// Rejections go back to the submitter only; accepted bids are
		// broadcast by the use case itself.
		h.sendErrorToClient(client, err.Error())
	}
}

func (h *AuctionWSHandler) handleQuit(ctx context.Context, client *ws.Client) {
	if _, err := h.service.Leave(ctx, client.RoomID, client.Username, domain.LeaveManualQuit); err != nil {
		h.sendErrorToClient(client, err.Error())
	}
}

func (h *AuctionWSHandler) sendInitialState(ctx context.Context, client *ws.Client) {
	snapshot, err := h.service.GetRoomSnapshot(ctx, client.RoomID)
	if err != nil {
		h.sendErrorToClient(client, "failed to load room state")
		return
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		log.Error("failed to marshal initial state", zap.Error(err))
		return
	}
	msg := ServerInitialStateMessage{
		BaseMessage: BaseMessage{Type: MessageTypeInitialState},
		Payload:     payload,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error("failed to marshal initial state frame", zap.Error(err))
		return
	}
	h.hub.SendToClient(client, data)
}

// sendErrorToClient delivers an error frame to one client only. Routed
// through the hub so a client disconnecting mid-dispatch just drops the
// frame instead of racing the Send channel close.
func (h *AuctionWSHandler) sendErrorToClient(client *ws.Client, errorMessage string) {
	errMsg := ServerErrorMessage{BaseMessage: BaseMessage{Type: MessageTypeServerError}}
	errMsg.Payload.Error = errorMessage
	data, err := json.Marshal(errMsg)
	if err != nil {
		log.Error("failed to marshal ServerErrorMessage", zap.Error(err))
		return
	}
	h.hub.SendToClient(client, data)
}

// writeError writes directly on a connection that has no pumps yet.
func (h *AuctionWSHandler) writeError(conn *websocket.Conn, errorMessage string) {
	errMsg := ServerErrorMessage{BaseMessage: BaseMessage{Type: MessageTypeServerError}}
	errMsg.Payload.Error = errorMessage
	data, err := json.Marshal(errMsg)
	if err != nil {
		return
	}
	_ = conn.WriteMessage(websocket.TextMessage, data)
}
