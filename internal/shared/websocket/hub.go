package websocket

import (
	"context"
	"time"

	"github.com/cfuentes/bidroom/internal/shared/logger"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

// Hub keeps the client registry and fans room broadcasts out to the
// connections subscribed to that room, and only that room. Broadcasts are
// delivered in the order they were queued, the hub loop is single-threaded.
type Hub struct {
	// Registered clients, grouped by room ID.
	clients map[string]map[*Client]bool
	// Outbound room broadcasts.
	broadcast chan *Message
	// Outbound single-client sends. Send channels are closed by the hub loop
	// on unregister, so the loop must also be the only sender on them.
	direct chan *directMessage
	// Register requests from the clients.
	register chan *Client
	// Unregister requests from clients.
	unregister chan *Client
	// InboundMessages is consumed by module-specific handlers (the auction
	// protocol handler listens here).
	InboundMessages chan *ClientMessage
}

// Client represents one websocket connection subscribed to a room.
type Client struct {
	Hub  *Hub
	Conn *websocket.Conn
	// Buffered channel of outbound messages.
	Send chan []byte
	// The room this client is connected to.
	RoomID string
	// Identity of the connected user.
	Username string
}

type Message struct {
	RoomID string
	Data   []byte
}

// ClientMessage wraps an inbound frame with the client that sent it.
type ClientMessage struct {
	Client *Client
	Data   []byte
}

type directMessage struct {
	client *Client
	data   []byte
}

func NewHub() *Hub {
	return &Hub{
		broadcast:       make(chan *Message, 64),
		direct:          make(chan *directMessage, 64),
		register:        make(chan *Client),
		unregister:      make(chan *Client),
		clients:         make(map[string]map[*Client]bool),
		InboundMessages: make(chan *ClientMessage, 64),
	}
}

// Run starts the hub loop. Must run in its own goroutine.
func (h *Hub) Run(ctx context.Context) {
	log.Info("WebSocket hub started")
	for {
		select {
		case <-ctx.Done():
			log.Info("WebSocket hub shutting down")
			return

		case client := <-h.register:
			if _, ok := h.clients[client.RoomID]; !ok {
				h.clients[client.RoomID] = make(map[*Client]bool)
			}
			h.clients[client.RoomID][client] = true
			log.Info("Client registered",
				zap.String("username", client.Username),
				zap.String("roomID", client.RoomID),
				zap.Int("room_clients", len(h.clients[client.RoomID])),
			)

		case client := <-h.unregister:
			if clients, ok := h.clients[client.RoomID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.Send)
					log.Info("Client unregistered",
						zap.String("username", client.Username),
						zap.String("roomID", client.RoomID),
					)
					if len(clients) == 0 {
						delete(h.clients, client.RoomID)
						log.Info("Room group removed as empty", zap.String("roomID", client.RoomID))
					}
				}
			}

		case dm := <-h.direct:
			clients, ok := h.clients[dm.client.RoomID]
			if !ok || !clients[dm.client] {
				// Client unregistered while the send was queued; its Send
				// channel is closed. Drop the frame.
				log.Debug("Dropping direct message for unregistered client",
					zap.String("username", dm.client.Username),
					zap.String("roomID", dm.client.RoomID),
				)
				continue
			}
			select {
			case dm.client.Send <- dm.data:
			default:
				close(dm.client.Send)
				delete(clients, dm.client)
				log.Warn("Failed to send direct message to client, unregistering",
					zap.String("username", dm.client.Username),
					zap.String("roomID", dm.client.RoomID),
				)
			}

		case message := <-h.broadcast:
			if clients, ok := h.clients[message.RoomID]; ok {
				log.Debug("Broadcasting message to room",
					zap.String("roomID", message.RoomID),
					zap.Int("clients", len(clients)),
				)
				for client := range clients {
					select {
					case client.Send <- message.Data:
					default:
						// Client cannot keep up or is gone. Delivery is
						// best-effort, drop the connection.
						close(client.Send)
						delete(clients, client)
						log.Warn("Failed to send message to client, unregistering",
							zap.String("username", client.Username),
							zap.String("roomID", client.RoomID),
						)
					}
				}
			}
		}
	}
}

// RegisterClient registers a new client in the hub.
func (h *Hub) RegisterClient(client *Client) {
	h.register <- client
}

// UnregisterClient removes a client from the hub.
func (h *Hub) UnregisterClient(client *Client) {
	h.unregister <- client
}

// SendToClient queues a message for one client. Delivery happens on the hub
// loop, which skips clients that have already unregistered; callers may
// therefore race a disconnect safely.
func (h *Hub) SendToClient(client *Client, data []byte) {
	select {
	case h.direct <- &directMessage{client: client, data: data}:
	default:
		log.Error("Direct channel is full, message dropped",
			zap.String("username", client.Username),
			zap.String("roomID", client.RoomID),
		)
	}
}

// BroadcastToRoom queues a message for every client subscribed to roomID.
func (h *Hub) BroadcastToRoom(roomID string, data []byte) {
	select {
	case h.broadcast <- &Message{RoomID: roomID, Data: data}:
		log.Debug("Message queued for broadcast", zap.String("roomID", roomID))
	default:
		log.Error("Broadcast channel is full, message dropped", zap.String("roomID", roomID))
	}
}

// ReadPump reads frames from the websocket and forwards them to the hub's
// inbound channel. Blocks until the connection drops; run one per client.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.Hub.UnregisterClient(c)
		c.Conn.Close()
		log.Info("ReadPump stopped for client",
			zap.String("username", c.Username),
			zap.String("roomID", c.RoomID),
		)
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error("WebSocket read error",
					zap.String("username", c.Username),
					zap.String("roomID", c.RoomID),
					zap.Error(err),
				)
			} else {
				log.Info("WebSocket connection closed by peer",
					zap.String("username", c.Username),
					zap.String("roomID", c.RoomID),
				)
			}
			break
		}

		select {
		case c.Hub.InboundMessages <- &ClientMessage{Client: c, Data: message}:
		default:
			log.Error("Hub InboundMessages channel is full, dropping message",
				zap.String("username", c.Username),
				zap.String("roomID", c.RoomID),
			)
		}
	}
}

// WritePump pumps messages from the hub to the websocket connection. The
// application ensures at most one writer per connection by invoking
// WriteControl and WriteMessage from this goroutine only.
func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		log.Info("WritePump stopped for client",
			zap.String("username", c.Username),
			zap.String("roomID", c.RoomID),
		)
	}()

	for {
		select {
		case <-ctx.Done():
			_ = c.Conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return

		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error("Failed to write message to client",
					zap.String("username", c.Username),
					zap.String("roomID", c.RoomID),
					zap.Error(err),
				)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
