package websocket

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// MessageType tags every protocol frame. The set is closed: frames with an
// unknown type are rejected, never coerced.
type MessageType string

const (
	// client -> server
	MessageTypeClientPlaceBid MessageType = "place_bid"
	MessageTypeClientQuit     MessageType = "quit_auction"

	// server -> client
	MessageTypeInitialState   MessageType = "initial_state"
	MessageTypeBidAccepted    MessageType = "bid_accepted"
	MessageTypeMemberJoined   MessageType = "member_joined"
	MessageTypeMemberLeft     MessageType = "member_left"
	MessageTypeCreatorLeft    MessageType = "creator_left"
	MessageTypeAuctionEnded   MessageType = "auction_ended"
	MessageTypeAuctionDeleted MessageType = "auction_deleted"
	MessageTypeServerError    MessageType = "server_error"
)

// BaseMessage carries the type tag every frame starts with.
type BaseMessage struct {
	Type MessageType `json:"type"`
}

// ClientPlaceBidMessage is a bid submission over the socket.
type ClientPlaceBidMessage struct {
	BaseMessage
	Payload struct {
		RoomID   string  `json:"room_id"`
		Username string  `json:"username"`
		Amount   float64 `json:"amount"`
	} `json:"payload"`
}

// ServerBidAcceptedMessage announces an accepted bid to the whole room.
type ServerBidAcceptedMessage struct {
	BaseMessage
	Payload struct {
		RoomID     string    `json:"room_id"`
		BidID      uuid.UUID `json:"bid_id"`
		Username   string    `json:"username"`
		Amount     float64   `json:"amount"`
		CurrentBid float64   `json:"current_bid"`
		PlacedAt   time.Time `json:"placed_at"`
	} `json:"payload"`
}

// ServerRosterMessage carries a membership change plus the updated roster.
// Used for member_joined, member_left and creator_left frames.
type ServerRosterMessage struct {
	BaseMessage
	Payload struct {
		RoomID      string   `json:"room_id"`
		Username    string   `json:"username"`
		Reason      string   `json:"reason,omitempty"`
		Message     string   `json:"message,omitempty"`
		OnlineUsers []string `json:"online_users"`
	} `json:"payload"`
}

// ServerAuctionEndedMessage is emitted once per room on active -> ended.
type ServerAuctionEndedMessage struct {
	BaseMessage
	Payload struct {
		RoomID     string  `json:"room_id"`
		Winner     string  `json:"winner"`
		FinalPrice float64 `json:"final_price"`
		EndedBy    string  `json:"ended_by"`
		Message    string  `json:"message"`
	} `json:"payload"`
}

// ServerAuctionDeletedMessage tells subscribers the room is gone.
type ServerAuctionDeletedMessage struct {
	BaseMessage
	Payload struct {
		RoomID     string          `json:"room_id"`
		Message    string          `json:"message"`
		FinalStats json.RawMessage `json:"final_stats"`
	} `json:"payload"`
}

// ServerInitialStateMessage is the full-state snapshot sent on connect so a
// reconnecting client can resynchronize without relying on buffered events.
type ServerInitialStateMessage struct {
	BaseMessage
	Payload json.RawMessage `json:"payload"`
}

type ServerErrorMessage struct {
	BaseMessage
	Payload struct {
		Error string `json:"error"`
	} `json:"payload"`
}

var errUnknownMessageType = errors.New("unknown message type")

// decodeType extracts and validates the frame's type tag.
func decodeType(data []byte) (MessageType, error) {
	var base BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		return "", err
	}
	switch base.Type {
	case MessageTypeClientPlaceBid, MessageTypeClientQuit:
		return base.Type, nil
	default:
		return base.Type, errUnknownMessageType
	}
}
