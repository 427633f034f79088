package websocket

import (
	"encoding/json"
	"fmt"

	"github.com/cfuentes/bidroom/internal/auction/application"
	"github.com/cfuentes/bidroom/internal/auction/domain"
	"github.com/cfuentes/bidroom/internal/shared/logger"
	ws "github.com/cfuentes/bidroom/internal/shared/websocket"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// HubNotifier implements application.RoomNotifier by encoding tagged frames
// and handing them to the shared hub. Callers invoke it under the room lock,
// so frames are queued in commit order.
type HubNotifier struct {
	hub *ws.Hub
}

func NewHubNotifier(hub *ws.Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

var _ application.RoomNotifier = (*HubNotifier)(nil)

func (n *HubNotifier) send(roomID string, msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error("failed to marshal broadcast frame",
			zap.String("roomID", roomID),
			zap.Error(err),
		)
		return
	}
	n.hub.BroadcastToRoom(roomID, data)
}

func (n *HubNotifier) BidAccepted(roomID string, bid *domain.Bid) {
	msg := ServerBidAcceptedMessage{BaseMessage: BaseMessage{Type: MessageTypeBidAccepted}}
	msg.Payload.RoomID = roomID
	msg.Payload.BidID = bid.ID
	msg.Payload.Username = bid.Username
	msg.Payload.Amount = bid.Amount
	msg.Payload.CurrentBid = bid.Amount
	msg.Payload.PlacedAt = bid.PlacedAt
	n.send(roomID, msg)
}

func (n *HubNotifier) MemberJoined(roomID, username string, roster []string) {
	msg := ServerRosterMessage{BaseMessage: BaseMessage{Type: MessageTypeMemberJoined}}
	msg.Payload.RoomID = roomID
	msg.Payload.Username = username
	msg.Payload.Message = fmt.Sprintf("%s has joined the auction", username)
	msg.Payload.OnlineUsers = roster
	n.send(roomID, msg)
}

func (n *HubNotifier) MemberLeft(roomID, username string, reason domain.LeaveReason, wasCreator bool, roster []string) {
	msgType := MessageTypeMemberLeft
	text := fmt.Sprintf("%s has left the auction", username)
	if wasCreator {
		// Distinct notice: the creator is gone but bidding continues.
		msgType = MessageTypeCreatorLeft
		text = fmt.Sprintf("Auction creator %s has left the auction. The auction continues without them.", username)
	}
	msg := ServerRosterMessage{BaseMessage: BaseMessage{Type: msgType}}
	msg.Payload.RoomID = roomID
	msg.Payload.Username = username
	msg.Payload.Reason = string(reason)
	msg.Payload.Message = text
	msg.Payload.OnlineUsers = roster
	n.send(roomID, msg)
}

func (n *HubNotifier) AuctionEnded(roomID, winner string, finalPrice float64, reason domain.EndReason) {
	msg := ServerAuctionEndedMessage{BaseMessage: BaseMessage{Type: MessageTypeAuctionEnded}}
	msg.Payload.RoomID = roomID
	msg.Payload.Winner = winner
	msg.Payload.FinalPrice = finalPrice
	msg.Payload.EndedBy = string(reason)
	if winner == "" {
		msg.Payload.Message = "Auction ended with no bids"
	} else {
		msg.Payload.Message = fmt.Sprintf("Auction ended, won by %s at %.2f", winner, finalPrice)
	}
	n.send(roomID, msg)
}

func (n *HubNotifier) AuctionDeleted(roomID string, stats application.FinalStatsDTO) {
	raw, err := json.Marshal(stats)
	if err != nil {
		log.Error("failed to marshal final stats", zap.String("roomID", roomID), zap.Error(err))
		raw = []byte("{}")
	}
	msg := ServerAuctionDeletedMessage{BaseMessage: BaseMessage{Type: MessageTypeAuctionDeleted}}
	msg.Payload.RoomID = roomID
	msg.Payload.Message = fmt.Sprintf("Auction %q has been deleted by the creator", stats.Title)
	msg.Payload.FinalStats = raw
	n.send(roomID, msg)
}
