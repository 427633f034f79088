package domain

import (
	"time"

	"github.com/google/uuid"
)

// Bid is one accepted bid in a room's append-only ledger. IsWinning is held
// by at most one bid per room at any instant; the handover from the previous
// holder happens atomically with insertion.
type Bid struct {
	ID        uuid.UUID
	RoomID    string
	Username  string
	Amount    float64
	IsWinning bool
	PlacedAt  time.Time
}

// NewBid creates a bid carrying the winning flag; arbitration clears the
// previous holder in the same transaction.
func NewBid(roomID, username string, amount float64, placedAt time.Time) *Bid {
	return &Bid{
		ID:        uuid.New(),
		RoomID:    roomID,
		Username:  username,
		Amount:    amount,
		IsWinning: true,
		PlacedAt:  placedAt,
	}
}
