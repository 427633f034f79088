package application

import (
	"context"
	"time"

	"github.com/cfuentes/bidroom/internal/auction/domain"
	"github.com/jackc/pgx/v5"
)

// TxBeginner starts transactions against the durable store. *pgxpool.Pool
// satisfies it.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// UserDirectory answers whether an identity exists. Authentication itself is
// an external collaborator; the engine only verifies the identity is real.
type UserDirectory interface {
	Exists(ctx context.Context, username string) (bool, error)
}

// Roster is the online-membership set per room, the fast path behind the
// presence tracker. The redis implementation backs production, the in-memory
// one backs tests and single-node runs.
type Roster interface {
	Add(ctx context.Context, roomID, username string) error
	Remove(ctx context.Context, roomID, username string) error
	Members(ctx context.Context, roomID string) ([]string, error)
	Clear(ctx context.Context, roomID string) error
}

// RoomNotifier fans committed state changes out to every subscriber of a
// room. Use cases call it while holding the room lock, so per-room broadcast
// order matches commit order. Rejections are never notified.
type RoomNotifier interface {
	BidAccepted(roomID string, bid *domain.Bid)
	MemberJoined(roomID, username string, roster []string)
	MemberLeft(roomID, username string, reason domain.LeaveReason, wasCreator bool, roster []string)
	AuctionEnded(roomID, winner string, finalPrice float64, reason domain.EndReason)
	AuctionDeleted(roomID string, stats FinalStatsDTO)
}

// FinalStatsDTO summarizes a room at end or deletion time.
type FinalStatsDTO struct {
	Title         string    `json:"title"`
	CreatedBy     string    `json:"created_by"`
	Winner        string    `json:"winner"`
	FinalPrice    float64   `json:"final_price"`
	StartingPrice float64   `json:"starting_price"`
	TotalBids     int64     `json:"total_bids"`
	EndedBy       string    `json:"ended_by,omitempty"`
	EndedAt       time.Time `json:"ended_at"`
}
