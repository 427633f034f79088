package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an auction room.
type Status string

const (
	StatusActive Status = "active"
	StatusEnded  Status = "ended"
)

// EndReason records which actor moved a room to ended.
type EndReason string

const (
	EndReasonTimer   EndReason = "timer"
	EndReasonCreator EndReason = "creator"
)

// LeaveReason is why a user left a room.
type LeaveReason string

const (
	LeaveManualQuit  LeaveReason = "manual_quit"
	LeaveRouteChange LeaveReason = "route_change"
	LeaveDisconnect  LeaveReason = "disconnect"
)

// Auction is the aggregate for one bidding room. It owns the room's mutable
// bidding state: current price, current leader, status. All mutation goes
// through ApplyBid and End so the invariants are enforced in exactly one
// place; callers serialize access per room (see application.RoomLocks).
type Auction struct {
	ID            uuid.UUID
	RoomID        string
	Title         string
	ProductName   string
	Description   string
	StartingPrice float64
	CurrentBid    float64
	// HighestBidder is the identity holding the current lead, empty while
	// nobody has bid.
	HighestBidder string
	CreatedBy     string
	Duration      time.Duration
	Status        Status
	// Winner and FinalPrice are set only on the active->ended transition.
	Winner     string
	FinalPrice float64
	// JoinedUsers is every identity that has ever joined; manual_quit is the
	// only way out of it.
	JoinedUsers []string
	EndTime     time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewAuction creates an active room. RoomID follows the room_<creator>_<ms>
// scheme so identifiers stay readable in logs and URLs.
func NewAuction(createdBy, title, productName, description string, startingPrice float64, duration time.Duration, now time.Time) *Auction {
	return &Auction{
		ID:            uuid.New(),
		RoomID:        fmt.Sprintf("room_%s_%d", createdBy, now.UnixMilli()),
		Title:         title,
		ProductName:   productName,
		Description:   description,
		StartingPrice: startingPrice,
		CurrentBid:    startingPrice,
		CreatedBy:     createdBy,
		Duration:      duration,
		Status:        StatusActive,
		JoinedUsers:   []string{},
		EndTime:       now.Add(duration),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// ApplyBid validates and applies a bid against the room state. On acceptance
// the current price and leader are updated and the new winning Bid is
// returned. Rejections leave the room untouched and come back as one of the
// sentinel errors so the caller can explain each case differently.
func (a *Auction) ApplyBid(username string, amount float64, at time.Time) (*Bid, error) {
	if a.Status != StatusActive {
		return nil, ErrAuctionEnded
	}
	if username == a.CreatedBy {
		return nil, ErrCreatorCannotBid
	}
	if amount <= a.CurrentBid {
		return nil, ErrBidTooLow
	}
	// The rule compares against the immediately preceding bidder only: the
	// current leader may not raise their own bid until someone else does.
	if username == a.HighestBidder {
		return nil, ErrConsecutiveBidder
	}

	a.CurrentBid = amount
	a.HighestBidder = username
	a.UpdatedAt = at

	return NewBid(a.RoomID, username, amount, at), nil
}

// FinalState is the outcome of an ended room.
type FinalState struct {
	Winner     string
	FinalPrice float64
}

// End moves the room to ended and records winner and final price. Idempotent:
// a second call (timer racing creator action) reports changed=false and
// returns the already recorded final state.
func (a *Auction) End(at time.Time) (FinalState, bool) {
	if a.Status == StatusEnded {
		return FinalState{Winner: a.Winner, FinalPrice: a.FinalPrice}, false
	}
	a.Status = StatusEnded
	a.Winner = a.HighestBidder
	a.FinalPrice = a.CurrentBid
	a.UpdatedAt = at
	return FinalState{Winner: a.Winner, FinalPrice: a.FinalPrice}, true
}

// AddJoinedUser records an identity in the historical membership set.
// Reports whether the set changed.
func (a *Auction) AddJoinedUser(username string) bool {
	for _, u := range a.JoinedUsers {
		if u == username {
			return false
		}
	}
	a.JoinedUsers = append(a.JoinedUsers, username)
	return true
}

// RemoveJoinedUser drops an identity from the membership set (manual_quit).
func (a *Auction) RemoveJoinedUser(username string) bool {
	for i, u := range a.JoinedUsers {
		if u == username {
			a.JoinedUsers = append(a.JoinedUsers[:i], a.JoinedUsers[i+1:]...)
			return true
		}
	}
	return false
}

func (a *Auction) IsCreator(username string) bool {
	return a.CreatedBy == username
}

// TimeRemaining derives the remaining time from the stored EndTime. The
// stored EndTime is authoritative, not the clock's firing instant, so every
// caller can recompute this independently.
func (a *Auction) TimeRemaining(now time.Time) time.Duration {
	if a.Status != StatusActive {
		return 0
	}
	remaining := a.EndTime.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}
