package application

import (
	"context"
	"fmt"
	"time"

	"github.com/cfuentes/bidroom/internal/auction/domain"
	"github.com/google/uuid"
)

// maxBidPageSize caps the bid-history page.
const maxBidPageSize = 50

// BidDTO is the read shape of a ledger entry.
type BidDTO struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Amount    float64   `json:"amount"`
	IsWinning bool      `json:"is_winning"`
	PlacedAt  time.Time `json:"placed_at"`
}

// AuctionSummaryDTO is the listing shape.
type AuctionSummaryDTO struct {
	RoomID          string    `json:"room_id"`
	Title           string    `json:"title"`
	ProductName     string    `json:"product_name"`
	Description     string    `json:"description"`
	StartingPrice   float64   `json:"starting_price"`
	CurrentBid      float64   `json:"current_bid"`
	HighestBidder   string    `json:"highest_bidder,omitempty"`
	CreatedBy       string    `json:"created_by"`
	Status          string    `json:"status"`
	Winner          string    `json:"winner,omitempty"`
	FinalPrice      float64   `json:"final_price,omitempty"`
	EndTime         time.Time `json:"end_time"`
	CreatedAt       time.Time `json:"created_at"`
	TimeRemainingMS int64     `json:"time_remaining_ms"`
	IsActive        bool      `json:"is_active"`
}

// RoomSnapshotDTO is the full-state read a client uses to resynchronize at
// any time: authoritative price, leader, roster and recent history.
type RoomSnapshotDTO struct {
	AuctionSummaryDTO
	JoinedUsers []string `json:"joined_users"`
	OnlineUsers []string `json:"online_users"`
	BidHistory  []BidDTO `json:"bid_history"`
}

// UserAuctionsDTO groups a user's dashboard listings.
type UserAuctionsDTO struct {
	Created []AuctionSummaryDTO `json:"created"`
	Joined  []AuctionSummaryDTO `json:"joined"`
}

// RoomQueries are the read paths. They bypass the room lock and read the
// durable store directly; slightly stale data is acceptable on reads.
type RoomQueries struct {
	auctionRepo domain.AuctionRepository
	bidRepo     domain.BidRepository
	roster      Roster
}

func NewRoomQueries(auctionRepo domain.AuctionRepository, bidRepo domain.BidRepository, roster Roster) *RoomQueries {
	return &RoomQueries{
		auctionRepo: auctionRepo,
		bidRepo:     bidRepo,
		roster:      roster,
	}
}

func summarize(a *domain.Auction, now time.Time) AuctionSummaryDTO {
	return AuctionSummaryDTO{
		RoomID:          a.RoomID,
		Title:           a.Title,
		ProductName:     a.ProductName,
		Description:     a.Description,
		StartingPrice:   a.StartingPrice,
		CurrentBid:      a.CurrentBid,
		HighestBidder:   a.HighestBidder,
		CreatedBy:       a.CreatedBy,
		Status:          string(a.Status),
		Winner:          a.Winner,
		FinalPrice:      a.FinalPrice,
		EndTime:         a.EndTime,
		CreatedAt:       a.CreatedAt,
		TimeRemainingMS: a.TimeRemaining(now).Milliseconds(),
		IsActive:        a.Status == domain.StatusActive,
	}
}

// GetRoomSnapshot returns the room with its recent bids and online roster.
func (q *RoomQueries) GetRoomSnapshot(ctx context.Context, roomID string) (*RoomSnapshotDTO, error) {
	auction, err := q.auctionRepo.GetByRoomID(ctx, roomID)
	if err != nil {
		return nil, err
	}

	bids, err := q.bidRepo.ListByRoom(ctx, roomID, maxBidPageSize, 0)
	if err != nil {
		return nil, fmt.Errorf("room queries: list bids for %s: %w", roomID, err)
	}
	online, err := q.roster.Members(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("room queries: roster for %s: %w", roomID, err)
	}

	snapshot := &RoomSnapshotDTO{
		AuctionSummaryDTO: summarize(auction, time.Now().UTC()),
		JoinedUsers:       auction.JoinedUsers,
		OnlineUsers:       online,
		BidHistory:        make([]BidDTO, 0, len(bids)),
	}
	for _, b := range bids {
		snapshot.BidHistory = append(snapshot.BidHistory, BidDTO{
			ID:        b.ID,
			Username:  b.Username,
			Amount:    b.Amount,
			IsWinning: b.IsWinning,
			PlacedAt:  b.PlacedAt,
		})
	}
	return snapshot, nil
}

// ListAuctions returns active and ended rooms, newest first.
func (q *RoomQueries) ListAuctions(ctx context.Context) ([]AuctionSummaryDTO, error) {
	auctions, err := q.auctionRepo.ListByStatuses(ctx, domain.StatusActive, domain.StatusEnded)
	if err != nil {
		return nil, fmt.Errorf("room queries: list auctions: %w", err)
	}
	now := time.Now().UTC()
	out := make([]AuctionSummaryDTO, 0, len(auctions))
	for _, a := range auctions {
		out = append(out, summarize(a, now))
	}
	return out, nil
}

// ListBids returns a page of the room's history, most recent first. The page
// size is capped at maxBidPageSize.
func (q *RoomQueries) ListBids(ctx context.Context, roomID string, limit, offset int) ([]BidDTO, error) {
	if _, err := q.auctionRepo.GetByRoomID(ctx, roomID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > maxBidPageSize {
		limit = maxBidPageSize
	}
	if offset < 0 {
		offset = 0
	}

	bids, err := q.bidRepo.ListByRoom(ctx, roomID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("room queries: list bids for %s: %w", roomID, err)
	}
	out := make([]BidDTO, 0, len(bids))
	for _, b := range bids {
		out = append(out, BidDTO{
			ID:        b.ID,
			Username:  b.Username,
			Amount:    b.Amount,
			IsWinning: b.IsWinning,
			PlacedAt:  b.PlacedAt,
		})
	}
	return out, nil
}

// ListUserAuctions returns the rooms a user created and the rooms they joined.
func (q *RoomQueries) ListUserAuctions(ctx context.Context, username string) (*UserAuctionsDTO, error) {
	created, err := q.auctionRepo.ListCreatedBy(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("room queries: list created by %s: %w", username, err)
	}
	joined, err := q.auctionRepo.ListJoinedBy(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("room queries: list joined by %s: %w", username, err)
	}

	now := time.Now().UTC()
	dto := &UserAuctionsDTO{
		Created: make([]AuctionSummaryDTO, 0, len(created)),
		Joined:  make([]AuctionSummaryDTO, 0, len(joined)),
	}
	for _, a := range created {
		dto.Created = append(dto.Created, summarize(a, now))
	}
	for _, a := range joined {
		if a.CreatedBy == username {
			continue
		}
		dto.Joined = append(dto.Joined, summarize(a, now))
	}
	return dto, nil
}
