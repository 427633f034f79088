package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cfuentes/bidroom/internal/auction/domain"
	"go.uber.org/zap"
)

// DeleteAuctionUseCase removes a room and its bid/presence records. Creator
// only; a terminal external action outside the bidding protocol, announced
// to the room before the cascade.
type DeleteAuctionUseCase struct {
	auctionRepo  domain.AuctionRepository
	bidRepo      domain.BidRepository
	presenceRepo domain.PresenceRepository
	roster       Roster
	locks        *RoomLocks
	db           TxBeginner
	notifier     RoomNotifier
	clock        *Clock
}

func NewDeleteAuctionUseCase(
	auctionRepo domain.AuctionRepository,
	bidRepo domain.BidRepository,
	presenceRepo domain.PresenceRepository,
	roster Roster,
	locks *RoomLocks,
	db TxBeginner,
	notifier RoomNotifier,
	clock *Clock,
) *DeleteAuctionUseCase {
	return &DeleteAuctionUseCase{
		auctionRepo:  auctionRepo,
		bidRepo:      bidRepo,
		presenceRepo: presenceRepo,
		roster:       roster,
		locks:        locks,
		db:           db,
		notifier:     notifier,
		clock:        clock,
	}
}

func (uc *DeleteAuctionUseCase) Execute(ctx context.Context, roomID, requestedBy string) (*FinalStatsDTO, error) {
	uc.locks.Lock(roomID)
	defer uc.locks.Unlock(roomID)

	auction, err := uc.auctionRepo.GetByRoomID(ctx, roomID)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("delete auction use case: load room %s: %w: %w", roomID, domain.ErrIndeterminate, err)
	}
	if !auction.IsCreator(requestedBy) {
		return nil, domain.ErrNotCreator
	}

	totalBids, err := uc.bidRepo.CountByRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("delete auction use case: count bids: %w: %w", domain.ErrIndeterminate, err)
	}

	stats := FinalStatsDTO{
		Title:         auction.Title,
		CreatedBy:     auction.CreatedBy,
		Winner:        auction.HighestBidder,
		FinalPrice:    auction.CurrentBid,
		StartingPrice: auction.StartingPrice,
		TotalBids:     totalBids,
		EndedAt:       time.Now().UTC(),
	}

	// Announce before the cascade so subscribers still receive the notice.
	uc.notifier.AuctionDeleted(roomID, stats)

	tx, err := uc.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("delete auction use case: begin transaction: %w: %w", domain.ErrIndeterminate, err)
	}
	if err := uc.bidRepo.DeleteByRoom(ctx, tx, roomID); err != nil {
		_ = tx.Rollback(ctx)
		return nil, fmt.Errorf("delete auction use case: delete bids: %w: %w", domain.ErrIndeterminate, err)
	}
	if err := uc.presenceRepo.DeleteByRoom(ctx, tx, roomID); err != nil {
		_ = tx.Rollback(ctx)
		return nil, fmt.Errorf("delete auction use case: delete presence: %w: %w", domain.ErrIndeterminate, err)
	}
	if err := uc.auctionRepo.Delete(ctx, tx, roomID); err != nil {
		_ = tx.Rollback(ctx)
		return nil, fmt.Errorf("delete auction use case: delete room: %w: %w", domain.ErrIndeterminate, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("delete auction use case: commit: %w: %w", domain.ErrIndeterminate, err)
	}

	if err := uc.roster.Clear(ctx, roomID); err != nil {
		log.Error("DeleteAuctionUseCase: failed to clear roster",
			zap.String("roomID", roomID),
			zap.Error(err),
		)
	}
	uc.clock.Cancel(roomID)

	log.Info("Auction deleted",
		zap.String("roomID", roomID),
		zap.String("requestedBy", requestedBy),
		zap.Int64("totalBids", totalBids),
	)

	return &stats, nil
}
