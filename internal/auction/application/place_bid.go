package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cfuentes/bidroom/internal/auction/domain"
	"github.com/cfuentes/bidroom/internal/shared/logger"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// PlaceBidDTO is the input for PlaceBidUseCase. Both the websocket protocol
// handler and the HTTP route build this same command, so the invariants are
// enforced in exactly one place.
type PlaceBidDTO struct {
	RoomID   string
	Username string
	Amount   float64
}

// PlaceBidUseCase serializes concurrent bid attempts per room and decides
// accept/reject. Exactly one of two racing bids wins; the loser is validated
// against the already updated price.
type PlaceBidUseCase struct {
	auctionRepo domain.AuctionRepository
	bidRepo     domain.BidRepository
	users       UserDirectory
	locks       *RoomLocks
	db          TxBeginner
	notifier    RoomNotifier
}

func NewPlaceBidUseCase(
	auctionRepo domain.AuctionRepository,
	bidRepo domain.BidRepository,
	users UserDirectory,
	locks *RoomLocks,
	db TxBeginner,
	notifier RoomNotifier,
) *PlaceBidUseCase {
	return &PlaceBidUseCase{
		auctionRepo: auctionRepo,
		bidRepo:     bidRepo,
		users:       users,
		locks:       locks,
		db:          db,
		notifier:    notifier,
	}
}

// Execute uses named returns so the commit/rollback defer can surface a
// commit failure to the caller.
func (uc *PlaceBidUseCase) Execute(ctx context.Context, cmd PlaceBidDTO) (accepted *domain.Bid, err error) {
	if cmd.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	exists, err := uc.users.Exists(ctx, cmd.Username)
	if err != nil {
		return nil, fmt.Errorf("place bid use case: user lookup: %w: %w", domain.ErrIndeterminate, err)
	}
	if !exists {
		return nil, domain.ErrUserNotFound
	}

	// The lock is held across the persistence await: a second bid for this
	// room is not evaluated while this one's transaction is in flight.
	uc.locks.Lock(cmd.RoomID)
	defer uc.locks.Unlock(cmd.RoomID)

	auction, err := uc.auctionRepo.GetByRoomID(ctx, cmd.RoomID)
	if err != nil {
		if !errors.Is(err, domain.ErrRoomNotFound) {
			log.Error("PlaceBidUseCase: failed to load auction",
				zap.String("roomID", cmd.RoomID),
				zap.Error(err),
			)
			return nil, fmt.Errorf("place bid use case: load room %s: %w: %w", cmd.RoomID, domain.ErrIndeterminate, err)
		}
		return nil, err
	}

	bid, err := auction.ApplyBid(cmd.Username, cmd.Amount, time.Now().UTC())
	if err != nil {
		// Validation rejection, resolved locally, returned to the submitter
		// only and never broadcast.
		log.Warn("Bid rejected",
			zap.String("roomID", cmd.RoomID),
			zap.String("username", cmd.Username),
			zap.Float64("amount", cmd.Amount),
			zap.Float64("currentBid", auction.CurrentBid),
			zap.Error(err),
		)
		return nil, err
	}

	tx, err := uc.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("place bid use case: begin transaction: %w: %w", domain.ErrIndeterminate, err)
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback(ctx)
			panic(r)
		}
		if err != nil {
			log.Warn("PlaceBidUseCase: rolling back transaction",
				zap.String("roomID", cmd.RoomID),
				zap.String("username", cmd.Username),
				zap.Error(err),
			)
			_ = tx.Rollback(ctx)
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			accepted = nil
			err = fmt.Errorf("place bid use case: commit: %w: %w", domain.ErrIndeterminate, commitErr)
			return
		}
		// Committed: notify every subscriber of the room, still under the
		// room lock so broadcast order equals commit order.
		uc.notifier.BidAccepted(cmd.RoomID, bid)
		log.Info("Bid accepted",
			zap.String("roomID", cmd.RoomID),
			zap.String("bidID", bid.ID.String()),
			zap.String("username", cmd.Username),
			zap.Float64("amount", bid.Amount),
		)
	}()

	// Winning-flag handover and state update are one atomic unit.
	if err = uc.bidRepo.ClearWinning(ctx, tx, cmd.RoomID); err != nil {
		err = fmt.Errorf("place bid use case: clear winning flag: %w: %w", domain.ErrIndeterminate, err)
		return nil, err
	}
	if err = uc.bidRepo.Save(ctx, tx, bid); err != nil {
		err = fmt.Errorf("place bid use case: save bid: %w: %w", domain.ErrIndeterminate, err)
		return nil, err
	}
	if err = uc.auctionRepo.Save(ctx, tx, auction); err != nil {
		err = fmt.Errorf("place bid use case: save auction: %w: %w", domain.ErrIndeterminate, err)
		return nil, err
	}

	accepted = bid
	return accepted, err
}
