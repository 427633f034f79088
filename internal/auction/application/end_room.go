package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cfuentes/bidroom/internal/auction/domain"
	"go.uber.org/zap"
)

// FinalStateDTO is the outcome of an ended room, also returned by duplicate
// end calls.
type FinalStateDTO struct {
	RoomID     string           `json:"room_id"`
	Winner     string           `json:"winner"`
	FinalPrice float64          `json:"final_price"`
	Status     string           `json:"status"`
	EndedBy    domain.EndReason `json:"ended_by"`
}

// EndRoomUseCase performs the active->ended transition. Idempotent on
// already-ended rooms so the clock's firing may race the creator's explicit
// end without harm; only the first transition broadcasts.
type EndRoomUseCase struct {
	auctionRepo  domain.AuctionRepository
	presenceRepo domain.PresenceRepository
	roster       Roster
	locks        *RoomLocks
	db           TxBeginner
	notifier     RoomNotifier
}

func NewEndRoomUseCase(
	auctionRepo domain.AuctionRepository,
	presenceRepo domain.PresenceRepository,
	roster Roster,
	locks *RoomLocks,
	db TxBeginner,
	notifier RoomNotifier,
) *EndRoomUseCase {
	return &EndRoomUseCase{
		auctionRepo:  auctionRepo,
		presenceRepo: presenceRepo,
		roster:       roster,
		locks:        locks,
		db:           db,
		notifier:     notifier,
	}
}

// Execute ends the room. requestedBy is checked against the creator when the
// reason is EndReasonCreator; the clock passes EndReasonTimer and skips it.
func (uc *EndRoomUseCase) Execute(ctx context.Context, roomID, requestedBy string, reason domain.EndReason) (*FinalStateDTO, error) {
	uc.locks.Lock(roomID)
	defer uc.locks.Unlock(roomID)

	auction, err := uc.auctionRepo.GetByRoomID(ctx, roomID)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("end room use case: load room %s: %w: %w", roomID, domain.ErrIndeterminate, err)
	}

	if reason == domain.EndReasonCreator && !auction.IsCreator(requestedBy) {
		return nil, domain.ErrNotCreator
	}

	now := time.Now().UTC()
	final, changed := auction.End(now)
	dto := &FinalStateDTO{
		RoomID:     roomID,
		Winner:     final.Winner,
		FinalPrice: final.FinalPrice,
		Status:     string(domain.StatusEnded),
		EndedBy:    reason,
	}

	if !changed {
		// Duplicate timer firing or timer racing the creator: report the
		// recorded final state, no second broadcast.
		log.Debug("EndRoomUseCase: room already ended",
			zap.String("roomID", roomID),
			zap.String("reason", string(reason)),
		)
		return dto, nil
	}

	tx, err := uc.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("end room use case: begin transaction: %w: %w", domain.ErrIndeterminate, err)
	}
	if err := uc.auctionRepo.Save(ctx, tx, auction); err != nil {
		_ = tx.Rollback(ctx)
		return nil, fmt.Errorf("end room use case: save room %s: %w: %w", roomID, domain.ErrIndeterminate, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("end room use case: commit: %w: %w", domain.ErrIndeterminate, err)
	}

	// Roster teardown: close every open presence epoch and drop the online
	// set. Latecomers can still join to view the result.
	if err := uc.presenceRepo.CloseAllForRoom(ctx, roomID, now); err != nil {
		log.Error("EndRoomUseCase: failed to close presence records",
			zap.String("roomID", roomID),
			zap.Error(err),
		)
	}
	if err := uc.roster.Clear(ctx, roomID); err != nil {
		log.Error("EndRoomUseCase: failed to clear roster",
			zap.String("roomID", roomID),
			zap.Error(err),
		)
	}

	uc.notifier.AuctionEnded(roomID, final.Winner, final.FinalPrice, reason)
	log.Info("Auction ended",
		zap.String("roomID", roomID),
		zap.String("winner", final.Winner),
		zap.Float64("finalPrice", final.FinalPrice),
		zap.String("reason", string(reason)),
	)

	return dto, nil
}
