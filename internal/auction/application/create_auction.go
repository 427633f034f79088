package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cfuentes/bidroom/internal/auction/domain"
	"go.uber.org/zap"
)

// CreateAuctionDTO carries the seller's input for opening a room.
type CreateAuctionDTO struct {
	CreatedBy       string
	Title           string
	ProductName     string
	Description     string
	StartingPrice   float64
	DurationMinutes int
}

// ErrMissingFields reports incomplete creation input.
var ErrMissingFields = errors.New("title, product name, starting price and duration are required")

// CreateAuctionUseCase opens a new active room and arms its clock.
type CreateAuctionUseCase struct {
	auctionRepo domain.AuctionRepository
	users       UserDirectory
	db          TxBeginner
	clock       *Clock
}

func NewCreateAuctionUseCase(
	auctionRepo domain.AuctionRepository,
	users UserDirectory,
	db TxBeginner,
	clock *Clock,
) *CreateAuctionUseCase {
	return &CreateAuctionUseCase{
		auctionRepo: auctionRepo,
		users:       users,
		db:          db,
		clock:       clock,
	}
}

func (uc *CreateAuctionUseCase) Execute(ctx context.Context, cmd CreateAuctionDTO) (*domain.Auction, error) {
	if cmd.Title == "" || cmd.ProductName == "" || cmd.StartingPrice <= 0 || cmd.DurationMinutes <= 0 {
		return nil, ErrMissingFields
	}

	exists, err := uc.users.Exists(ctx, cmd.CreatedBy)
	if err != nil {
		return nil, fmt.Errorf("create auction use case: user lookup: %w: %w", domain.ErrIndeterminate, err)
	}
	if !exists {
		return nil, domain.ErrUserNotFound
	}

	now := time.Now().UTC()
	auction := domain.NewAuction(
		cmd.CreatedBy,
		cmd.Title,
		cmd.ProductName,
		cmd.Description,
		cmd.StartingPrice,
		time.Duration(cmd.DurationMinutes)*time.Minute,
		now,
	)

	tx, err := uc.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("create auction use case: begin transaction: %w: %w", domain.ErrIndeterminate, err)
	}
	if err := uc.auctionRepo.Save(ctx, tx, auction); err != nil {
		_ = tx.Rollback(ctx)
		return nil, fmt.Errorf("create auction use case: save: %w: %w", domain.ErrIndeterminate, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("create auction use case: commit: %w: %w", domain.ErrIndeterminate, err)
	}

	uc.clock.Arm(auction.RoomID, auction.EndTime)
	log.Info("Auction created",
		zap.String("roomID", auction.RoomID),
		zap.String("createdBy", auction.CreatedBy),
		zap.Float64("startingPrice", auction.StartingPrice),
		zap.Time("endTime", auction.EndTime),
	)

	return auction, nil
}
