package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/cfuentes/bidroom/internal/auction/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuctionRepository implements domain.AuctionRepository on postgres.
type AuctionRepository struct {
	pool *pgxpool.Pool
}

func NewAuctionRepository(pool *pgxpool.Pool) *AuctionRepository {
	return &AuctionRepository{pool: pool}
}

const auctionColumns = `id, room_id, title, product_name, description, starting_price,
        current_bid, highest_bidder, created_by, duration_seconds, status, winner,
        final_price, joined_users, end_time, created_at, updated_at`

// Save inserts or updates an auction. INSERT ON CONFLICT handles both
// creation and every later state transition.
func (r *AuctionRepository) Save(ctx context.Context, tx pgx.Tx, a *domain.Auction) error {
	query := `
        INSERT INTO auctions (id, room_id, title, product_name, description, starting_price,
            current_bid, highest_bidder, created_by, duration_seconds, status, winner,
            final_price, joined_users, end_time, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
        ON CONFLICT (room_id) DO UPDATE
        SET
            current_bid = EXCLUDED.current_bid,
            highest_bidder = EXCLUDED.highest_bidder,
            status = EXCLUDED.status,
            winner = EXCLUDED.winner,
            final_price = EXCLUDED.final_price,
            joined_users = EXCLUDED.joined_users,
            updated_at = NOW();
    `
	_, err := tx.Exec(ctx, query,
		a.ID,
		a.RoomID,
		a.Title,
		a.ProductName,
		a.Description,
		a.StartingPrice,
		a.CurrentBid,
		a.HighestBidder,
		a.CreatedBy,
		int64(a.Duration.Seconds()),
		a.Status,
		a.Winner,
		a.FinalPrice,
		a.JoinedUsers,
		a.EndTime,
		a.CreatedAt,
		a.UpdatedAt,
	)
	return err
}

func scanAuction(row pgx.Row) (*domain.Auction, error) {
	a := &domain.Auction{}
	var durationSeconds int64
	err := row.Scan(
		&a.ID,
		&a.RoomID,
		&a.Title,
		&a.ProductName,
		&a.Description,
		&a.StartingPrice,
		&a.CurrentBid,
		&a.HighestBidder,
		&a.CreatedBy,
		&durationSeconds,
		&a.Status,
		&a.Winner,
		&a.FinalPrice,
		&a.JoinedUsers,
		&a.EndTime,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Duration = time.Duration(durationSeconds) * time.Second
	return a, nil
}

func (r *AuctionRepository) GetByRoomID(ctx context.Context, roomID string) (*domain.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE room_id = $1`
	a, err := scanAuction(r.pool.QueryRow(ctx, query, roomID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, err
	}
	return a, nil
}

func (r *AuctionRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Auction, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var auctions []*domain.Auction
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, err
		}
		auctions = append(auctions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return auctions, nil
}

func (r *AuctionRepository) ListByStatuses(ctx context.Context, statuses ...domain.Status) ([]*domain.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE status = ANY($1) ORDER BY created_at DESC`
	values := make([]string, 0, len(statuses))
	for _, s := range statuses {
		values = append(values, string(s))
	}
	return r.list(ctx, query, values)
}

func (r *AuctionRepository) ListActive(ctx context.Context) ([]*domain.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE status = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, domain.StatusActive)
}

func (r *AuctionRepository) ListCreatedBy(ctx context.Context, username string) ([]*domain.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE created_by = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, username)
}

func (r *AuctionRepository) ListJoinedBy(ctx context.Context, username string) ([]*domain.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE $1 = ANY(joined_users) ORDER BY created_at DESC`
	return r.list(ctx, query, username)
}

func (r *AuctionRepository) Delete(ctx context.Context, tx pgx.Tx, roomID string) error {
	_, err := tx.Exec(ctx, `DELETE FROM auctions WHERE room_id = $1`, roomID)
	return err
}
