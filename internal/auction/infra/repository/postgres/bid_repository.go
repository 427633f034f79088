package postgres

import (
	"context"

	"github.com/cfuentes/bidroom/internal/auction/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BidRepository implements domain.BidRepository on postgres. The ledger is
// append-only; the only UPDATE is the winning-flag handover.
type BidRepository struct {
	pool *pgxpool.Pool
}

func NewBidRepository(pool *pgxpool.Pool) *BidRepository {
	return &BidRepository{pool: pool}
}

// Save inserts a bid inside the caller's transaction; the lot update and the
// winning-flag handover commit with it or not at all.
func (r *BidRepository) Save(ctx context.Context, tx pgx.Tx, bid *domain.Bid) error {
	query := `
        INSERT INTO bids (id, room_id, username, amount, is_winning, placed_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `
	_, err := tx.Exec(ctx, query,
		bid.ID,
		bid.RoomID,
		bid.Username,
		bid.Amount,
		bid.IsWinning,
		bid.PlacedAt,
	)
	return err
}

// ClearWinning revokes the winning flag from every bid in the room, always
// called in the same transaction that inserts the new winning bid.
func (r *BidRepository) ClearWinning(ctx context.Context, tx pgx.Tx, roomID string) error {
	_, err := tx.Exec(ctx, `UPDATE bids SET is_winning = FALSE WHERE room_id = $1 AND is_winning`, roomID)
	return err
}

func (r *BidRepository) ListByRoom(ctx context.Context, roomID string, limit, offset int) ([]*domain.Bid, error) {
	query := `
        SELECT id, room_id, username, amount, is_winning, placed_at
        FROM bids
        WHERE room_id = $1
        ORDER BY placed_at DESC
        LIMIT $2 OFFSET $3
    `
	rows, err := r.pool.Query(ctx, query, roomID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bids []*domain.Bid
	for rows.Next() {
		bid := &domain.Bid{}
		err := rows.Scan(
			&bid.ID,
			&bid.RoomID,
			&bid.Username,
			&bid.Amount,
			&bid.IsWinning,
			&bid.PlacedAt,
		)
		if err != nil {
			return nil, err
		}
		bids = append(bids, bid)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bids, nil
}

func (r *BidRepository) CountByRoom(ctx context.Context, roomID string) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM bids WHERE room_id = $1`, roomID).Scan(&count)
	return count, err
}

func (r *BidRepository) DeleteByRoom(ctx context.Context, tx pgx.Tx, roomID string) error {
	_, err := tx.Exec(ctx, `DELETE FROM bids WHERE room_id = $1`, roomID)
	return err
}
