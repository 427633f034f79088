package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/cfuentes/bidroom/internal/auction/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PresenceRepository implements domain.PresenceRepository on postgres. The
// partial unique index on (room_id, username) WHERE left_at IS NULL keeps at
// most one open epoch per pair.
type PresenceRepository struct {
	pool *pgxpool.Pool
}

func NewPresenceRepository(pool *pgxpool.Pool) *PresenceRepository {
	return &PresenceRepository{pool: pool}
}

// Open returns the already open epoch for (room, user), creating one when
// none exists. A rejoin therefore reuses the row instead of duplicating it.
func (r *PresenceRepository) Open(ctx context.Context, roomID, username string, at time.Time) (*domain.Presence, error) {
	existing := &domain.Presence{}
	err := r.pool.QueryRow(ctx, `
        SELECT id, room_id, username, status, joined_at, left_at
        FROM presence
        WHERE room_id = $1 AND username = $2 AND left_at IS NULL
    `, roomID, username).Scan(
		&existing.ID,
		&existing.RoomID,
		&existing.Username,
		&existing.Status,
		&existing.JoinedAt,
		&existing.LeftAt,
	)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	p := domain.NewPresence(roomID, username, at)
	_, err = r.pool.Exec(ctx, `
        INSERT INTO presence (id, room_id, username, status, joined_at)
        VALUES ($1, $2, $3, $4, $5)
    `, p.ID, p.RoomID, p.Username, p.Status, p.JoinedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PresenceRepository) Close(ctx context.Context, roomID, username string, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
        UPDATE presence
        SET status = $1, left_at = $2
        WHERE room_id = $3 AND username = $4 AND left_at IS NULL
    `, domain.PresenceDisconnected, at, roomID, username)
	return err
}

func (r *PresenceRepository) CloseAllForRoom(ctx context.Context, roomID string, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
        UPDATE presence
        SET status = $1, left_at = $2
        WHERE room_id = $3 AND left_at IS NULL
    `, domain.PresenceDisconnected, at, roomID)
	return err
}

func (r *PresenceRepository) DeleteByRoom(ctx context.Context, tx pgx.Tx, roomID string) error {
	_, err := tx.Exec(ctx, `DELETE FROM presence WHERE room_id = $1`, roomID)
	return err
}
