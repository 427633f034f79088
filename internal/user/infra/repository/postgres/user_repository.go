package postgres

import (
	"context"
	"errors"

	"github.com/cfuentes/bidroom/internal/user/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository implements domain.UserRepository on postgres.
type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Exists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, username,
	).Scan(&exists)
	return exists, err
}

func (r *UserRepository) Create(ctx context.Context, username string) (*domain.User, error) {
	user := &domain.User{ID: uuid.New(), Username: username}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, username) VALUES ($1, $2) ON CONFLICT (username) DO NOTHING`,
		user.ID, user.Username,
	)
	if err != nil {
		return nil, err
	}
	return r.GetByUsername(ctx, username)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	user := &domain.User{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, username FROM users WHERE username = $1`, username,
	).Scan(&user.ID, &user.Username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}
