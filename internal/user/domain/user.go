package domain

import (
	"context"

	"github.com/google/uuid"
)

// User is the minimal identity the engine needs; account management and
// session issuance live elsewhere.
type User struct {
	ID       uuid.UUID
	Username string
}

type UserRepository interface {
	Exists(ctx context.Context, username string) (bool, error)
	Create(ctx context.Context, username string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
}
