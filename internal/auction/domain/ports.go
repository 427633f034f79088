package domain

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// AuctionRepository is the durable record store for auction rooms. Reads may
// bypass the room's serialization unit and accept slightly stale data; writes
// happen only from inside it, through the supplied transaction.
type AuctionRepository interface {
	GetByRoomID(ctx context.Context, roomID string) (*Auction, error)
	Save(ctx context.Context, tx pgx.Tx, a *Auction) error
	ListByStatuses(ctx context.Context, statuses ...Status) ([]*Auction, error)
	ListActive(ctx context.Context) ([]*Auction, error)
	ListCreatedBy(ctx context.Context, username string) ([]*Auction, error)
	ListJoinedBy(ctx context.Context, username string) ([]*Auction, error)
	Delete(ctx context.Context, tx pgx.Tx, roomID string) error
}

// BidRepository is the append-only bid ledger for a room.
type BidRepository interface {
	Save(ctx context.Context, tx pgx.Tx, bid *Bid) error
	// ClearWinning revokes the winning flag from the previous holder; called
	// in the same transaction as Save so the handover is atomic.
	ClearWinning(ctx context.Context, tx pgx.Tx, roomID string) error
	ListByRoom(ctx context.Context, roomID string, limit, offset int) ([]*Bid, error)
	CountByRoom(ctx context.Context, roomID string) (int64, error)
	DeleteByRoom(ctx context.Context, tx pgx.Tx, roomID string) error
}

// PresenceRepository keeps the durable connection-epoch records.
type PresenceRepository interface {
	// Open creates a presence record, or returns the already open epoch for
	// this (room, user) pair.
	Open(ctx context.Context, roomID, username string, at time.Time) (*Presence, error)
	Close(ctx context.Context, roomID, username string, at time.Time) error
	CloseAllForRoom(ctx context.Context, roomID string, at time.Time) error
	DeleteByRoom(ctx context.Context, tx pgx.Tx, roomID string) error
}
