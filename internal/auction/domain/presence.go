package domain

import (
	"time"

	"github.com/google/uuid"
)

type PresenceStatus string

const (
	PresenceOnline       PresenceStatus = "online"
	PresenceDisconnected PresenceStatus = "disconnected"
)

// Presence is one connection epoch for a (room, user) pair. At most one
// record per pair has LeftAt unset; a rejoin reuses the open epoch instead
// of creating a duplicate.
type Presence struct {
	ID       uuid.UUID
	RoomID   string
	Username string
	Status   PresenceStatus
	JoinedAt time.Time
	LeftAt   *time.Time
}

func NewPresence(roomID, username string, joinedAt time.Time) *Presence {
	return &Presence{
		ID:       uuid.New(),
		RoomID:   roomID,
		Username: username,
		Status:   PresenceOnline,
		JoinedAt: joinedAt,
	}
}
