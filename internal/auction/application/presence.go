package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cfuentes/bidroom/internal/auction/domain"
	"go.uber.org/zap"
)

// PresenceTracker owns online-roster membership per room. Joins and leaves
// run under the room lock like every other room mutation, so roster
// broadcasts interleave with bid broadcasts in a single committed order.
type PresenceTracker struct {
	auctionRepo  domain.AuctionRepository
	presenceRepo domain.PresenceRepository
	roster       Roster
	locks        *RoomLocks
	db           TxBeginner
	notifier     RoomNotifier
}

func NewPresenceTracker(
	auctionRepo domain.AuctionRepository,
	presenceRepo domain.PresenceRepository,
	roster Roster,
	locks *RoomLocks,
	db TxBeginner,
	notifier RoomNotifier,
) *PresenceTracker {
	return &PresenceTracker{
		auctionRepo:  auctionRepo,
		presenceRepo: presenceRepo,
		roster:       roster,
		locks:        locks,
		db:           db,
		notifier:     notifier,
	}
}

// Join registers a user in the room and returns the updated online roster.
// Idempotent for an already-present user: the open epoch is reused and the
// roster set cannot hold duplicates. Joining an ended room is allowed so
// latecomers can view the result.
func (t *PresenceTracker) Join(ctx context.Context, roomID, username string) ([]string, error) {
	t.locks.Lock(roomID)
	defer t.locks.Unlock(roomID)

	auction, err := t.auctionRepo.GetByRoomID(ctx, roomID)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("presence tracker: load room %s: %w: %w", roomID, domain.ErrIndeterminate, err)
	}

	if auction.AddJoinedUser(username) {
		if err := t.saveAuction(ctx, auction); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	if _, err := t.presenceRepo.Open(ctx, roomID, username, now); err != nil {
		return nil, fmt.Errorf("presence tracker: open presence: %w: %w", domain.ErrIndeterminate, err)
	}
	if err := t.roster.Add(ctx, roomID, username); err != nil {
		return nil, fmt.Errorf("presence tracker: roster add: %w: %w", domain.ErrIndeterminate, err)
	}

	members, err := t.roster.Members(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("presence tracker: roster members: %w: %w", domain.ErrIndeterminate, err)
	}

	t.notifier.MemberJoined(roomID, username, members)
	log.Info("User joined room",
		zap.String("roomID", roomID),
		zap.String("username", username),
		zap.Int("online", len(members)),
	)

	return members, nil
}

// Leave removes a user from the online roster and closes their presence
// epoch. manual_quit additionally removes the user from the historical
// membership; a quitting creator is announced distinctly and bidding
// continues without them.
func (t *PresenceTracker) Leave(ctx context.Context, roomID, username string, reason domain.LeaveReason) ([]string, error) {
	t.locks.Lock(roomID)
	defer t.locks.Unlock(roomID)

	auction, err := t.auctionRepo.GetByRoomID(ctx, roomID)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("presence tracker: load room %s: %w: %w", roomID, domain.ErrIndeterminate, err)
	}

	online, err := t.roster.Members(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("presence tracker: roster members: %w: %w", domain.ErrIndeterminate, err)
	}
	wasOnline := false
	for _, m := range online {
		if m == username {
			wasOnline = true
			break
		}
	}

	wasCreator := auction.IsCreator(username)
	if reason == domain.LeaveManualQuit {
		if auction.RemoveJoinedUser(username) {
			if err := t.saveAuction(ctx, auction); err != nil {
				return nil, err
			}
		}
	}

	now := time.Now().UTC()
	if err := t.presenceRepo.Close(ctx, roomID, username, now); err != nil {
		return nil, fmt.Errorf("presence tracker: close presence: %w: %w", domain.ErrIndeterminate, err)
	}
	if err := t.roster.Remove(ctx, roomID, username); err != nil {
		return nil, fmt.Errorf("presence tracker: roster remove: %w: %w", domain.ErrIndeterminate, err)
	}

	members, err := t.roster.Members(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("presence tracker: roster members: %w: %w", domain.ErrIndeterminate, err)
	}

	if !wasOnline {
		// The socket closing after a manual quit lands here: the departure
		// was already announced, a second member_left would be noise.
		log.Debug("Leave for user not in roster, notification suppressed",
			zap.String("roomID", roomID),
			zap.String("username", username),
			zap.String("reason", string(reason)),
		)
		return members, nil
	}

	t.notifier.MemberLeft(roomID, username, reason, wasCreator && reason == domain.LeaveManualQuit, members)
	log.Info("User left room",
		zap.String("roomID", roomID),
		zap.String("username", username),
		zap.String("reason", string(reason)),
		zap.Bool("wasCreator", wasCreator),
		zap.Int("online", len(members)),
	)

	return members, nil
}

func (t *PresenceTracker) saveAuction(ctx context.Context, auction *domain.Auction) error {
	tx, err := t.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("presence tracker: begin transaction: %w: %w", domain.ErrIndeterminate, err)
	}
	if err := t.auctionRepo.Save(ctx, tx, auction); err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("presence tracker: save room: %w: %w", domain.ErrIndeterminate, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("presence tracker: commit: %w: %w", domain.ErrIndeterminate, err)
	}
	return nil
}
