package application

import (
	"context"
	"sync"
	"time"

	"github.com/cfuentes/bidroom/internal/auction/domain"
	"go.uber.org/zap"
)

// endRoomFunc ends a room on behalf of the timer.
type endRoomFunc func(ctx context.Context, roomID string) error

// Clock arms one timer per active room and ends the room when its stored
// end time elapses. Cancellation is best-effort only: a timer that fires
// against an already-ended room is absorbed by the idempotent end
// transition, so no race-free cancellation is needed.
type Clock struct {
	auctionRepo domain.AuctionRepository
	endRoom     endRoomFunc

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewClock(auctionRepo domain.AuctionRepository) *Clock {
	return &Clock{
		auctionRepo: auctionRepo,
		timers:      make(map[string]*time.Timer),
	}
}

// SetEndFunc wires the end-room entry point. Set once during startup, before
// Start or Arm is called.
func (c *Clock) SetEndFunc(fn endRoomFunc) {
	c.endRoom = fn
}

// Start re-arms timers for every active room, so rooms whose end time passed
// while the process was down are ended immediately.
func (c *Clock) Start(ctx context.Context) error {
	active, err := c.auctionRepo.ListActive(ctx)
	if err != nil {
		return err
	}
	for _, a := range active {
		c.Arm(a.RoomID, a.EndTime)
	}
	log.Info("Auction clock started", zap.Int("armed", len(active)))
	return nil
}

// Arm schedules the room to end at endTime. An already-elapsed end time
// fires immediately. Re-arming replaces the previous timer.
func (c *Clock) Arm(roomID string, endTime time.Time) {
	delay := time.Until(endTime)
	if delay < 0 {
		delay = 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.timers[roomID]; ok {
		t.Stop()
	}
	c.timers[roomID] = time.AfterFunc(delay, func() {
		c.fire(roomID)
	})
	log.Debug("Room timer armed",
		zap.String("roomID", roomID),
		zap.Duration("delay", delay),
	)
}

// Cancel stops the room's timer if one is armed. Best-effort.
func (c *Clock) Cancel(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.timers[roomID]; ok {
		t.Stop()
		delete(c.timers, roomID)
	}
}

// Stop cancels every armed timer.
func (c *Clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for roomID, t := range c.timers {
		t.Stop()
		delete(c.timers, roomID)
	}
}

func (c *Clock) fire(roomID string) {
	c.mu.Lock()
	delete(c.timers, roomID)
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := c.endRoom(ctx, roomID); err != nil {
		log.Error("Clock failed to end room",
			zap.String("roomID", roomID),
			zap.Error(err),
		)
		return
	}
	log.Info("Room ended by timer", zap.String("roomID", roomID))
}
