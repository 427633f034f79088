package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// firingRecorder collects room ids the clock fired for.
type firingRecorder struct {
	mu    sync.Mutex
	fired []string
	done  chan string
}

func newFiringRecorder() *firingRecorder {
	return &firingRecorder{done: make(chan string, 8)}
}

func (r *firingRecorder) endRoom(_ context.Context, roomID string) error {
	r.mu.Lock()
	r.fired = append(r.fired, roomID)
	r.mu.Unlock()
	r.done <- roomID
	return nil
}

func (r *firingRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.fired)
}

func waitFired(t *testing.T, r *firingRecorder, want string) {
	t.Helper()
	select {
	case got := <-r.done:
		require.Equal(t, want, got)
	case <-time.After(2 * time.Second):
		t.Fatalf("timer for %s never fired", want)
	}
}

func TestClock_ArmFires(t *testing.T) {
	rec := newFiringRecorder()
	c := NewClock(newFakeAuctionRepo())
	c.SetEndFunc(rec.endRoom)
	defer c.Stop()

	c.Arm("room_alice_1", time.Now().Add(20*time.Millisecond))
	waitFired(t, rec, "room_alice_1")
}

func TestClock_ElapsedEndTimeFiresImmediately(t *testing.T) {
	rec := newFiringRecorder()
	c := NewClock(newFakeAuctionRepo())
	c.SetEndFunc(rec.endRoom)
	defer c.Stop()

	c.Arm("room_alice_1", time.Now().Add(-time.Minute))
	waitFired(t, rec, "room_alice_1")
}

func TestClock_CancelPreventsFiring(t *testing.T) {
	rec := newFiringRecorder()
	c := NewClock(newFakeAuctionRepo())
	c.SetEndFunc(rec.endRoom)
	defer c.Stop()

	c.Arm("room_alice_1", time.Now().Add(50*time.Millisecond))
	c.Cancel("room_alice_1")

	time.Sleep(150 * time.Millisecond)
	require.Zero(t, rec.count())
}

func TestClock_RearmReplacesTimer(t *testing.T) {
	rec := newFiringRecorder()
	c := NewClock(newFakeAuctionRepo())
	c.SetEndFunc(rec.endRoom)
	defer c.Stop()

	c.Arm("room_alice_1", time.Now().Add(time.Hour))
	c.Arm("room_alice_1", time.Now().Add(20*time.Millisecond))

	waitFired(t, rec, "room_alice_1")
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 1, rec.count())
}

func TestClock_StartRearmsActiveRooms(t *testing.T) {
	repo := newFakeAuctionRepo()
	overdue := activeRoom("alice", 50)
	overdue.EndTime = time.Now().Add(-time.Minute)
	repo.put(overdue)

	ended := activeRoom("bob", 50)
	ended.End(time.Now().UTC())
	repo.put(ended)

	rec := newFiringRecorder()
	c := NewClock(repo)
	c.SetEndFunc(rec.endRoom)
	defer c.Stop()

	require.NoError(t, c.Start(context.Background()))
	waitFired(t, rec, overdue.RoomID)

	// Only the active room was re-armed.
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 1, rec.count())
}
