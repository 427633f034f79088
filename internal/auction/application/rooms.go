package application

import "sync"

// RoomLocks hands out one mutex per room identifier. Every state-mutating
// operation for a room (bid arbitration, join/leave, end, delete) runs with
// that room's lock held for the whole load-validate-persist-broadcast
// sequence, including the persistence await. Rooms never share a lock, so no
// cross-room ordering exists and sharding by room id stays possible.
type RoomLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewRoomLocks() *RoomLocks {
	return &RoomLocks{locks: make(map[string]*sync.Mutex)}
}

func (l *RoomLocks) get(roomID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[roomID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[roomID] = m
	}
	return m
}

// Lock acquires the room's mutex, blocking until any in-flight mutation for
// the same room has committed or rolled back.
func (l *RoomLocks) Lock(roomID string) {
	l.get(roomID).Lock()
}

func (l *RoomLocks) Unlock(roomID string) {
	l.get(roomID).Unlock()
}
