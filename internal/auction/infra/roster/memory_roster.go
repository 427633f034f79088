package roster

import (
	"context"
	"sort"
	"sync"
)

// MemoryRoster is a concurrency-safe in-memory roster, used by tests and
// single-node runs without redis.
type MemoryRoster struct {
	mu    sync.RWMutex
	rooms map[string]map[string]bool
}

func NewMemoryRoster() *MemoryRoster {
	return &MemoryRoster{rooms: make(map[string]map[string]bool)}
}

func (r *MemoryRoster) Add(_ context.Context, roomID, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[roomID]; !ok {
		r.rooms[roomID] = make(map[string]bool)
	}
	r.rooms[roomID][username] = true
	return nil
}

func (r *MemoryRoster) Remove(_ context.Context, roomID, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if members, ok := r.rooms[roomID]; ok {
		delete(members, username)
		if len(members) == 0 {
			delete(r.rooms, roomID)
		}
	}
	return nil
}

func (r *MemoryRoster) Members(_ context.Context, roomID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := make([]string, 0, len(r.rooms[roomID]))
	for u := range r.rooms[roomID] {
		members = append(members, u)
	}
	sort.Strings(members)
	return members, nil
}

func (r *MemoryRoster) Clear(_ context.Context, roomID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms, roomID)
	return nil
}
