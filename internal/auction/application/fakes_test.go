package application

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cfuentes/bidroom/internal/auction/domain"
	"github.com/jackc/pgx/v5"
)

// fakeTx satisfies pgx.Tx by embedding the interface; only Commit and
// Rollback are ever called by the use cases.
type fakeTx struct {
	pgx.Tx
	db *fakeDB
}

func (t *fakeTx) Commit(_ context.Context) error {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	if t.db.commitErr != nil {
		return t.db.commitErr
	}
	t.db.commits++
	return nil
}

func (t *fakeTx) Rollback(_ context.Context) error {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	t.db.rollbacks++
	return nil
}

type fakeDB struct {
	mu        sync.Mutex
	beginErr  error
	commitErr error
	commits   int
	rollbacks int
}

func (d *fakeDB) Begin(_ context.Context) (pgx.Tx, error) {
	if d.beginErr != nil {
		return nil, d.beginErr
	}
	return &fakeTx{db: d}, nil
}

// fakeAuctionRepo is a concurrency-safe in-memory auction store. Reads hand
// out copies so unsaved aggregate mutations stay invisible, like a real
// store.
type fakeAuctionRepo struct {
	mu      sync.Mutex
	rooms   map[string]*domain.Auction
	saveErr error
}

func newFakeAuctionRepo() *fakeAuctionRepo {
	return &fakeAuctionRepo{rooms: make(map[string]*domain.Auction)}
}

func cloneAuction(a *domain.Auction) *domain.Auction {
	c := *a
	c.JoinedUsers = append([]string(nil), a.JoinedUsers...)
	return &c
}

func (r *fakeAuctionRepo) put(a *domain.Auction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms[a.RoomID] = cloneAuction(a)
}

func (r *fakeAuctionRepo) GetByRoomID(_ context.Context, roomID string) (*domain.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.rooms[roomID]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return cloneAuction(a), nil
}

func (r *fakeAuctionRepo) Save(_ context.Context, _ pgx.Tx, a *domain.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.rooms[a.RoomID] = cloneAuction(a)
	return nil
}

func (r *fakeAuctionRepo) ListByStatuses(_ context.Context, statuses ...domain.Status) ([]*domain.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Auction
	for _, a := range r.rooms {
		for _, s := range statuses {
			if a.Status == s {
				out = append(out, cloneAuction(a))
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeAuctionRepo) ListActive(ctx context.Context) ([]*domain.Auction, error) {
	return r.ListByStatuses(ctx, domain.StatusActive)
}

func (r *fakeAuctionRepo) ListCreatedBy(_ context.Context, username string) ([]*domain.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Auction
	for _, a := range r.rooms {
		if a.CreatedBy == username {
			out = append(out, cloneAuction(a))
		}
	}
	return out, nil
}

func (r *fakeAuctionRepo) ListJoinedBy(_ context.Context, username string) ([]*domain.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Auction
	for _, a := range r.rooms {
		for _, u := range a.JoinedUsers {
			if u == username {
				out = append(out, cloneAuction(a))
				break
			}
		}
	}
	return out, nil
}

func (r *fakeAuctionRepo) Delete(_ context.Context, _ pgx.Tx, roomID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms, roomID)
	return nil
}

// fakeBidRepo is an in-memory append-only ledger.
type fakeBidRepo struct {
	mu      sync.Mutex
	bids    []*domain.Bid
	saveErr error
}

func newFakeBidRepo() *fakeBidRepo {
	return &fakeBidRepo{}
}

func (r *fakeBidRepo) Save(_ context.Context, _ pgx.Tx, bid *domain.Bid) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	b := *bid
	r.bids = append(r.bids, &b)
	return nil
}

func (r *fakeBidRepo) ClearWinning(_ context.Context, _ pgx.Tx, roomID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bids {
		if b.RoomID == roomID {
			b.IsWinning = false
		}
	}
	return nil
}

func (r *fakeBidRepo) ListByRoom(_ context.Context, roomID string, limit, offset int) ([]*domain.Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []*domain.Bid
	for _, b := range r.bids {
		if b.RoomID == roomID {
			c := *b
			all = append(all, &c)
		}
	}
	// most recent first, i.e. reverse placement order
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (r *fakeBidRepo) CountByRoom(_ context.Context, roomID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, b := range r.bids {
		if b.RoomID == roomID {
			n++
		}
	}
	return n, nil
}

func (r *fakeBidRepo) DeleteByRoom(_ context.Context, _ pgx.Tx, roomID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []*domain.Bid
	for _, b := range r.bids {
		if b.RoomID != roomID {
			kept = append(kept, b)
		}
	}
	r.bids = kept
	return nil
}

// amounts returns the room's recorded amounts in placement order.
func (r *fakeBidRepo) amounts(roomID string) []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []float64
	for _, b := range r.bids {
		if b.RoomID == roomID {
			out = append(out, b.Amount)
		}
	}
	return out
}

func (r *fakeBidRepo) winningCount(roomID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, b := range r.bids {
		if b.RoomID == roomID && b.IsWinning {
			n++
		}
	}
	return n
}

// fakePresenceRepo keeps connection epochs in memory.
type fakePresenceRepo struct {
	mu      sync.Mutex
	records []*domain.Presence
}

func newFakePresenceRepo() *fakePresenceRepo {
	return &fakePresenceRepo{}
}

func (r *fakePresenceRepo) Open(_ context.Context, roomID, username string, at time.Time) (*domain.Presence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.records {
		if p.RoomID == roomID && p.Username == username && p.LeftAt == nil {
			return p, nil
		}
	}
	p := domain.NewPresence(roomID, username, at)
	r.records = append(r.records, p)
	return p, nil
}

func (r *fakePresenceRepo) Close(_ context.Context, roomID, username string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.records {
		if p.RoomID == roomID && p.Username == username && p.LeftAt == nil {
			t := at
			p.LeftAt = &t
			p.Status = domain.PresenceDisconnected
		}
	}
	return nil
}

func (r *fakePresenceRepo) CloseAllForRoom(_ context.Context, roomID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.records {
		if p.RoomID == roomID && p.LeftAt == nil {
			t := at
			p.LeftAt = &t
			p.Status = domain.PresenceDisconnected
		}
	}
	return nil
}

func (r *fakePresenceRepo) DeleteByRoom(_ context.Context, _ pgx.Tx, roomID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []*domain.Presence
	for _, p := range r.records {
		if p.RoomID != roomID {
			kept = append(kept, p)
		}
	}
	r.records = kept
	return nil
}

func (r *fakePresenceRepo) openEpochs(roomID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, p := range r.records {
		if p.RoomID == roomID && p.LeftAt == nil {
			n++
		}
	}
	return n
}

// fakeNotifier records broadcasts per type.
type fakeNotifier struct {
	mu          sync.Mutex
	bidAccepted []*domain.Bid
	joined      []string
	left        []string
	creatorLeft []string
	ended       []string
	deleted     []string
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{}
}

func (n *fakeNotifier) BidAccepted(_ string, bid *domain.Bid) {
	n.mu.Lock()
	defer n.mu.Unlock()
	b := *bid
	n.bidAccepted = append(n.bidAccepted, &b)
}

func (n *fakeNotifier) MemberJoined(_, username string, _ []string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.joined = append(n.joined, username)
}

func (n *fakeNotifier) MemberLeft(_, username string, _ domain.LeaveReason, wasCreator bool, _ []string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if wasCreator {
		n.creatorLeft = append(n.creatorLeft, username)
		return
	}
	n.left = append(n.left, username)
}

func (n *fakeNotifier) AuctionEnded(roomID, _ string, _ float64, _ domain.EndReason) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ended = append(n.ended, roomID)
}

func (n *fakeNotifier) AuctionDeleted(roomID string, _ FinalStatsDTO) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deleted = append(n.deleted, roomID)
}

func (n *fakeNotifier) bidCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.bidAccepted)
}

func (n *fakeNotifier) endedCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.ended)
}

// fakeUsers treats every listed username as existing.
type fakeUsers struct {
	known map[string]bool
}

func newFakeUsers(usernames ...string) *fakeUsers {
	known := make(map[string]bool, len(usernames))
	for _, u := range usernames {
		known[u] = true
	}
	return &fakeUsers{known: known}
}

func (u *fakeUsers) Exists(_ context.Context, username string) (bool, error) {
	return u.known[username], nil
}
