package application

import (
	"context"
	"testing"
	"time"

	"github.com/cfuentes/bidroom/internal/auction/domain"
	"github.com/stretchr/testify/require"
)

func TestRoomQueries_GetRoomSnapshot(t *testing.T) {
	f := newRoomFixture(t, "alice", "bob", "carol")
	q := NewRoomQueries(f.auctionRepo, f.bidRepo, f.roster)
	room := activeRoom("alice", 50)
	f.auctionRepo.put(room)

	ctx := context.Background()
	for _, u := range []string{"bob", "carol"} {
		_, err := f.presence.Join(ctx, room.RoomID, u)
		require.NoError(t, err)
	}
	_, err := f.placeBid.Execute(ctx, PlaceBidDTO{RoomID: room.RoomID, Username: "bob", Amount: 60})
	require.NoError(t, err)
	_, err = f.placeBid.Execute(ctx, PlaceBidDTO{RoomID: room.RoomID, Username: "carol", Amount: 75})
	require.NoError(t, err)

	snap, err := q.GetRoomSnapshot(ctx, room.RoomID)
	require.NoError(t, err)
	require.Equal(t, 75.0, snap.CurrentBid)
	require.Equal(t, "carol", snap.HighestBidder)
	require.True(t, snap.IsActive)
	require.Greater(t, snap.TimeRemainingMS, int64(0))
	require.Equal(t, []string{"bob", "carol"}, snap.OnlineUsers)
	require.ElementsMatch(t, []string{"bob", "carol"}, snap.JoinedUsers)

	// History is most recent first with a single winning entry.
	require.Len(t, snap.BidHistory, 2)
	require.Equal(t, 75.0, snap.BidHistory[0].Amount)
	require.True(t, snap.BidHistory[0].IsWinning)
	require.Equal(t, 60.0, snap.BidHistory[1].Amount)
	require.False(t, snap.BidHistory[1].IsWinning)
}

func TestRoomQueries_GetRoomSnapshot_UnknownRoom(t *testing.T) {
	f := newRoomFixture(t)
	q := NewRoomQueries(f.auctionRepo, f.bidRepo, f.roster)
	_, err := q.GetRoomSnapshot(context.Background(), "room_nobody_0")
	require.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestRoomQueries_ListBids_ClampsPageSize(t *testing.T) {
	f := newRoomFixture(t, "alice", "bob", "carol")
	q := NewRoomQueries(f.auctionRepo, f.bidRepo, f.roster)
	room := activeRoom("alice", 0.5)
	f.auctionRepo.put(room)

	ctx := context.Background()
	bidders := []string{"bob", "carol"}
	for i := 1; i <= 60; i++ {
		_, err := f.placeBid.Execute(ctx, PlaceBidDTO{RoomID: room.RoomID, Username: bidders[i%2], Amount: float64(i)})
		require.NoError(t, err)
	}

	page, err := q.ListBids(ctx, room.RoomID, 1000, 0)
	require.NoError(t, err)
	require.Len(t, page, maxBidPageSize)
	require.Equal(t, 60.0, page[0].Amount)

	second, err := q.ListBids(ctx, room.RoomID, 10, 50)
	require.NoError(t, err)
	require.Len(t, second, 10)
	require.Equal(t, 10.0, second[0].Amount)
	require.Equal(t, 1.0, second[9].Amount)
}

func TestRoomQueries_ListAuctions(t *testing.T) {
	f := newRoomFixture(t, "alice")
	q := NewRoomQueries(f.auctionRepo, f.bidRepo, f.roster)

	active := activeRoom("alice", 50)
	f.auctionRepo.put(active)
	ended := domain.NewAuction("alice", "Old", "lamp", "", 20, time.Hour, time.Now().UTC().Add(-time.Minute))
	ended.End(time.Now().UTC())
	f.auctionRepo.put(ended)

	out, err := q.ListAuctions(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 2)
	for _, s := range out {
		if s.RoomID == ended.RoomID {
			require.False(t, s.IsActive)
			require.Zero(t, s.TimeRemainingMS)
		} else {
			require.True(t, s.IsActive)
		}
	}
}

func TestRoomQueries_ListUserAuctions(t *testing.T) {
	f := newRoomFixture(t, "alice", "bob")
	q := NewRoomQueries(f.auctionRepo, f.bidRepo, f.roster)

	mine := activeRoom("alice", 50)
	mine.AddJoinedUser("alice")
	f.auctionRepo.put(mine)

	other := domain.NewAuction("bob", "Lamp", "lamp", "", 20, time.Hour, time.Now().UTC().Add(-time.Second))
	other.AddJoinedUser("alice")
	f.auctionRepo.put(other)

	dto, err := q.ListUserAuctions(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, dto.Created, 1)
	require.Equal(t, mine.RoomID, dto.Created[0].RoomID)
	// Own rooms never appear in the joined listing.
	require.Len(t, dto.Joined, 1)
	require.Equal(t, other.RoomID, dto.Joined[0].RoomID)
}
