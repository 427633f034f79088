package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestClient(h *Hub, roomID, username string) *Client {
	return &Client{
		Hub:      h,
		Send:     make(chan []byte, 8),
		RoomID:   roomID,
		Username: username,
	}
}

func recvMessage(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case data, ok := <-c.Send:
		require.True(t, ok, "send channel closed")
		return data
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
		return nil
	}
}

func requireNoMessage(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.Send:
		t.Fatalf("unexpected message: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_BroadcastToRoom(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub()
	go h.Run(ctx)

	a := newTestClient(h, "room_alice_1", "bob")
	b := newTestClient(h, "room_alice_1", "carol")
	h.RegisterClient(a)
	h.RegisterClient(b)

	h.BroadcastToRoom("room_alice_1", []byte(`{"type":"bid_accepted"}`))

	require.JSONEq(t, `{"type":"bid_accepted"}`, string(recvMessage(t, a)))
	require.JSONEq(t, `{"type":"bid_accepted"}`, string(recvMessage(t, b)))
}

func TestHub_NoCrossRoomLeakage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub()
	go h.Run(ctx)

	a := newTestClient(h, "room_alice_1", "bob")
	other := newTestClient(h, "room_dave_2", "carol")
	h.RegisterClient(a)
	h.RegisterClient(other)

	h.BroadcastToRoom("room_alice_1", []byte("hello"))

	require.Equal(t, "hello", string(recvMessage(t, a)))
	requireNoMessage(t, other)
}

func TestHub_BroadcastPreservesOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub()
	go h.Run(ctx)

	a := newTestClient(h, "room_alice_1", "bob")
	h.RegisterClient(a)

	h.BroadcastToRoom("room_alice_1", []byte("first"))
	h.BroadcastToRoom("room_alice_1", []byte("second"))
	h.BroadcastToRoom("room_alice_1", []byte("third"))

	require.Equal(t, "first", string(recvMessage(t, a)))
	require.Equal(t, "second", string(recvMessage(t, a)))
	require.Equal(t, "third", string(recvMessage(t, a)))
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub()
	go h.Run(ctx)

	a := newTestClient(h, "room_alice_1", "bob")
	h.RegisterClient(a)
	h.UnregisterClient(a)

	select {
	case _, ok := <-a.Send:
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("send channel not closed")
	}

	// Broadcasts after unregister go nowhere and do not block.
	h.BroadcastToRoom("room_alice_1", []byte("late"))
}

func TestHub_SendToClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub()
	go h.Run(ctx)

	a := newTestClient(h, "room_alice_1", "bob")
	roommate := newTestClient(h, "room_alice_1", "carol")
	h.RegisterClient(a)
	h.RegisterClient(roommate)

	h.SendToClient(a, []byte("just for bob"))

	require.Equal(t, "just for bob", string(recvMessage(t, a)))
	requireNoMessage(t, roommate)
}

func TestHub_SendToClientAfterUnregister(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub()
	go h.Run(ctx)

	a := newTestClient(h, "room_alice_1", "bob")
	roommate := newTestClient(h, "room_alice_1", "carol")
	h.RegisterClient(a)
	h.RegisterClient(roommate)
	h.UnregisterClient(a)

	// The client disconnected while a reply to it was still in flight: the
	// hub must drop the frame, not send on the closed channel.
	h.SendToClient(a, []byte("too late"))
	h.BroadcastToRoom("room_alice_1", []byte("still going"))

	require.Equal(t, "still going", string(recvMessage(t, roommate)))

	select {
	case _, ok := <-a.Send:
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("send channel not closed")
	}
}

func TestHub_SlowClientDropped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub()
	go h.Run(ctx)

	slow := &Client{Hub: h, Send: make(chan []byte), RoomID: "room_alice_1", Username: "bob"}
	h.RegisterClient(slow)

	// An unbuffered Send with no reader cannot accept the delivery; the hub
	// drops the client instead of blocking the loop. Nobody reads until the
	// hub had time to process the broadcast.
	h.BroadcastToRoom("room_alice_1", []byte("data"))
	time.Sleep(100 * time.Millisecond)

	select {
	case _, ok := <-slow.Send:
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("slow client was not dropped")
	}
}
