package hub

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func newTestClient(h *Hub, buffer int) *Client {
	c := &Client{hub: h, send: make(chan Message, buffer)}
	h.register <- c
	return c
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case msg, ok := <-c.send:
		if !ok {
			t.Fatal("send channel closed")
		}
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
	return Message{}
}

func TestHubBroadcast(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New("test")
	go h.Run(ctx)

	a := newTestClient(h, 4)
	b := newTestClient(h, 4)
	waitFor(t, func() bool { return h.ClientCount() == 2 })

	if err := h.BroadcastJSON(map[string]string{"label": "pikachu"}); err != nil {
		t.Fatalf("BroadcastJSON failed: %v", err)
	}

	for _, c := range []*Client{a, b} {
		msg := receive(t, c)
		if msg.Type != JSONMessage {
			t.Errorf("Expected JSON message, got %v", msg.Type)
		}
		var got map[string]string
		if err := json.Unmarshal(msg.Data, &got); err != nil || got["label"] != "pikachu" {
			t.Errorf("Unexpected payload %s (%v)", msg.Data, err)
		}
	}
}

func TestHubUnregister(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New("test")
	go h.Run(ctx)

	c := newTestClient(h, 1)
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	h.unregister <- c
	waitFor(t, func() bool { return h.ClientCount() == 0 })

	if _, ok := <-c.send; ok {
		t.Error("Expected send channel to be closed")
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New("test")
	go h.Run(ctx)

	slow := newTestClient(h, 1)
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	h.BroadcastBinary([]byte{1})
	h.BroadcastBinary([]byte{2})
	waitFor(t, func() bool { return h.ClientCount() == 0 })

	if msg := <-slow.send; msg.Type != BinaryMessage || msg.Data[0] != 1 {
		t.Errorf("Expected first binary message, got %+v", msg)
	}
}

func TestHubReplay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New("test", WithReplay(2))
	go h.Run(ctx)

	for i := byte(1); i <= 3; i++ {
		h.BroadcastBinary([]byte{i})
	}
	// Broadcasts are queued; wait for them to land in history.
	waitFor(t, func() bool { return len(h.broadcast) == 0 })

	late := newTestClient(h, 4)
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	for _, want := range []byte{2, 3} {
		if msg := receive(t, late); msg.Data[0] != want {
			t.Errorf("Expected replay of %d, got %d", want, msg.Data[0])
		}
	}
}

func TestHubStopsOnContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	h := New("test")
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	c := newTestClient(h, 1)
	waitFor(t, h.IsRunning)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
	if h.IsRunning() {
		t.Error("Expected hub to report stopped")
	}
	if _, ok := <-c.send; ok {
		t.Error("Expected client channel closed on shutdown")
	}
}

func TestNewClientAfterStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := New("test")
	go h.Run(ctx)
	waitFor(t, h.IsRunning)
	cancel()

	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}
	if _, err := NewClient(h, nil); !errors.Is(err, ErrStopped) {
		t.Errorf("Expected ErrStopped, got %v", err)
	}
}
