package api

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nerrad567/edge-bridge/internal/events"
	"github.com/nerrad567/edge-bridge/internal/infrastructure/config"
)

// subscribedClient registers a connectionless client on hub.
func subscribedClient(t *testing.T, hub *Hub, channels ...string) *feedClient {
	t.Helper()
	c := newFeedClient(hub, nil)
	if len(channels) > 0 {
		if err := c.subscribe(channels); err != nil {
			t.Fatalf("subscribe(%v) error = %v", channels, err)
		}
	}
	hub.register(c)
	return c
}

func readFrame(t *testing.T, c *feedClient) Frame {
	t.Helper()
	select {
	case data := <-c.out:
		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return f
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
	}
	return Frame{}
}

func TestHub_BroadcastToSubscribed(t *testing.T) {
	hub := NewHub(testWSConfig(), testLogger())
	c := subscribedClient(t, hub, string(events.TypeRegistrationEvicted))

	hub.Broadcast(string(events.TypeRegistrationEvicted), map[string]any{"hub": "192.168.1.50:8000"})

	f := readFrame(t, c)
	if f.Type != FrameEvent || f.Channel != string(events.TypeRegistrationEvicted) {
		t.Errorf("frame = %+v, want %s event", f, events.TypeRegistrationEvicted)
	}
	if f.Time == "" {
		t.Error("event frame has no time")
	}
}

func TestHub_NoFrameForUnsubscribed(t *testing.T) {
	hub := NewHub(testWSConfig(), testLogger())
	c := subscribedClient(t, hub, string(events.TypeForwardCompleted))

	hub.Broadcast(string(events.TypeHubDelivery), map[string]any{"success": false})

	select {
	case <-c.out:
		t.Error("unsubscribed client should not receive frame")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHub_AllChannels(t *testing.T) {
	hub := NewHub(testWSConfig(), testLogger())
	c := subscribedClient(t, hub, AllChannels)

	for _, typ := range events.Types() {
		hub.Broadcast(string(typ), nil)
		if f := readFrame(t, c); f.Channel != string(typ) {
			t.Errorf("channel = %q, want %q", f.Channel, typ)
		}
	}
}

func TestHub_FullQueueCountsDrops(t *testing.T) {
	hub := NewHub(testWSConfig(), testLogger())
	subscribedClient(t, hub, string(events.TypeHubDelivery))

	for i := 0; i < feedQueueSize+3; i++ {
		hub.Broadcast(string(events.TypeHubDelivery), i)
	}
	if got := hub.Dropped(); got != 3 {
		t.Errorf("Dropped() = %d, want 3", got)
	}
}

func TestHub_ClientCount(t *testing.T) {
	hub := NewHub(testWSConfig(), testLogger())
	if hub.ClientCount() != 0 {
		t.Errorf("initial client count = %d, want 0", hub.ClientCount())
	}

	c := subscribedClient(t, hub)
	if hub.ClientCount() != 1 {
		t.Errorf("after register count = %d, want 1", hub.ClientCount())
	}

	hub.unregister(c)
	if hub.ClientCount() != 0 {
		t.Errorf("after unregister count = %d, want 0", hub.ClientCount())
	}

	// A second unregister must not close the queue twice.
	hub.unregister(c)
	if c.enqueue([]byte("late")) {
		t.Error("enqueue on a closed client should fail")
	}
}

func TestHub_RunDisconnectsClients(t *testing.T) {
	hub := NewHub(testWSConfig(), testLogger())
	c := subscribedClient(t, hub, AllChannels)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if hub.ClientCount() != 0 {
		t.Errorf("client count = %d, want 0", hub.ClientCount())
	}
	if _, ok := <-c.out; ok {
		t.Error("client queue should be closed")
	}
}

func TestFeedClient_Subscribe(t *testing.T) {
	c := newFeedClient(NewHub(testWSConfig(), testLogger()), nil)

	if err := c.subscribe(nil); err == nil {
		t.Error("subscribe(nil) should fail")
	}
	if err := c.subscribe([]string{"hub.delivery", "nope"}); err == nil {
		t.Error("subscribe with an unknown channel should fail")
	}
	if got := c.subscriptions(); len(got) != 0 {
		t.Errorf("subscriptions = %v, want none after rejected subscribe", got)
	}

	if err := c.subscribe([]string{"registration.removed", "hub.delivery"}); err != nil {
		t.Fatalf("subscribe() error = %v", err)
	}
	got := c.subscriptions()
	if len(got) != 2 || got[0] != "hub.delivery" || got[1] != "registration.removed" {
		t.Errorf("subscriptions = %v, want sorted pair", got)
	}

	c.unsubscribe([]string{"hub.delivery"})
	if c.wants("hub.delivery") || !c.wants("registration.removed") {
		t.Errorf("after unsubscribe subscriptions = %v", c.subscriptions())
	}
}

func TestFeedTimings(t *testing.T) {
	ping, pong := feedTimings(testWSConfig())
	if ping != 30*time.Second || pong != 10*time.Second {
		t.Errorf("feedTimings() = %v, %v", ping, pong)
	}
	ping, pong = feedTimings(config.WebSocketConfig{})
	if ping != defaultPingInterval || pong != defaultPongTimeout {
		t.Errorf("feedTimings(zero) = %v, %v, want defaults", ping, pong)
	}
}

func TestHub_AsEventSink(t *testing.T) {
	hub := NewHub(testWSConfig(), testLogger())
	c := subscribedClient(t, hub, string(events.TypeForwardCompleted))

	sink := events.NewHubSink(hub)
	e := events.New(events.TypeForwardCompleted)
	e.StatusCode = 200
	sink.Emit(e)

	select {
	case data := <-c.out:
		var f struct {
			Channel string       `json:"channel"`
			Data    events.Event `json:"data"`
		}
		if err := json.Unmarshal(data, &f); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if f.Data.ID != e.ID || f.Data.StatusCode != 200 {
			t.Errorf("data = %+v, want event %s with status 200", f.Data, e.ID)
		}
	case <-time.After(time.Second):
		t.Error("timed out waiting for event")
	}
}
