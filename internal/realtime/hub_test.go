package realtime

import (
	"encoding/json"
	"testing"

	"github.com/agrisense/agrisense-core/internal/telemetry"
)

// testClient creates a client with a send queue but no connection; the
// pumps are never started in these tests.
func testClient(h *Hub, buffer int) *Client {
	return &Client{hub: h, send: make(chan []byte, buffer)}
}

func TestHubBroadcastDelivers(t *testing.T) {
	hub := NewHub(nil)
	c := testClient(hub, 4)
	hub.Register(c)

	hub.BroadcastDeviceState("pump", true)

	select {
	case payload := <-c.send:
		var event Event
		if err := json.Unmarshal(payload, &event); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if event.Type != EventDeviceState {
			t.Errorf("event type = %q", event.Type)
		}
	default:
		t.Fatal("no event delivered")
	}
}

func TestHubDropsSlowSubscriber(t *testing.T) {
	hub := NewHub(nil)
	slow := testClient(hub, 1)
	healthy := testClient(hub, 4)
	hub.Register(slow)
	hub.Register(healthy)

	// Fill the slow subscriber's queue, then broadcast twice.
	slow.send <- []byte("backlog")
	hub.BroadcastLinkState("connected")
	hub.BroadcastLinkState("disconnected")

	if hub.ClientCount() != 1 {
		t.Errorf("expected slow subscriber dropped, count = %d", hub.ClientCount())
	}
	if len(healthy.send) != 2 {
		t.Errorf("healthy subscriber got %d events, want 2", len(healthy.send))
	}
}

func TestHubUnregisterIdempotent(t *testing.T) {
	hub := NewHub(nil)
	c := testClient(hub, 1)
	hub.Register(c)

	hub.Unregister(c)
	hub.Unregister(c) // second call must not panic on the closed channel

	if hub.ClientCount() != 0 {
		t.Errorf("count = %d, want 0", hub.ClientCount())
	}
}

func TestHubBroadcastReading(t *testing.T) {
	hub := NewHub(nil)
	c := testClient(hub, 1)
	hub.Register(c)

	hub.BroadcastReading(telemetry.Reading{Temperature: 28.5})

	payload := <-c.send
	var event struct {
		Type string            `json:"type"`
		Data telemetry.Reading `json:"data"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if event.Type != EventReading || event.Data.Temperature != 28.5 {
		t.Errorf("unexpected event: %+v", event)
	}
}
