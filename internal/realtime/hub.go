package realtime

import (
	"encoding/json"
	"sync"

	"github.com/agrisense/agrisense-core/internal/telemetry"
)

// Logger is the minimal logging interface this package needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(msg string, args ...any) {}
func (noopLogger) Info(msg string, args ...any)  {}
func (noopLogger) Warn(msg string, args ...any)  {}
func (noopLogger) Error(msg string, args ...any) {}

// Hub tracks WebSocket subscribers and fans events out to them.
// Safe for concurrent use.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  Logger
}

// NewHub creates an empty hub.
func NewHub(logger Logger) *Hub {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a subscriber.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("subscriber connected", "total", count)
}

// Unregister removes a subscriber and closes its send queue.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	count := len(h.clients)
	h.mu.Unlock()
	if ok {
		h.logger.Info("subscriber disconnected", "total", count)
	}
}

// ClientCount returns the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast marshals the event once and offers it to every subscriber.
// Subscribers whose send queue is full are dropped.
func (h *Hub) Broadcast(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("event marshal failed", "type", event.Type, "error", err)
		return
	}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if !c.trySend(payload) {
			h.logger.Warn("subscriber too slow, dropping")
			h.Unregister(c)
		}
	}
}

// BroadcastReading pushes a fresh sensor reading to all subscribers.
// Satisfies the telemetry gate's Broadcaster.
func (h *Hub) BroadcastReading(reading telemetry.Reading) {
	h.Broadcast(newEvent(EventReading, reading))
}

// BroadcastDeviceState announces a device state change.
func (h *Hub) BroadcastDeviceState(deviceID string, on bool) {
	h.Broadcast(newEvent(EventDeviceState, DeviceStateData{Device: deviceID, On: on}))
}

// BroadcastLinkState announces a fleet link transition.
func (h *Hub) BroadcastLinkState(state string) {
	h.Broadcast(newEvent(EventLinkState, LinkStateData{State: state}))
}
