package dispatch

import (
	"context"
	"encoding/json"
	"time"

	"github.com/agrisense/agrisense-core/internal/device"
	"github.com/agrisense/agrisense-core/internal/link"
	"github.com/agrisense/agrisense-core/internal/telemetry"
)

// StateCache records device state observations.
type StateCache interface {
	Upsert(deviceID string, on bool, at time.Time) (changed, known bool)
	All() []device.Record
}

// Ingestor accepts parsed sensor readings.
type Ingestor interface {
	Ingest(ctx context.Context, reading telemetry.Reading)
}

// Notifier pushes device state changes to realtime subscribers.
type Notifier interface {
	BroadcastDeviceState(deviceID string, on bool)
}

// Announcer re-publishes device state toward the fleet.
type Announcer interface {
	AnnounceState(deviceID string, on bool, at time.Time) bool
}

// MetricsWriter mirrors device state transitions into a time-series store.
type MetricsWriter interface {
	WriteDeviceState(siteID, deviceID string, on bool)
}

// Logger is the minimal logging interface this package needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(msg string, args ...any) {}
func (noopLogger) Info(msg string, args ...any)  {}
func (noopLogger) Warn(msg string, args ...any)  {}

// Dispatcher consumes the link's inbound stream and routes each message.
type Dispatcher struct {
	topics    link.Topics
	cache     StateCache
	ingestor  Ingestor
	notifier  Notifier
	announcer Announcer
	metrics   MetricsWriter
	logger    Logger
	siteID    string
}

// Option configures optional dispatcher collaborators.
type Option func(*Dispatcher)

// WithMetrics mirrors state transitions into a time-series store.
func WithMetrics(w MetricsWriter, siteID string) Option {
	return func(d *Dispatcher) {
		d.metrics = w
		d.siteID = siteID
	}
}

// WithLogger sets the dispatcher logger.
func WithLogger(logger Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

// New creates a dispatcher. announcer may be nil when state re-announcement
// is not wanted.
func New(cache StateCache, ingestor Ingestor, notifier Notifier, announcer Announcer, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		cache:     cache,
		ingestor:  ingestor,
		notifier:  notifier,
		announcer: announcer,
		logger:    noopLogger{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run drains inbound until ctx is cancelled. Intended to run as the single
// consumer goroutine of the link's inbound channel.
func (d *Dispatcher) Run(ctx context.Context, inbound <-chan link.Message) {
	d.logger.Info("dispatcher started")
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("dispatcher stopped")
			return
		case msg := <-inbound:
			d.route(ctx, msg)
		}
	}
}

func (d *Dispatcher) route(ctx context.Context, msg link.Message) {
	topic := msg.Topic
	switch {
	case d.topics.IsStatus(topic), d.topics.IsControl(topic):
		d.handleDeviceState(msg)
	case topic == d.topics.SensorData():
		d.handleSensorData(ctx, msg)
	case topic == d.topics.Test():
		d.logger.Debug("liveness message", "payload", string(msg.Payload))
	default:
		// Remaining subscription: status requests.
		d.handleStatusRequest(msg)
	}
}

// handleDeviceState applies a status echo or an observed control command to
// the cache. Both are treated as observations; the cache converges on
// whatever the fleet last said, and replays are harmless.
func (d *Dispatcher) handleDeviceState(msg link.Message) {
	deviceID := d.topics.DeviceFromTopic(msg.Topic)
	if deviceID == "" {
		d.logger.Warn("device topic without device segment", "topic", msg.Topic)
		return
	}

	var payload link.StatePayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		d.logger.Warn("malformed device payload dropped",
			"topic", msg.Topic, "error", err)
		return
	}

	at := msg.Received
	if payload.Timestamp > 0 {
		at = time.Unix(payload.Timestamp, 0)
	}

	changed, known := d.cache.Upsert(deviceID, payload.Status, at)
	if !known {
		d.logger.Warn("message for unknown device dropped", "device", deviceID)
		return
	}

	d.notifier.BroadcastDeviceState(deviceID, payload.Status)
	if changed && d.metrics != nil {
		d.metrics.WriteDeviceState(d.siteID, deviceID, payload.Status)
	}
}

func (d *Dispatcher) handleSensorData(ctx context.Context, msg link.Message) {
	reading, err := telemetry.ParseReading(msg.Payload)
	if err != nil {
		d.logger.Warn("malformed sensor payload dropped", "error", err)
		return
	}
	d.ingestor.Ingest(ctx, reading)
}

// handleStatusRequest answers a fleet member asking for current state by
// re-announcing every cached device.
func (d *Dispatcher) handleStatusRequest(msg link.Message) {
	if d.announcer == nil {
		return
	}
	d.logger.Debug("status requested", "topic", msg.Topic)
	for _, rec := range d.cache.All() {
		d.announcer.AnnounceState(rec.ID, rec.On, rec.UpdatedAt)
	}
}

// AnnounceAll re-publishes every cached device state. Wired to the link's
// on-connect hook so the fleet converges after a reconnection.
func (d *Dispatcher) AnnounceAll() {
	if d.announcer == nil {
		return
	}
	for _, rec := range d.cache.All() {
		d.announcer.AnnounceState(rec.ID, rec.On, rec.UpdatedAt)
	}
}
