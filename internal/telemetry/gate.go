package telemetry

import (
	"context"
	"sync"
	"time"
)

// rainfallCacheTTL bounds how often the external rainfall upstreams are
// consulted; readings between refreshes reuse the cached figures.
const rainfallCacheTTL = 15 * time.Minute

// Store is the durable side of the gate.
type Store interface {
	SaveReading(ctx context.Context, reading Reading) error
}

// Broadcaster pushes readings to realtime subscribers.
type Broadcaster interface {
	BroadcastReading(reading Reading)
}

// MetricsWriter mirrors persisted readings into a time-series store.
// Implementations must not block the caller.
type MetricsWriter interface {
	WriteSensorReading(siteID string, fields map[string]float64, ts time.Time)
}

// RainfallSource supplies external rainfall enrichment.
type RainfallSource interface {
	TodayRainfall(ctx context.Context) (float64, error)
	LastMonthRainfall(ctx context.Context) (float64, error)
}

// Logger is the minimal logging interface this package needs.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(msg string, args ...any) {}
func (noopLogger) Warn(msg string, args ...any)  {}
func (noopLogger) Error(msg string, args ...any) {}

// Gate is the single ingest point for sensor readings. Every reading is
// enriched and broadcast; durable writes happen at most once per persist
// interval.
type Gate struct {
	store       Store
	broadcaster Broadcaster
	metrics     MetricsWriter
	rainfall    RainfallSource
	logger      Logger

	siteID          string
	persistInterval time.Duration

	mu          sync.Mutex
	latest      Reading
	hasLatest   bool
	lastPersist time.Time

	rainMu      sync.Mutex
	rainToday   float64
	rainMonthly float64
	rainFetched time.Time

	// now is swappable for tests.
	now func() time.Time
}

// GateOption configures optional gate collaborators.
type GateOption func(*Gate)

// WithMetrics mirrors persisted readings into a time-series store.
func WithMetrics(w MetricsWriter) GateOption {
	return func(g *Gate) { g.metrics = w }
}

// WithRainfall enables rainfall enrichment.
func WithRainfall(src RainfallSource) GateOption {
	return func(g *Gate) { g.rainfall = src }
}

// WithLogger sets the gate logger.
func WithLogger(logger Logger) GateOption {
	return func(g *Gate) { g.logger = logger }
}

// NewGate creates a telemetry gate.
func NewGate(store Store, broadcaster Broadcaster, siteID string, persistInterval time.Duration, opts ...GateOption) *Gate {
	g := &Gate{
		store:           store,
		broadcaster:     broadcaster,
		logger:          noopLogger{},
		siteID:          siteID,
		persistInterval: persistInterval,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Ingest processes one raw sensor reading: enrich, update latest, broadcast,
// and persist when the cadence allows. Enrichment and persistence failures
// are logged; the broadcast happens regardless.
func (g *Gate) Ingest(ctx context.Context, reading Reading) {
	now := g.now()
	if reading.Timestamp == 0 {
		reading.Timestamp = now.Unix()
	}

	g.enrich(ctx, &reading)

	g.mu.Lock()
	g.latest = reading
	g.hasLatest = true
	persist := shouldPersist(now, g.lastPersist, g.persistInterval)
	prevPersist := g.lastPersist
	if persist {
		g.lastPersist = now
	}
	g.mu.Unlock()

	if g.broadcaster != nil {
		g.broadcaster.BroadcastReading(reading)
	}

	if !persist {
		g.logger.Debug("reading pushed, persistence throttled")
		return
	}

	if err := g.store.SaveReading(ctx, reading); err != nil {
		// The cadence tracks successful writes only: roll the mark back so
		// the next reading retries instead of waiting out a full interval.
		g.mu.Lock()
		if g.lastPersist.Equal(now) {
			g.lastPersist = prevPersist
		}
		g.mu.Unlock()
		g.logger.Error("reading persist failed", "error", err)
		return
	}
	if g.metrics != nil {
		g.metrics.WriteSensorReading(g.siteID, reading.Fields(), time.Unix(reading.Timestamp, 0))
	}
	g.logger.Debug("reading persisted", "timestamp", reading.Timestamp)
}

// Latest returns the freshest reading seen this process, persisted or not.
func (g *Gate) Latest() (Reading, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.latest, g.hasLatest
}

// Prime seeds the latest reading, typically from the store at startup so
// the first snapshot after a restart is not empty.
func (g *Gate) Prime(reading Reading) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.hasLatest {
		g.latest = reading
		g.hasLatest = true
	}
}

// enrich attaches cached rainfall figures, refreshing them from upstream
// when stale. Upstream failures leave the previous figures in place.
func (g *Gate) enrich(ctx context.Context, reading *Reading) {
	if g.rainfall == nil {
		return
	}

	g.rainMu.Lock()
	defer g.rainMu.Unlock()

	if g.now().Sub(g.rainFetched) >= rainfallCacheTTL {
		today, err := g.rainfall.TodayRainfall(ctx)
		if err != nil {
			g.logger.Warn("today rainfall lookup failed", "error", err)
		} else {
			g.rainToday = today
		}

		monthly, err := g.rainfall.LastMonthRainfall(ctx)
		if err != nil {
			g.logger.Warn("monthly rainfall lookup failed", "error", err)
		} else {
			g.rainMonthly = monthly
		}
		g.rainFetched = g.now()
	}

	reading.Rainfall = g.rainToday
	reading.MonthlyRainfall = g.rainMonthly
}

// shouldPersist reports whether a reading arriving at now clears the
// persistence cadence. The first reading always persists.
func shouldPersist(now, lastPersist time.Time, interval time.Duration) bool {
	if lastPersist.IsZero() {
		return true
	}
	return now.Sub(lastPersist) >= interval
}
