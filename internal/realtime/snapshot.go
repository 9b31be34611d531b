package realtime

import (
	"context"
	"time"

	"github.com/agrisense/agrisense-core/internal/telemetry"
	"github.com/agrisense/agrisense-core/internal/weather"
)

// forecastCacheTTL bounds calls to the forecast upstream; snapshots between
// refreshes reuse the cached forecast.
const forecastCacheTTL = 30 * time.Minute

// LatestSource supplies the freshest sensor reading.
type LatestSource interface {
	Latest() (telemetry.Reading, bool)
}

// HistorySource supplies stored readings, newest first.
type HistorySource interface {
	History(ctx context.Context, limit int) ([]telemetry.Reading, error)
}

// DeviceSource supplies the current device state map.
type DeviceSource interface {
	States() map[string]bool
}

// ForecastSource supplies the aggregated multi-day forecast.
type ForecastSource interface {
	FiveDayForecast(ctx context.Context) (weather.Forecast, error)
}

// Snapshotter periodically assembles and broadcasts the full dashboard
// snapshot while subscribers are connected.
type Snapshotter struct {
	hub      *Hub
	latest   LatestSource
	history  HistorySource
	devices  DeviceSource
	forecast ForecastSource
	logger   Logger

	interval     time.Duration
	historyLimit int

	cachedForecast weather.Forecast
	forecastAt     time.Time
}

// NewSnapshotter creates a snapshot loop. forecast may be nil when no
// forecast upstream is configured.
func NewSnapshotter(hub *Hub, latest LatestSource, history HistorySource, devices DeviceSource, forecast ForecastSource, interval time.Duration, historyLimit int, logger Logger) *Snapshotter {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Snapshotter{
		hub:          hub,
		latest:       latest,
		history:      history,
		devices:      devices,
		forecast:     forecast,
		logger:       logger,
		interval:     interval,
		historyLimit: historyLimit,
	}
}

// Run broadcasts snapshots on the configured cadence until ctx is
// cancelled. Ticks with no connected subscribers do no work.
func (s *Snapshotter) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Debug("snapshot loop started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("snapshot loop stopped")
			return
		case <-ticker.C:
			if s.hub.ClientCount() == 0 {
				continue
			}
			s.hub.Broadcast(newEvent(EventSnapshot, s.assemble(ctx)))
		}
	}
}

// assemble builds one snapshot. Each section degrades independently: a
// failed history query or forecast lookup yields a snapshot without that
// section, never no snapshot.
func (s *Snapshotter) assemble(ctx context.Context) Snapshot {
	snap := Snapshot{Devices: s.devices.States()}

	if reading, ok := s.latest.Latest(); ok {
		snap.Latest = &reading
	}

	history, err := s.history.History(ctx, s.historyLimit)
	if err != nil {
		s.logger.Warn("snapshot history query failed", "error", err)
	} else {
		snap.History = history
	}

	if forecast, ok := s.currentForecast(ctx); ok {
		snap.Forecast5Days = forecast.Days
		if len(forecast.Days) > 0 {
			today := forecast.Days[0]
			snap.Today = &today
		}
	}
	return snap
}

func (s *Snapshotter) currentForecast(ctx context.Context) (weather.Forecast, bool) {
	if s.forecast == nil {
		return weather.Forecast{}, false
	}
	if time.Since(s.forecastAt) < forecastCacheTTL {
		return s.cachedForecast, true
	}

	forecast, err := s.forecast.FiveDayForecast(ctx)
	if err != nil {
		s.logger.Warn("forecast lookup failed", "error", err)
		// Serve the stale forecast if we ever had one.
		return s.cachedForecast, !s.forecastAt.IsZero()
	}
	s.cachedForecast = forecast
	s.forecastAt = time.Now()
	return forecast, true
}
