package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/agrisense/agrisense-core/internal/device"
	"github.com/agrisense/agrisense-core/internal/infrastructure/config"
	"github.com/agrisense/agrisense-core/internal/link"
	"github.com/agrisense/agrisense-core/internal/realtime"
	"github.com/agrisense/agrisense-core/internal/scheduler"
	"github.com/agrisense/agrisense-core/internal/telemetry"
	"github.com/agrisense/agrisense-core/internal/weather"
)

// Logger is the minimal logging interface this package needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Controller sends device control commands toward the fleet.
type Controller interface {
	ControlDevice(deviceID string, on bool) bool
	State() link.State
}

// DeviceReader exposes the device state cache.
type DeviceReader interface {
	All() []device.Record
	Known(deviceID string) bool
}

// TelemetryReader exposes latest and historical readings.
type TelemetryReader interface {
	Latest() (telemetry.Reading, bool)
}

// HistoryReader exposes stored readings.
type HistoryReader interface {
	History(ctx context.Context, limit int) ([]telemetry.Reading, error)
}

// Forecaster exposes the aggregated forecast.
type Forecaster interface {
	FiveDayForecast(ctx context.Context) (weather.Forecast, error)
}

// TimerManager exposes timer operations.
type TimerManager interface {
	SetTimer(ctx context.Context, entry scheduler.Entry) error
	ClearTimer(ctx context.Context, deviceID string) error
	GetTimer(ctx context.Context, deviceID string) (scheduler.Entry, error)
	ListTimers(ctx context.Context) ([]scheduler.Entry, error)
}

// HealthChecker reports a dependency's health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Server hosts the REST routes and the WebSocket endpoint.
type Server struct {
	cfg    config.Config
	logger Logger

	controller Controller
	devices    DeviceReader
	telemetry  TelemetryReader
	history    HistoryReader
	forecaster Forecaster
	timers     TimerManager
	hub        *realtime.Hub
	db         HealthChecker

	httpServer *http.Server
}

// Deps bundles the server's collaborators.
type Deps struct {
	Controller Controller
	Devices    DeviceReader
	Telemetry  TelemetryReader
	History    HistoryReader
	Forecaster Forecaster
	Timers     TimerManager
	Hub        *realtime.Hub
	DB         HealthChecker
}

// NewServer creates the API server. Forecaster may be nil when no forecast
// upstream is configured.
func NewServer(cfg config.Config, deps Deps, logger Logger) *Server {
	s := &Server{
		cfg:        cfg,
		logger:     logger,
		controller: deps.Controller,
		devices:    deps.Devices,
		telemetry:  deps.Telemetry,
		history:    deps.History,
		forecaster: deps.Forecaster,
		timers:     deps.Timers,
		hub:        deps.Hub,
		db:         deps.DB,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
		Handler:      s.routes(),
		ReadTimeout:  cfg.GetReadTimeout(),
		WriteTimeout: cfg.GetWriteTimeout(),
		IdleTimeout:  cfg.GetIdleTimeout(),
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Get("/devices", s.handleListDevices)
		r.Post("/devices/{device}/control", s.handleControlDevice)

		r.Get("/latest-data", s.handleLatestData)
		r.Get("/history", s.handleHistory)
		r.Get("/forecast", s.handleForecast)

		r.Post("/set-timer", s.handleSetTimer)
		r.Post("/clear-timer", s.handleClearTimer)
		r.Get("/get-timer/{device}", s.handleGetTimer)
		r.Get("/timer/list", s.handleListTimers)
	})

	r.Get(s.cfg.WebSocket.Path, s.handleWebSocket)

	return r
}

// Start begins serving. Blocks until the listener fails or Shutdown runs.
func (s *Server) Start() error {
	s.logger.Info("api server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("api server shutting down")
	return s.httpServer.Shutdown(ctx)
}
