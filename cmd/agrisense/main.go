// Command agrisense runs the AgriSense farm automation core.
//
// Startup order matters: storage first, then the telemetry and device
// layers, then the fleet link, and the API surface last so nothing is
// reachable before its dependencies exist. Shutdown runs in reverse.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agrisense/agrisense-core/internal/api"
	"github.com/agrisense/agrisense-core/internal/device"
	"github.com/agrisense/agrisense-core/internal/dispatch"
	"github.com/agrisense/agrisense-core/internal/infrastructure/config"
	"github.com/agrisense/agrisense-core/internal/infrastructure/database"
	"github.com/agrisense/agrisense-core/internal/infrastructure/influxdb"
	"github.com/agrisense/agrisense-core/internal/infrastructure/logging"
	"github.com/agrisense/agrisense-core/internal/link"
	"github.com/agrisense/agrisense-core/internal/realtime"
	"github.com/agrisense/agrisense-core/internal/scheduler"
	"github.com/agrisense/agrisense-core/internal/telemetry"
	"github.com/agrisense/agrisense-core/internal/weather"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "agrisense: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("agrisense %s\n", Version)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.New(cfg.Logging, Version)
	logger.Info("agrisense core starting",
		"version", Version,
		"site", cfg.Site.ID)

	// Storage.
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	logger.Info("database ready", "path", db.Path())

	// Optional time-series mirror.
	var metrics *influxdb.Client
	influx, err := influxdb.Connect(ctx, cfg.InfluxDB)
	switch {
	case err == nil:
		metrics = influx
		metrics.SetOnError(func(err error) {
			logger.Warn("influxdb write failed", "error", err)
		})
		defer metrics.Close()
		logger.Info("influxdb mirror enabled", "url", cfg.InfluxDB.URL)
	case errors.Is(err, influxdb.ErrDisabled):
		logger.Info("influxdb mirror disabled")
	default:
		// Degraded but functional: SQLite remains the authority.
		logger.Warn("influxdb unavailable, continuing without mirror", "error", err)
	}

	// Device state and realtime fan-out.
	cache := device.NewCache(cfg.Devices)
	hub := realtime.NewHub(logger.With("component", "realtime"))

	// Weather enrichment.
	weatherSvc := weather.NewService(cfg.Weather, logger.With("component", "weather"))
	var forecaster api.Forecaster
	if cfg.Weather.OpenWeatherKey != "" {
		forecaster = weatherSvc
	} else {
		logger.Info("no openweather key, forecast routes disabled")
	}

	// Telemetry gate.
	readings := telemetry.NewRepository(db)
	gateOpts := []telemetry.GateOption{
		telemetry.WithRainfall(weatherSvc),
		telemetry.WithLogger(logger.With("component", "telemetry")),
	}
	if metrics != nil {
		gateOpts = append(gateOpts, telemetry.WithMetrics(metrics))
	}
	gate := telemetry.NewGate(readings, hub, cfg.Site.ID,
		time.Duration(cfg.Telemetry.PersistInterval)*time.Second, gateOpts...)

	if last, err := readings.LatestReading(ctx); err == nil {
		gate.Prime(last)
	} else if !errors.Is(err, telemetry.ErrNoReadings) {
		logger.Warn("could not seed latest reading", "error", err)
	}

	// Fleet link.
	mqttClient := link.New(cfg.MQTT, logger.With("component", "link"))

	// Dispatcher: the single consumer of the inbound stream.
	dispatchOpts := []dispatch.Option{
		dispatch.WithLogger(logger.With("component", "dispatch")),
	}
	if metrics != nil {
		dispatchOpts = append(dispatchOpts, dispatch.WithMetrics(metrics, cfg.Site.ID))
	}
	dispatcher := dispatch.New(cache, gate, hub, mqttClient, dispatchOpts...)

	mqttClient.SetOnUp(func() {
		hub.BroadcastLinkState(link.StateConnected.String())
		dispatcher.AnnounceAll()
	})
	mqttClient.SetOnDown(func(error) {
		hub.BroadcastLinkState(link.StateDisconnected.String())
	})

	if err := mqttClient.Connect(ctx); err != nil {
		// The watchdog keeps retrying; starting without a broker is fine.
		logger.Warn("initial broker connection failed", "error", err)
	}
	mqttClient.Start(ctx)
	defer mqttClient.Close()

	go dispatcher.Run(ctx, mqttClient.Inbound())

	// Timers.
	timerStore := scheduler.NewStore(db)
	timers := scheduler.New(timerStore, mqttClient, cfg.Devices, cfg.Location(),
		logger.With("component", "scheduler"))
	if err := timers.Restore(ctx); err != nil {
		return fmt.Errorf("restoring timers: %w", err)
	}
	defer timers.Stop()

	// Snapshot loop.
	snapshotter := realtime.NewSnapshotter(hub, gate, readings, cache, forecasterOrNil(forecaster),
		time.Duration(cfg.WebSocket.SnapshotInterval)*time.Second,
		cfg.Telemetry.HistoryLimit,
		logger.With("component", "realtime"))
	go snapshotter.Run(ctx)

	// API surface last.
	server := api.NewServer(*cfg, api.Deps{
		Controller: mqttClient,
		Devices:    cache,
		Telemetry:  gate,
		History:    readings,
		Forecaster: forecaster,
		Timers:     timers,
		Hub:        hub,
		DB:         db,
	}, logger.With("component", "api"))

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	logger.Info("agrisense core running")

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api shutdown failed", "error", err)
	}

	logger.Info("agrisense core stopped")
	return nil
}

// forecasterOrNil converts a possibly-nil api.Forecaster into the
// snapshotter's interface without a typed-nil pitfall.
func forecasterOrNil(f api.Forecaster) realtime.ForecastSource {
	if f == nil {
		return nil
	}
	return f
}
