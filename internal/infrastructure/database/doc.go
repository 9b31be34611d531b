// Package database provides SQLite connection management for AgriSense Core.
//
// This package manages:
//   - Opening the database with WAL mode and busy-timeout pragmas
//   - In-code schema migrations (sensor_history, device_timers, config)
//   - Health checks and connection lifecycle
//
// SQLite is deliberate: the core runs on a single gateway host, the write
// rate is bounded by the telemetry gate, and a single file survives power
// cycles without an external database server.
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: "./data/agrisense.db", WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
package database
