// Package influxdb provides an optional time-series mirror for telemetry.
//
// The telemetry gate remains the authority for durable readings (SQLite);
// this package mirrors persisted readings and device state transitions into
// InfluxDB for dashboard history and alerting queries. It is wholly optional:
// when disabled in configuration the rest of the core runs unchanged.
//
// Writes are batched and non-blocking; asynchronous write failures surface
// through the SetOnError callback and are logged, never propagated into the
// ingest path.
package influxdb
