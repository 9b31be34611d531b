// Package telemetry ingests sensor readings and decides their fate.
//
// Every reading follows the same path through the Gate:
//
//	enrich (rainfall) → update latest → broadcast → persist at cadence
//
// Broadcast is unconditional so realtime subscribers always see the freshest
// reading. Persistence is throttled to one durable write per configured
// interval; readings arriving faster are pushed but not stored, bounding
// database growth regardless of sensor chattiness.
//
// The durable store is SQLite (the authority); InfluxDB, when enabled,
// receives a non-blocking mirror of each persisted reading.
package telemetry
