// Package realtime fans events out to WebSocket subscribers.
//
// The Hub tracks connected clients and broadcasts typed events: device
// state changes, link state changes, fresh sensor readings, and periodic
// snapshots. Delivery is best-effort; a subscriber that cannot keep up
// (full send buffer or failed write) is dropped so one slow browser tab
// cannot stall the rest.
//
// The Snapshotter assembles the full dashboard picture (latest reading,
// recent history, today's conditions, 5-day forecast, device states) and
// broadcasts it on a fixed cadence while at least one client is connected.
package realtime
