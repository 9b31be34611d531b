// Package api exposes the HTTP command surface and the WebSocket endpoint.
//
// The REST routes cover device control and inspection, telemetry reads,
// forecast lookups, and timer management; /ws upgrades subscribers into
// the realtime hub. The API is a thin shell: every route delegates to the
// owning component and translates its result to JSON.
package api
