// Package link owns the MQTT connection to the field device fleet.
//
// The link is the only component allowed to mutate connection state. It
// manages:
//   - Connection establishment with a bounded confirmation wait
//   - Exactly one reconnect sequence at a time, with bounded exponential
//     backoff (initial_delay × multiplier^attempt, capped, max 10 attempts)
//   - A keepalive watchdog that re-arms reconnection when the link is down
//     and force-cycles a link that has been connected but silent for too
//     long (suspected half-open connection)
//   - Publishing device control commands; callers get a boolean, never an
//     error escape — a failed publish is reported, not thrown
//
// Inbound messages are not processed in transport callbacks. The paho
// handlers only enqueue into a buffered channel exposed via Inbound();
// a single dispatcher goroutine (see package dispatch) consumes it. This
// keeps business logic off the transport's goroutines and gives the rest
// of the system one ordered stream to reason about.
//
// Topic layout (fixed):
//
//	iot/device/control/{device}   control commands   {"status":bool,"timestamp":int}
//	iot/device/status/{device}    device status echoes
//	iot/device/status_request/#   status interrogation
//	iot/sensor/data               telemetry readings
//	iot/test                      liveness channel
package link
