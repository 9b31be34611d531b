// Package dispatch routes inbound fleet messages to their owners.
//
// One dispatcher goroutine drains the link's inbound channel and routes by
// topic: device status and control observations update the state cache and
// notify realtime subscribers, sensor payloads enter the telemetry gate,
// status requests trigger a full state re-announcement, and liveness
// traffic is logged. Malformed payloads and unknown devices are logged and
// dropped; a bad message never stops the stream.
package dispatch
