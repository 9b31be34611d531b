package link

import "time"

// Message is one inbound MQTT message as seen by the dispatcher.
// Payload is copied out of the transport buffer before enqueueing, so it
// stays valid after the paho callback returns.
type Message struct {
	Topic    string
	Payload  []byte
	Received time.Time
}

// StatePayload is the JSON body exchanged on control and status topics.
//
//	{"status": true, "timestamp": 1735500000}
type StatePayload struct {
	Status    bool  `json:"status"`
	Timestamp int64 `json:"timestamp"`
}

// helloPayload is published on the liveness topic after every successful
// connection, so broker-side tooling can see the core come up.
type helloPayload struct {
	ClientID  string `json:"client_id"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}
