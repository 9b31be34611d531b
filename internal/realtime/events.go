package realtime

import (
	"time"

	"github.com/agrisense/agrisense-core/internal/telemetry"
	"github.com/agrisense/agrisense-core/internal/weather"
)

// Event types pushed to subscribers.
const (
	EventDeviceState = "device_state"
	EventLinkState   = "link_state"
	EventReading     = "sensor_reading"
	EventSnapshot    = "snapshot"
)

// Event is the envelope for every message pushed to subscribers.
type Event struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data"`
}

// DeviceStateData announces one device's state change.
type DeviceStateData struct {
	Device string `json:"device"`
	On     bool   `json:"on"`
}

// LinkStateData announces a fleet link state transition.
type LinkStateData struct {
	State string `json:"state"`
}

// Snapshot is the periodic full dashboard picture.
type Snapshot struct {
	Latest        *telemetry.Reading   `json:"latest"`
	History       []telemetry.Reading  `json:"history"`
	Devices       map[string]bool      `json:"devices"`
	Today         *weather.DaySummary  `json:"today"`
	Forecast5Days []weather.DaySummary `json:"forecast_5days"`
}

func newEvent(eventType string, data any) Event {
	return Event{
		Type:      eventType,
		Timestamp: time.Now().Unix(),
		Data:      data,
	}
}
