package link

import "strings"

// Topic prefixes for the fixed fleet topic layout.
const (
	// TopicPrefix is the base for all fleet topics.
	TopicPrefix = "iot"

	// topicControlPrefix is the base for per-device control topics.
	topicControlPrefix = TopicPrefix + "/device/control/"

	// topicStatusPrefix is the base for per-device status topics.
	topicStatusPrefix = TopicPrefix + "/device/status/"

	// topicStatusRequestPrefix is the base for status interrogation topics.
	topicStatusRequestPrefix = TopicPrefix + "/device/status_request/"
)

// Topics provides builders for the fleet MQTT topics.
// Using these helpers keeps topic naming consistent across the codebase.
//
//	topics := link.Topics{}
//	topics.DeviceControl("pump") // "iot/device/control/pump"
type Topics struct{}

// DeviceControl returns the control topic for a device.
//
// Example: iot/device/control/pump
func (Topics) DeviceControl(deviceID string) string {
	return topicControlPrefix + deviceID
}

// DeviceStatus returns the status topic for a device.
//
// Example: iot/device/status/pump
func (Topics) DeviceStatus(deviceID string) string {
	return topicStatusPrefix + deviceID
}

// SensorData returns the telemetry topic.
func (Topics) SensorData() string {
	return TopicPrefix + "/sensor/data"
}

// Test returns the liveness topic.
func (Topics) Test() string {
	return TopicPrefix + "/test"
}

// AllDeviceControl returns a pattern matching all control topics.
//
// Pattern: iot/device/control/#
func (Topics) AllDeviceControl() string {
	return topicControlPrefix[:len(topicControlPrefix)-1] + "/#"
}

// AllDeviceStatus returns a pattern matching all status topics.
//
// Pattern: iot/device/status/#
func (Topics) AllDeviceStatus() string {
	return topicStatusPrefix[:len(topicStatusPrefix)-1] + "/#"
}

// AllStatusRequests returns a pattern matching all status request topics.
//
// Pattern: iot/device/status_request/#
func (Topics) AllStatusRequests() string {
	return topicStatusRequestPrefix[:len(topicStatusRequestPrefix)-1] + "/#"
}

// IsControl reports whether topic is a per-device control topic.
func (Topics) IsControl(topic string) bool {
	return strings.HasPrefix(topic, topicControlPrefix)
}

// IsStatus reports whether topic is a per-device status topic.
func (Topics) IsStatus(topic string) bool {
	return strings.HasPrefix(topic, topicStatusPrefix)
}

// DeviceFromTopic extracts the device identifier from a per-device topic.
// Returns the last path segment, or "" when the topic has no segments.
func (Topics) DeviceFromTopic(topic string) string {
	idx := strings.LastIndex(topic, "/")
	if idx < 0 || idx == len(topic)-1 {
		return ""
	}
	return topic[idx+1:]
}
