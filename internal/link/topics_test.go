package link

import "testing"

func TestTopicBuilders(t *testing.T) {
	topics := Topics{}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"device control", topics.DeviceControl("pump"), "iot/device/control/pump"},
		{"device status", topics.DeviceStatus("fan"), "iot/device/status/fan"},
		{"sensor data", topics.SensorData(), "iot/sensor/data"},
		{"test", topics.Test(), "iot/test"},
		{"all control", topics.AllDeviceControl(), "iot/device/control/#"},
		{"all status", topics.AllDeviceStatus(), "iot/device/status/#"},
		{"all status requests", topics.AllStatusRequests(), "iot/device/status_request/#"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestTopicClassification(t *testing.T) {
	topics := Topics{}

	if !topics.IsControl("iot/device/control/light") {
		t.Error("control topic not recognised")
	}
	if topics.IsControl("iot/device/status/light") {
		t.Error("status topic misclassified as control")
	}
	if !topics.IsStatus("iot/device/status/roof") {
		t.Error("status topic not recognised")
	}
	if topics.IsStatus("iot/sensor/data") {
		t.Error("sensor topic misclassified as status")
	}
}

func TestDeviceFromTopic(t *testing.T) {
	topics := Topics{}

	tests := []struct {
		topic string
		want  string
	}{
		{"iot/device/control/pump", "pump"},
		{"iot/device/status/fan", "fan"},
		{"iot/device/control/", ""},
		{"nosegments", ""},
	}

	for _, tt := range tests {
		if got := topics.DeviceFromTopic(tt.topic); got != tt.want {
			t.Errorf("DeviceFromTopic(%q) = %q, want %q", tt.topic, got, tt.want)
		}
	}
}
