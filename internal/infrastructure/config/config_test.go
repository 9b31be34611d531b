package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("missing file should load defaults: %v", err)
	}

	if cfg.API.Port != 8000 {
		t.Errorf("api port = %d, want 8000", cfg.API.Port)
	}
	if cfg.MQTT.Reconnect.MaxAttempts != 10 {
		t.Errorf("max_attempts = %d, want 10", cfg.MQTT.Reconnect.MaxAttempts)
	}
	if cfg.MQTT.Keepalive.SilenceTimeout != 300 {
		t.Errorf("silence_timeout = %d, want 300", cfg.MQTT.Keepalive.SilenceTimeout)
	}
	if cfg.Telemetry.PersistInterval != 300 {
		t.Errorf("persist_interval = %d, want 300", cfg.Telemetry.PersistInterval)
	}
	if cfg.WebSocket.SnapshotInterval != 5 {
		t.Errorf("snapshot_interval = %d, want 5", cfg.WebSocket.SnapshotInterval)
	}
	if len(cfg.Devices) != 4 {
		t.Errorf("devices = %v", cfg.Devices)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("api:\n  port: 9000\nmqtt:\n  broker:\n    host: broker.local\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.API.Port != 9000 {
		t.Errorf("api port = %d, want 9000", cfg.API.Port)
	}
	if cfg.MQTT.Broker.Host != "broker.local" {
		t.Errorf("broker host = %q", cfg.MQTT.Broker.Host)
	}
	// Untouched values keep their defaults.
	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("broker port = %d, want 1883", cfg.MQTT.Broker.Port)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("AGRISENSE_MQTT_HOST", "env-broker")
	t.Setenv("AGRISENSE_MQTT_PORT", "8883")
	t.Setenv("AGRISENSE_OPENWEATHER_KEY", "secret")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.MQTT.Broker.Host != "env-broker" {
		t.Errorf("broker host = %q", cfg.MQTT.Broker.Host)
	}
	if cfg.MQTT.Broker.Port != 8883 {
		t.Errorf("broker port = %d", cfg.MQTT.Broker.Port)
	}
	if cfg.Weather.OpenWeatherKey != "secret" {
		t.Errorf("openweather key = %q", cfg.Weather.OpenWeatherKey)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad qos", func(c *Config) { c.MQTT.QoS = 3 }},
		{"zero reconnect delay", func(c *Config) { c.MQTT.Reconnect.InitialDelay = 0 }},
		{"no devices", func(c *Config) { c.Devices = nil }},
		{"zero persist interval", func(c *Config) { c.Telemetry.PersistInterval = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLocation(t *testing.T) {
	cfg := defaultConfig()
	loc := cfg.Location()
	if loc.String() != "Asia/Ho_Chi_Minh" {
		t.Errorf("location = %v", loc)
	}
}
