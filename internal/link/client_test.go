package link

import (
	"testing"
	"time"

	"github.com/agrisense/agrisense-core/internal/infrastructure/config"
)

func testMQTTConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "localhost",
			Port:     1883,
			ClientID: "agrisense-test",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			Multiplier:   2,
			MaxDelay:     60,
			MaxAttempts:  10,
		},
		Keepalive: config.MQTTKeepaliveConfig{
			Interval:       30,
			SilenceTimeout: 300,
		},
	}
}

func TestNewClientInitialState(t *testing.T) {
	c := New(testMQTTConfig(), nil)

	if got := c.State(); got != StateDisconnected {
		t.Errorf("initial state = %v, want disconnected", got)
	}
	if c.Inbound() == nil {
		t.Error("inbound channel is nil")
	}
	if c.Attempts() != 0 {
		t.Errorf("initial attempts = %d", c.Attempts())
	}
}

func TestControlDeviceWhileDisconnected(t *testing.T) {
	c := New(testMQTTConfig(), nil)

	if c.ControlDevice("pump", true) {
		t.Error("publish on a disconnected link must report false")
	}
}

func TestActivityTracking(t *testing.T) {
	c := New(testMQTTConfig(), nil)

	c.activityMu.Lock()
	c.lastActivity = time.Now().Add(-10 * time.Minute)
	c.activityMu.Unlock()

	if got := c.sinceActivity(); got < 9*time.Minute {
		t.Errorf("sinceActivity = %v", got)
	}

	c.markActivity()
	if got := c.sinceActivity(); got > time.Second {
		t.Errorf("sinceActivity after mark = %v", got)
	}
}

func TestCloseNotifiesDownCallback(t *testing.T) {
	c := New(testMQTTConfig(), nil)

	notified := make(chan struct{}, 1)
	c.SetOnDown(func(error) {
		notified <- struct{}{}
	})

	c.Close()

	select {
	case <-notified:
	default:
		t.Error("deliberate close did not notify the down callback")
	}
	if got := c.State(); got != StateDisconnected {
		t.Errorf("state after close = %v", got)
	}
}

func TestRandomClientIDUnique(t *testing.T) {
	a := randomClientID("agrisense-core")
	b := randomClientID("agrisense-core")
	if a == b {
		t.Error("client IDs should differ between instances")
	}
	if randomClientID("") == "" {
		t.Error("empty base should still produce an ID")
	}
}
