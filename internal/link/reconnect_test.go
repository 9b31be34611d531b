package link

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/agrisense/agrisense-core/internal/infrastructure/config"
)

func TestBackoffDelay(t *testing.T) {
	policy := config.MQTTReconnectConfig{
		InitialDelay: 1,
		Multiplier:   2,
		MaxDelay:     60,
		MaxAttempts:  10,
	}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{5, 32 * time.Second},
		{6, 60 * time.Second}, // 64s capped
		{9, 60 * time.Second},
	}

	for _, tt := range tests {
		if got := backoffDelay(policy, tt.attempt); got != tt.want {
			t.Errorf("attempt %d: got %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestBackoffDelayNoCap(t *testing.T) {
	policy := config.MQTTReconnectConfig{
		InitialDelay: 2,
		Multiplier:   3,
		MaxDelay:     0,
	}

	if got, want := backoffDelay(policy, 2), 18*time.Second; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestReconnectSingleSequence(t *testing.T) {
	// Two simultaneous drop events must produce one reconnect sequence:
	// the broker is unreachable, each sequence makes exactly one attempt,
	// so the attempt counter tells us how many sequences actually ran.
	cfg := testMQTTConfig()
	cfg.Broker.Host = "127.0.0.1"
	cfg.Broker.Port = 1
	cfg.Reconnect = config.MQTTReconnectConfig{
		InitialDelay: 1,
		Multiplier:   1,
		MaxDelay:     1,
		MaxAttempts:  1,
	}
	c := New(cfg, nil)

	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			c.reconnect(context.Background())
		}()
	}
	close(start)
	wg.Wait()

	if got := c.Attempts(); got != 1 {
		t.Errorf("attempts = %d, want 1 (a second sequence ran)", got)
	}
	if got := c.State(); got != StateDisconnected {
		t.Errorf("state = %v, want disconnected", got)
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateDisconnected, "disconnected"},
		{StateConnecting, "connecting"},
		{StateConnected, "connected"},
		{StateReconnecting, "reconnecting"},
		{State(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
