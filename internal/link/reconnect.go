package link

import (
	"context"
	"math"
	"time"

	"github.com/agrisense/agrisense-core/internal/infrastructure/config"
)

// reconnect runs one bounded-backoff reconnection sequence. At most one
// sequence runs at a time: a second caller finding the mutex held returns
// immediately rather than stacking attempts.
func (c *Client) reconnect(ctx context.Context) {
	if !c.reconnectMu.TryLock() {
		c.logger.Debug("reconnect already in progress")
		return
	}
	defer c.reconnectMu.Unlock()

	if c.IsConnected() {
		return
	}
	c.setState(StateReconnecting)

	policy := c.cfg.Reconnect
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			c.setState(StateDisconnected)
			return
		}

		err := c.Connect(ctx)
		if err == nil {
			c.logger.Info("reconnected", "attempt", attempt+1)
			return
		}

		delay := backoffDelay(policy, attempt)
		c.logger.Warn("reconnect attempt failed",
			"attempt", attempt+1,
			"max_attempts", policy.MaxAttempts,
			"retry_in", delay,
			"error", err)

		select {
		case <-ctx.Done():
			c.setState(StateDisconnected)
			return
		case <-time.After(delay):
		}
	}

	// Terminal for this sequence. The watchdog re-arms a fresh sequence on
	// its next tick, so a long broker outage is survivable.
	c.setState(StateDisconnected)
	c.logger.Error("reconnect sequence exhausted",
		"attempts", policy.MaxAttempts)
}

// backoffDelay computes the sleep after a failed attempt:
// initial_delay × multiplier^attempt seconds, capped at max_delay.
func backoffDelay(policy config.MQTTReconnectConfig, attempt int) time.Duration {
	seconds := float64(policy.InitialDelay) * math.Pow(policy.Multiplier, float64(attempt))
	if policy.MaxDelay > 0 && seconds > float64(policy.MaxDelay) {
		seconds = float64(policy.MaxDelay)
	}
	return time.Duration(seconds * float64(time.Second))
}
