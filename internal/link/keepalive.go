package link

import (
	"context"
	"time"
)

// watchdog is the application-level keepalive. Every interval tick it
// checks the link and takes one of two recovery actions:
//
//   - link down and no sequence running: start a reconnect sequence
//   - link up but silent past the tolerance: treat the connection as
//     half-open, force a disconnect, and reconnect
//
// The protocol keepalive catches clean TCP resets; this catches the
// connections that die without telling anyone.
func (c *Client) watchdog(ctx context.Context) {
	interval := time.Duration(c.cfg.Keepalive.Interval) * time.Second
	silenceTimeout := time.Duration(c.cfg.Keepalive.SilenceTimeout) * time.Second

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.logger.Debug("keepalive watchdog started",
		"interval", interval,
		"silence_timeout", silenceTimeout)

	for {
		select {
		case <-ctx.Done():
			c.logger.Debug("keepalive watchdog stopped")
			return
		case <-ticker.C:
			c.checkLink(ctx, silenceTimeout)
		}
	}
}

func (c *Client) checkLink(ctx context.Context, silenceTimeout time.Duration) {
	if !c.IsConnected() {
		// reconnect is a no-op when a sequence already holds the lock.
		c.reconnect(ctx)
		return
	}

	silence := c.sinceActivity()
	if silence < silenceTimeout {
		return
	}

	c.logger.Warn("link silent beyond tolerance, cycling connection",
		"silence", silence.Truncate(time.Second),
		"tolerance", silenceTimeout)

	// Deliberate disconnects bypass the connection-lost handler, so the
	// cycle is driven explicitly here.
	c.client.Disconnect(disconnectQuiesce)
	c.setState(StateDisconnected)
	c.markActivity()
	c.reconnect(ctx)
}
