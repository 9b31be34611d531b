package link

import (
	"encoding/json"
	"time"
)

// ControlDevice publishes a control command for a device and reports whether
// the command reached the broker. A false return means the caller's desired
// state was not sent; the link logs the cause.
func (c *Client) ControlDevice(deviceID string, on bool) bool {
	payload, err := json.Marshal(StatePayload{
		Status:    on,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		c.logger.Error("control payload marshal failed", "device", deviceID, "error", err)
		return false
	}
	return c.publish(c.topics.DeviceControl(deviceID), payload)
}

// AnnounceState publishes a device's current state on its status topic.
// Used to re-announce the full cache after a reconnection so late-joining
// fleet members converge.
func (c *Client) AnnounceState(deviceID string, on bool, at time.Time) bool {
	payload, err := json.Marshal(StatePayload{
		Status:    on,
		Timestamp: at.Unix(),
	})
	if err != nil {
		c.logger.Error("status payload marshal failed", "device", deviceID, "error", err)
		return false
	}
	return c.publish(c.topics.DeviceStatus(deviceID), payload)
}

// publish sends one message with bounded acknowledgement wait. Failures are
// logged and reported as false; they never panic or propagate.
func (c *Client) publish(topic string, payload []byte) bool {
	if !c.IsConnected() {
		c.logger.Warn("publish skipped, link down", "topic", topic)
		return false
	}

	token := c.client.Publish(topic, byte(c.cfg.QoS), false, payload)
	if !token.WaitTimeout(publishTimeout) {
		c.logger.Warn("publish not acknowledged in time", "topic", topic)
		return false
	}
	if err := token.Error(); err != nil {
		c.logger.Error("publish failed", "topic", topic, "error", err)
		return false
	}

	c.markActivity()
	c.logger.Debug("published", "topic", topic, "bytes", len(payload))
	return true
}
