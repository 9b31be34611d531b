package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteSensorReading records one enriched sensor reading.
//
// The write is non-blocking; data is batched and sent asynchronously.
// Fields is the flat numeric reading (temperature, humidity, nitrogen, ...).
//
// Parameters:
//   - siteID: Site tag for multi-site queries
//   - fields: Numeric reading fields keyed by name
//   - ts: The reading's own timestamp (not the write time)
func (c *Client) WriteSensorReading(siteID string, fields map[string]float64, ts time.Time) {
	if !c.IsConnected() || len(fields) == 0 {
		return
	}

	values := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		values[k] = v
	}

	c.writePoint("sensor_reading", map[string]string{"site_id": siteID}, values, ts)
}

// WriteDeviceState records an actuator on/off transition as 1.0/0.0.
//
// Parameters:
//   - siteID: Site tag
//   - deviceID: Device identifier (e.g., "pump")
//   - on: The new state
func (c *Client) WriteDeviceState(siteID, deviceID string, on bool) {
	if !c.IsConnected() {
		return
	}

	value := 0.0
	if on {
		value = 1.0
	}

	c.writePoint("device_state",
		map[string]string{
			"site_id":   siteID,
			"device_id": deviceID,
		},
		map[string]interface{}{
			"on": value,
		},
		time.Now())
}

// writePoint is the single enqueue path for both measurements.
func (c *Client) writePoint(measurement string, tags map[string]string, fields map[string]interface{}, ts time.Time) {
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, ts))
}
