package telemetry

import (
	"encoding/json"
	"fmt"
)

// Reading is one environmental sensor sample, optionally enriched with
// external rainfall figures before it is broadcast or stored.
type Reading struct {
	Timestamp       int64   `json:"timestamp"`
	Temperature     float64 `json:"temperature"`
	Humidity        float64 `json:"humidity"`
	Nitrogen        float64 `json:"nitrogen"`
	Phosphorus      float64 `json:"phosphorus"`
	Potassium       float64 `json:"potassium"`
	PH              float64 `json:"ph"`
	Rainfall        float64 `json:"rainfall"`
	MonthlyRainfall float64 `json:"monthly_rainfall"`
}

// ParseReading decodes a raw sensor payload. Unknown fields are ignored so
// firmware can grow its payload without breaking the core.
func ParseReading(payload []byte) (Reading, error) {
	var r Reading
	if err := json.Unmarshal(payload, &r); err != nil {
		return Reading{}, fmt.Errorf("%w: %w", ErrMalformedReading, err)
	}
	return r, nil
}

// Fields returns the reading as a metric field map for time-series export.
func (r Reading) Fields() map[string]float64 {
	return map[string]float64{
		"temperature":      r.Temperature,
		"humidity":         r.Humidity,
		"nitrogen":         r.Nitrogen,
		"phosphorus":       r.Phosphorus,
		"potassium":        r.Potassium,
		"ph":               r.PH,
		"rainfall":         r.Rainfall,
		"monthly_rainfall": r.MonthlyRainfall,
	}
}
