package telemetry

import "errors"

// Domain-specific errors for telemetry operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrMalformedReading is returned when a sensor payload cannot be decoded.
	ErrMalformedReading = errors.New("telemetry: malformed sensor payload")

	// ErrNoReadings is returned when no reading has been stored yet.
	ErrNoReadings = errors.New("telemetry: no readings recorded")

	// ErrConfigNotFound is returned when a stored configuration key is absent.
	ErrConfigNotFound = errors.New("telemetry: config key not found")
)
