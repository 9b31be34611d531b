package weather

import "errors"

// Domain-specific errors for weather lookups.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNoAPIKey is returned for forecast lookups without an OpenWeather key.
	ErrNoAPIKey = errors.New("weather: openweather api key not configured")

	// ErrUpstream is returned when an upstream responds with a non-2xx status.
	ErrUpstream = errors.New("weather: upstream request failed")

	// ErrBadResponse is returned when an upstream body cannot be decoded.
	ErrBadResponse = errors.New("weather: malformed upstream response")
)
