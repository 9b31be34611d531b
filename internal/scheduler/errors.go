package scheduler

import "errors"

// Domain-specific errors for timer operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrTimerNotFound is returned when a device has no timer set.
	ErrTimerNotFound = errors.New("scheduler: no timer for device")

	// ErrUnknownDevice is returned for timers targeting an unconfigured device.
	ErrUnknownDevice = errors.New("scheduler: unknown device")

	// ErrInvalidWindow is returned when a timer's off time does not follow
	// its on time.
	ErrInvalidWindow = errors.New("scheduler: off time must be after on time")
)
