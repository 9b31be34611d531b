package link

import "errors"

// Domain-specific errors for link operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrConnectionTimeout is returned when the broker does not confirm the
	// connection within the bounded wait.
	ErrConnectionTimeout = errors.New("link: connection not confirmed in time")

	// ErrConnectionFailed is returned when a connection attempt is rejected.
	ErrConnectionFailed = errors.New("link: connection failed")

	// ErrNotConnected is returned when attempting operations on a disconnected link.
	ErrNotConnected = errors.New("link: not connected")

	// ErrSubscribeFailed is returned when subscribing to the fixed topic set fails.
	ErrSubscribeFailed = errors.New("link: subscribe failed")
)
