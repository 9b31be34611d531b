package scheduler

import "time"

// Entry is one device timer.
//
// For daily timers only the wall-clock hour and minute of OnAt/OffAt are
// significant; the date portion is ignored at evaluation time. One-shot
// timers use the full timestamps.
type Entry struct {
	Device  string    `json:"device"`
	OnAt    time.Time `json:"on_at"`
	OffAt   time.Time `json:"off_at"`
	Daily   bool      `json:"daily"`
	Enabled bool      `json:"enabled"`
}

// Validate checks the entry's internal consistency.
func (e Entry) Validate() error {
	if e.Daily {
		return nil
	}
	if !e.OffAt.After(e.OnAt) {
		return ErrInvalidWindow
	}
	return nil
}

// Expired reports whether a one-shot entry's off window has fully passed.
// Daily entries never expire.
func (e Entry) Expired(now time.Time) bool {
	if e.Daily {
		return false
	}
	return now.After(e.OffAt.Add(fireWindow))
}
