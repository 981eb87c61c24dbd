package backend

import "time"

// Backoff maps a 1-based attempt number to the delay before the next
// attempt: Base doubled per attempt, capped at Max. It is a pure function
// of the attempt number so retry pacing is testable without a clock.
type Backoff struct {
	Base time.Duration
	Max  time.Duration
}

// DefaultBackoff is the transport retry policy: 1s, 2s, 4s, 4s, ...
var DefaultBackoff = Backoff{Base: time.Second, Max: 4 * time.Second}

// Delay returns the pause after the given completed attempt.
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := b.Base << uint(attempt-1)
	// The shift overflows (or zeroes out) for large attempt numbers.
	if d > b.Max || d <= 0 {
		return b.Max
	}
	return d
}
