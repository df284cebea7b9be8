// Package backoff computes retry delays for reconnection attempts.
//
// A Policy yields a monotonically non-decreasing delay sequence, capped at a
// maximum, and resettable after a successful connection. It is owned by a
// single ConnectionController and is only touched inside the controller's
// serialized region, so it carries no locking of its own.
package backoff

import "time"

// Construction floors. Values below these are clamped up.
const (
	MinInitial    = 100 * time.Millisecond
	MinMultiplier = 1.0
)

// Policy holds the backoff state for one connection.
type Policy struct {
	initial    time.Duration
	multiplier float64
	maxDelay   time.Duration

	current time.Duration
}

// New creates a Policy. Out-of-range parameters are clamped: initial to at
// least 100ms, multiplier to at least 1.0, maxDelay to at least initial.
func New(initial time.Duration, multiplier float64, maxDelay time.Duration) *Policy {
	if initial < MinInitial {
		initial = MinInitial
	}
	if multiplier < MinMultiplier {
		multiplier = MinMultiplier
	}
	if maxDelay < initial {
		maxDelay = initial
	}
	return &Policy{
		initial:    initial,
		multiplier: multiplier,
		maxDelay:   maxDelay,
		current:    initial,
	}
}

// Next returns the current delay and advances to the next one
// (current * multiplier, capped at maxDelay).
func (p *Policy) Next() time.Duration {
	d := p.current
	next := time.Duration(float64(p.current) * p.multiplier)
	if next > p.maxDelay {
		next = p.maxDelay
	}
	p.current = next
	return d
}

// Reset returns the delay sequence to its initial value. Called after every
// successful connection.
func (p *Policy) Reset() {
	p.current = p.initial
}

// Current returns the delay the next call to Next would yield.
func (p *Policy) Current() time.Duration {
	return p.current
}
