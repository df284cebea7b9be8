// Package breaker implements the failure-rate gate that decides whether a
// connection attempt against a venue may proceed.
//
// The breaker has three states:
//   - closed: attempts pass; repeated failures push it open
//   - open: attempts are rejected until ResetTimeout elapses
//   - half-open: exactly one probe attempt is allowed
//
// The open → half-open transition is lazy: no timer runs, elapsed time is
// checked on the next Allow call. The breaker never blocks.
package breaker

import (
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	StateClosed   State = iota // Normal operation; attempts pass through.
	StateOpen                  // Failing; attempts are rejected immediately.
	StateHalfOpen              // Probing; a single attempt is allowed to test recovery.
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config holds the breaker tunables.
type Config struct {
	// FailureThreshold is the number of consecutive failures that opens the
	// breaker. Values below 1 are raised to 1.
	FailureThreshold int

	// ResetTimeout is how long the breaker stays open before allowing a
	// half-open probe.
	ResetTimeout time.Duration

	// SuccessThreshold is the number of consecutive successes required to
	// close a half-open breaker. Defaults to 1.
	SuccessThreshold int
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
		SuccessThreshold: 1,
	}
}

// Breaker is a three-state circuit breaker guarding connection attempts.
type Breaker struct {
	cfg Config

	mu        sync.Mutex
	state     State
	failures  int
	successes int // consecutive successes while half-open
	openedAt  time.Time

	nowFunc func() time.Time // injectable clock for testing
}

// New creates a Breaker in the closed state.
func New(cfg Config) *Breaker {
	if cfg.FailureThreshold < 1 {
		cfg.FailureThreshold = 1
	}
	if cfg.SuccessThreshold < 1 {
		cfg.SuccessThreshold = 1
	}
	return &Breaker{
		cfg:     cfg,
		nowFunc: time.Now,
	}
}

// Allow reports whether a connection attempt may proceed.
//
// Closed: always true. Open: true exactly once per open period, after
// ResetTimeout has elapsed since the breaker opened; the breaker moves to
// half-open as a side effect. Half-open: false (the single probe permission
// was consumed by the Allow call that performed the transition).
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if b.nowFunc().Sub(b.openedAt) >= b.cfg.ResetTimeout {
			b.state = StateHalfOpen
			b.successes = 0
			return true
		}
		return false
	default: // half-open, probe already in flight
		return false
	}
}

// RecordSuccess records a successful connection. A half-open breaker closes
// once SuccessThreshold consecutive successes are seen; a closed breaker
// resets its failure count so isolated failures do not accumulate across
// unrelated incidents.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateHalfOpen:
		b.successes++
		if b.successes >= b.cfg.SuccessThreshold {
			b.state = StateClosed
			b.failures = 0
			b.successes = 0
		}
	case StateClosed:
		b.failures = 0
	}
}

// RecordFailure records a failed connection attempt. A closed breaker opens
// once FailureThreshold consecutive failures are reached; a half-open breaker
// reopens immediately with a fresh timeout.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		b.failures++
		if b.failures >= b.cfg.FailureThreshold {
			b.state = StateOpen
			b.openedAt = b.nowFunc()
		}
	case StateHalfOpen:
		b.failures++
		b.state = StateOpen
		b.openedAt = b.nowFunc()
	default: // already open
		b.failures++
	}
}

// State returns the current state without side effects.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Failures returns the current consecutive failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}
