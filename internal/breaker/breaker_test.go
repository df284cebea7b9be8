package breaker

import (
	"testing"
	"time"
)

// fakeClock lets tests control elapsed time.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newFakeClock() *fakeClock { return &fakeClock{t: time.Unix(1700000000, 0)} }

func newTestBreaker(cfg Config) (*Breaker, *fakeClock) {
	b := New(cfg)
	clk := newFakeClock()
	b.nowFunc = clk.now
	return b, clk
}

func TestBreaker_OpensAtThreshold(t *testing.T) {
	b, _ := newTestBreaker(Config{FailureThreshold: 3, ResetTimeout: 10 * time.Second})

	b.RecordFailure()
	b.RecordFailure()
	if b.State() != StateClosed {
		t.Fatalf("state after 2 failures = %v, want closed", b.State())
	}

	b.RecordFailure()
	if b.State() != StateOpen {
		t.Fatalf("state after 3 failures = %v, want open", b.State())
	}
	if b.Allow() {
		t.Error("Allow() = true immediately after opening, want false")
	}
	if b.Failures() != 3 {
		t.Errorf("Failures() = %d, want 3", b.Failures())
	}
}

func TestBreaker_RecoveryAfterTimeout(t *testing.T) {
	b, clk := newTestBreaker(Config{FailureThreshold: 1, ResetTimeout: 10 * time.Second})

	b.RecordFailure()
	if b.State() != StateOpen {
		t.Fatalf("state = %v, want open", b.State())
	}

	clk.advance(9900 * time.Millisecond)
	if b.Allow() {
		t.Error("Allow() = true at t=9.9s, want false")
	}

	clk.advance(200 * time.Millisecond)
	if !b.Allow() {
		t.Error("Allow() = false at t=10.1s, want true")
	}
	if b.State() != StateHalfOpen {
		t.Errorf("state after elapsed Allow = %v, want half-open", b.State())
	}

	b.RecordSuccess()
	if b.State() != StateClosed {
		t.Errorf("state after probe success = %v, want closed", b.State())
	}
	if b.Failures() != 0 {
		t.Errorf("Failures() after close = %d, want 0", b.Failures())
	}
}

func TestBreaker_HalfOpenSingleProbe(t *testing.T) {
	b, clk := newTestBreaker(Config{FailureThreshold: 1, ResetTimeout: time.Second})

	b.RecordFailure()
	clk.advance(2 * time.Second)

	if !b.Allow() {
		t.Fatal("first Allow() after timeout = false, want true")
	}
	// The probe permission is consumed; further queries are rejected until
	// the probe reports a result.
	if b.Allow() {
		t.Error("second Allow() in half-open = true, want false")
	}
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	b, clk := newTestBreaker(Config{FailureThreshold: 1, ResetTimeout: 10 * time.Second})

	b.RecordFailure()
	clk.advance(11 * time.Second)
	if !b.Allow() {
		t.Fatal("probe not allowed after timeout")
	}

	b.RecordFailure()
	if b.State() != StateOpen {
		t.Fatalf("state after half-open failure = %v, want open", b.State())
	}

	// openedAt was refreshed: the old elapsed time no longer counts.
	clk.advance(5 * time.Second)
	if b.Allow() {
		t.Error("Allow() = true 5s after reopening, want false")
	}
	clk.advance(6 * time.Second)
	if !b.Allow() {
		t.Error("Allow() = false 11s after reopening, want true")
	}
}

func TestBreaker_ClosedSuccessResetsCount(t *testing.T) {
	b, _ := newTestBreaker(Config{FailureThreshold: 3, ResetTimeout: time.Second})

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()

	// Two more failures should not open: the count restarted at zero.
	b.RecordFailure()
	b.RecordFailure()
	if b.State() != StateClosed {
		t.Errorf("state = %v, want closed after interleaved success", b.State())
	}

	b.RecordFailure()
	if b.State() != StateOpen {
		t.Errorf("state = %v, want open after 3 consecutive failures", b.State())
	}
}

func TestBreaker_SuccessThreshold(t *testing.T) {
	b, clk := newTestBreaker(Config{
		FailureThreshold: 1,
		ResetTimeout:     time.Second,
		SuccessThreshold: 2,
	})

	b.RecordFailure()
	clk.advance(2 * time.Second)
	if !b.Allow() {
		t.Fatal("probe not allowed")
	}

	b.RecordSuccess()
	if b.State() != StateHalfOpen {
		t.Fatalf("state after 1/2 successes = %v, want half-open", b.State())
	}

	b.RecordSuccess()
	if b.State() != StateClosed {
		t.Errorf("state after 2/2 successes = %v, want closed", b.State())
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half-open"},
		{State(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
