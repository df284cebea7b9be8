package connector

import (
	"errors"
	"fmt"
	"strings"
)

// ErrControllerClosed is returned by operations on a torn-down controller.
var ErrControllerClosed = errors.New("controller closed")

// CircuitOpenError is returned by Connect when the circuit breaker rejects
// the attempt.
type CircuitOpenError struct {
	Exchange string
	Failures int
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("%s: circuit breaker open after %d failures", e.Exchange, e.Failures)
}

// ConnectError is returned by Connect when the attempt fails at any point
// between request construction and the post-connect subscription replay.
type ConnectError struct {
	Exchange string
	Reason   error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("%s: failed to connect: %v", e.Exchange, e.Reason)
}

func (e *ConnectError) Unwrap() error { return e.Reason }

// ConnectionLostError describes a live session terminated by a socket or
// message-handling failure. It is never returned to a caller; it surfaces as
// the failed-status reason and the disconnected event.
type ConnectionLostError struct {
	Exchange string
	Reason   error
}

func (e *ConnectionLostError) Error() string {
	return fmt.Sprintf("%s: connection lost: %v", e.Exchange, e.Reason)
}

func (e *ConnectionLostError) Unwrap() error { return e.Reason }

// SubscriptionError is returned by SubscribeToPairs when the adapter fails to
// send the subscription message. The stored subscription set is still
// updated, so the next successful connect retries it.
type SubscriptionError struct {
	Exchange string
	Pairs    []string
	Reason   error
}

func (e *SubscriptionError) Error() string {
	return fmt.Sprintf("%s: subscription failed for [%s]: %v",
		e.Exchange, strings.Join(e.Pairs, " "), e.Reason)
}

func (e *SubscriptionError) Unwrap() error { return e.Reason }

// NotAllowedError is returned when an operation is invalid in the current
// connection state.
type NotAllowedError struct {
	Op     string
	Reason string
}

func (e *NotAllowedError) Error() string {
	return fmt.Sprintf("%s not allowed: %s", e.Op, e.Reason)
}
