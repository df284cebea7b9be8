package connector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/jmlarson/venuefeed/internal/backoff"
	"github.com/jmlarson/venuefeed/internal/breaker"
	"github.com/jmlarson/venuefeed/internal/stream"
)

// Controller owns one venue session: connection status, the subscription set,
// the live socket and its receive loop, and any pending reconnect timer.
//
// All state transitions are serialized under a single mutex. Socket I/O and
// adapter callbacks run outside the lock; a generation counter invalidates
// callbacks belonging to superseded sessions, so a slow dial can never clobber
// the state of a newer attempt.
type Controller struct {
	cfg     Config
	adapter Adapter
	logger  *slog.Logger

	mu     sync.Mutex
	status Status
	subs   []string
	manual bool // set by Disconnect; suppresses auto-reconnect
	closed bool
	sock   *Socket
	timer  *time.Timer // pending reconnect, nil when none armed
	gen    uint64      // session generation; bumped whenever pending work is cancelled

	backoff *backoff.Policy
	breaker *breaker.Breaker

	prices *stream.Buffer[PriceUpdate]
	events *stream.Buffer[Event]

	wg sync.WaitGroup // tracks receive loops
}

// NewController creates a controller for one venue. Zero-value Config fields
// fall back to DefaultConfig values.
func NewController(cfg Config, adapter Adapter, logger *slog.Logger) *Controller {
	def := DefaultConfig()
	if cfg.ReconnectBaseDelay == 0 {
		cfg.ReconnectBaseDelay = def.ReconnectBaseDelay
	}
	if cfg.ReconnectMultiplier == 0 {
		cfg.ReconnectMultiplier = def.ReconnectMultiplier
	}
	if cfg.ReconnectMaxDelay == 0 {
		cfg.ReconnectMaxDelay = def.ReconnectMaxDelay
	}
	if cfg.Breaker.FailureThreshold == 0 {
		cfg.Breaker = def.Breaker
	}
	if cfg.HandshakeTimeout == 0 {
		cfg.HandshakeTimeout = def.HandshakeTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.BufferSize == 0 {
		cfg.BufferSize = def.BufferSize
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Controller{
		cfg:     cfg,
		adapter: adapter,
		logger:  logger.With("component", "connector", "exchange", cfg.Exchange),
		status:  Status{State: StateDisconnected},
		backoff: backoff.New(cfg.ReconnectBaseDelay, cfg.ReconnectMultiplier, cfg.ReconnectMaxDelay),
		breaker: breaker.New(cfg.Breaker),
		prices:  stream.NewBuffer[PriceUpdate](cfg.BufferSize),
		events:  stream.NewBuffer[Event](cfg.BufferSize),
	}
}

// Exchange returns the venue name.
func (c *Controller) Exchange() string { return c.cfg.Exchange }

// Status returns the current connection status.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Subscriptions returns a copy of the stored subscription set.
func (c *Controller) Subscriptions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.subs...)
}

// PriceUpdates returns the buffer price updates are delivered on. Consume-once:
// items received by one consumer are gone for all others.
func (c *Controller) PriceUpdates() *stream.Buffer[PriceUpdate] { return c.prices }

// Events returns the buffer connection lifecycle events are delivered on.
func (c *Controller) Events() *stream.Buffer[Event] { return c.events }

// PublishPrice implements Publisher for adapters.
func (c *Controller) PublishPrice(u PriceUpdate) {
	c.prices.Push(u)
}

// PublishHeartbeat implements Publisher for adapters.
func (c *Controller) PublishHeartbeat(ts time.Time) {
	c.events.Push(Event{Type: EventHeartbeat, Timestamp: ts})
}

// Connect establishes the venue session. No-op if already connected. Returns
// *CircuitOpenError when the breaker rejects the attempt and *ConnectError
// when any step of the connect sequence fails; a failed attempt still
// schedules automatic recovery unless Disconnect intervenes.
func (c *Controller) Connect(ctx context.Context) error {
	return c.attempt(ctx, false, false, uuid.NewString())
}

// Disconnect tears the session down and suppresses all future automatic
// reconnects. Any pending reconnect timer is cancelled atomically with the
// manual flag, so no attempt can fire after Disconnect returns. Idempotent.
func (c *Controller) Disconnect() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.manual = true
	hadSession := c.sock != nil
	c.cancelPendingLocked()

	already := c.status.State == StateDisconnected
	if !already {
		c.setStatusLocked(Status{State: StateDisconnected}, "")
		c.pushEventLocked(Event{Type: EventDisconnected, Timestamp: time.Now()})
		c.logger.Info("disconnected", "event", "manual_disconnect")
	}
	c.mu.Unlock()

	if h, ok := c.adapter.(DisconnectHandler); ok && hadSession {
		go h.OnDisconnected(websocket.CloseNormalClosure, "")
	}
}

// SubscribeToPairs replaces the subscription set. When connected, the new set
// is sent to the venue immediately; a send failure is returned as
// *SubscriptionError but the stored set is kept, so the next reconnect
// retries it. When not connected the set is stored and *NotAllowedError is
// returned.
func (c *Controller) SubscribeToPairs(ctx context.Context, pairs []string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrControllerClosed
	}
	c.subs = append([]string(nil), pairs...)
	if c.status.State != StateConnected {
		c.mu.Unlock()
		return &NotAllowedError{Op: "subscribe", Reason: "not connected"}
	}
	sock := c.sock
	c.mu.Unlock()

	if err := c.adapter.SendSubscription(ctx, pairs, sock); err != nil {
		return &SubscriptionError{Exchange: c.cfg.Exchange, Pairs: pairs, Reason: err}
	}
	return nil
}

// Close tears the controller down for good: session closed, pending work
// cancelled, both buffers closed. The controller accepts no operations
// afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.manual = true
	c.closed = true
	c.cancelPendingLocked()
	if c.status.State != StateDisconnected {
		c.setStatusLocked(Status{State: StateDisconnected}, "")
	}
	c.mu.Unlock()

	c.wg.Wait()
	c.prices.Close()
	c.events.Close()
	c.logger.Info("controller closed")
}

// attempt runs one connect sequence. preauthorized marks attempts whose
// breaker permission was already consumed by reconnect scheduling; they must
// not query the gate a second time.
func (c *Controller) attempt(ctx context.Context, isReconnect, preauthorized bool, attemptID string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrControllerClosed
	}
	if c.status.State == StateConnected {
		c.mu.Unlock()
		return nil
	}
	if !isReconnect {
		c.manual = false
	}
	if !preauthorized && !c.breaker.Allow() {
		failures := c.breaker.Failures()
		c.mu.Unlock()
		return &CircuitOpenError{Exchange: c.cfg.Exchange, Failures: failures}
	}

	c.cancelPendingLocked()
	gen := c.gen
	target := StateConnecting
	if isReconnect {
		target = StateReconnecting
	}
	c.setStatusLocked(Status{State: target}, attemptID)
	c.mu.Unlock()

	c.logger.Info("connecting", "event", "connect_attempt", "correlation_id", attemptID)

	req, err := c.adapter.BuildRequest(ctx)
	if err != nil {
		return c.attemptFailed(gen, attemptID, fmt.Errorf("build request: %w", err))
	}

	sock, err := dialSocket(ctx, req, c.cfg)
	if err != nil {
		return c.attemptFailed(gen, attemptID, fmt.Errorf("dial %s: %w", req.URL, err))
	}

	if h, ok := c.adapter.(ConnectHandler); ok {
		if err := h.OnConnected(ctx, sock); err != nil {
			sock.Close()
			return c.attemptFailed(gen, attemptID, fmt.Errorf("on connected: %w", err))
		}
	}

	c.mu.Lock()
	if c.closed || c.manual || gen != c.gen {
		// Disconnect was called, or a newer attempt started, while we were
		// dialing. This socket must not become the live session.
		c.mu.Unlock()
		sock.Close()
		return &ConnectError{Exchange: c.cfg.Exchange, Reason: errors.New("attempt superseded")}
	}
	c.sock = sock
	c.breaker.RecordSuccess()
	c.backoff.Reset()
	c.setStatusLocked(Status{State: StateConnected}, attemptID)
	subs := append([]string(nil), c.subs...)
	// Registered under the lock so Close's Wait can never run concurrently
	// with Add on an idle WaitGroup.
	c.wg.Add(1)
	c.mu.Unlock()

	c.logger.Info("connected", "event", "connected", "correlation_id", attemptID)

	go c.receiveLoop(sock, gen, attemptID)

	if len(subs) > 0 {
		if err := c.adapter.SendSubscription(ctx, subs, sock); err != nil {
			err = fmt.Errorf("replay subscriptions: %w", err)
			c.fail(gen, attemptID, err)
			return &ConnectError{Exchange: c.cfg.Exchange, Reason: err}
		}
		c.logger.Info("subscriptions replayed", "pairs", len(subs), "correlation_id", attemptID)
	}

	return nil
}

// attemptFailed routes a connect-time error through the shared failure path
// and wraps it for the caller.
func (c *Controller) attemptFailed(gen uint64, attemptID string, reason error) error {
	c.fail(gen, attemptID, reason)
	return &ConnectError{Exchange: c.cfg.Exchange, Reason: reason}
}

// receiveLoop reads frames until the socket errors or the session is
// superseded. One loop exists per live socket.
func (c *Controller) receiveLoop(sock *Socket, gen uint64, attemptID string) {
	defer c.wg.Done()

	for {
		frame, err := sock.Read()
		if err != nil {
			c.fail(gen, attemptID, &ConnectionLostError{Exchange: c.cfg.Exchange, Reason: err})
			return
		}
		if err := c.adapter.OnMessage(frame, c); err != nil {
			c.fail(gen, attemptID, fmt.Errorf("handle message: %w", err))
			return
		}
	}
}

// fail is the shared failure path for connect-time and receive-time errors:
// tear down the session, record the failure, surface it as status and event,
// and schedule recovery unless Disconnect intervened. Calls carrying a stale
// generation are ignored; their session was already replaced or shut down.
func (c *Controller) fail(gen uint64, attemptID string, reason error) {
	c.mu.Lock()
	if c.closed || gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.cancelPendingLocked()
	c.breaker.RecordFailure()

	msg := reason.Error()
	c.setStatusLocked(Status{State: StateFailed, Reason: msg}, attemptID)
	c.pushEventLocked(Event{Type: EventDisconnected, Reason: msg, Timestamp: time.Now()})
	c.logger.Warn("connection failed",
		"event", "failure",
		"error", msg,
		"failures", c.breaker.Failures(),
		"correlation_id", attemptID,
	)

	if !c.manual {
		c.scheduleReconnectLocked(attemptID)
	}
	c.mu.Unlock()

	if h, ok := c.adapter.(DisconnectHandler); ok {
		go h.OnDisconnected(websocket.CloseAbnormalClosure, msg)
	}
}

// scheduleReconnectLocked arms a cancellable delayed reconnect attempt. If
// the breaker refuses, recovery halts until the next externally-triggered
// event; no timer polls the breaker. Must be called with the lock held.
func (c *Controller) scheduleReconnectLocked(attemptID string) {
	c.setStatusLocked(Status{State: StateReconnecting}, attemptID)

	if !c.breaker.Allow() {
		c.logger.Warn("circuit breaker open, automatic reconnect halted",
			"event", "reconnect_halted",
			"failures", c.breaker.Failures(),
			"correlation_id", attemptID,
		)
		return
	}

	delay := c.backoff.Next()
	gen := c.gen
	c.logger.Info("reconnect scheduled",
		"event", "reconnect_scheduled",
		"delay", delay,
		"correlation_id", attemptID,
	)
	c.timer = time.AfterFunc(delay, func() { c.retryFire(gen, attemptID) })
}

// retryFire runs when the reconnect timer elapses. The attempt is
// preauthorized: its breaker permission was consumed at scheduling time.
func (c *Controller) retryFire(gen uint64, attemptID string) {
	c.mu.Lock()
	if c.closed || c.manual || gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.mu.Unlock()

	if err := c.attempt(context.Background(), true, true, attemptID); err != nil {
		// Background attempt: the error has no caller. It was already logged,
		// folded into the failed status, and rescheduled by the failure path.
		c.logger.Debug("reconnect attempt failed", "error", err, "correlation_id", attemptID)
	}
}

// cancelPendingLocked discards the live socket, its receive loop, and any
// armed reconnect timer, and bumps the generation so their callbacks become
// no-ops. Must be called with the lock held.
func (c *Controller) cancelPendingLocked() {
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.sock != nil {
		c.sock.Close()
		c.sock = nil
	}
}

// setStatusLocked applies a status transition, emits the statusChanged event,
// and notifies an interested adapter. Must be called with the lock held.
func (c *Controller) setStatusLocked(st Status, attemptID string) {
	c.status = st
	c.pushEventLocked(Event{Type: EventStatusChanged, Status: st, Timestamp: time.Now()})
	c.logger.Debug("status changed",
		"event", "status_changed",
		"status", st.State.String(),
		"correlation_id", attemptID,
	)
	if h, ok := c.adapter.(StatusHandler); ok {
		go h.OnStatusChanged(st)
	}
}

func (c *Controller) pushEventLocked(ev Event) {
	c.events.Push(ev)
}
