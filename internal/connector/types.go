package connector

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jmlarson/venuefeed/internal/breaker"
	"github.com/jmlarson/venuefeed/internal/stream"
)

// State identifies the connection lifecycle phase.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateFailed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Status is the connection status at one instant. Reason is set only when
// State is StateFailed.
type Status struct {
	State  State
	Reason string
}

// EventType tags a connection lifecycle event.
type EventType int

const (
	// EventStatusChanged carries the new Status.
	EventStatusChanged EventType = iota
	// EventDisconnected carries the disconnect reason ("" for a manual
	// disconnect).
	EventDisconnected
	// EventHeartbeat carries the venue heartbeat timestamp.
	EventHeartbeat
)

// String returns a human-readable event name.
func (t EventType) String() string {
	switch t {
	case EventStatusChanged:
		return "status_changed"
	case EventDisconnected:
		return "disconnected"
	case EventHeartbeat:
		return "heartbeat"
	default:
		return "unknown"
	}
}

// Event is an immutable connection lifecycle event.
type Event struct {
	Type      EventType
	Status    Status    // set for EventStatusChanged
	Reason    string    // set for EventDisconnected
	Timestamp time.Time // event generation time; venue time for heartbeats
}

// PriceUpdate is a best bid/ask quote produced by a venue adapter.
type PriceUpdate struct {
	Exchange  string
	Symbol    string
	Bid       decimal.Decimal
	Ask       decimal.Decimal
	Timestamp time.Time
}

// Request describes how to open the venue WebSocket.
type Request struct {
	URL    string
	Header http.Header
}

// Publisher is the slice of the Controller handed to adapters for emitting
// parsed data back into the stream.
type Publisher interface {
	// PublishPrice pushes a price update to consumers. Never blocks.
	PublishPrice(PriceUpdate)

	// PublishHeartbeat records a venue heartbeat as a lifecycle event.
	PublishHeartbeat(ts time.Time)
}

// Adapter supplies the venue-specific half of a connection. Implementations
// must be safe for calls from the controller's background goroutines.
type Adapter interface {
	// BuildRequest constructs the connection request. An error aborts the
	// connect attempt.
	BuildRequest(ctx context.Context) (Request, error)

	// OnMessage handles one inbound frame. An error is treated as a
	// receive-loop failure and tears down the session.
	OnMessage(frame []byte, pub Publisher) error

	// SendSubscription sends a subscription message for the given symbols
	// over the socket.
	SendSubscription(ctx context.Context, symbols []string, sock *Socket) error
}

// ConnectHandler is an optional Adapter extension invoked after the socket
// opens and before the receive loop starts. An error aborts the connect
// attempt.
type ConnectHandler interface {
	OnConnected(ctx context.Context, sock *Socket) error
}

// DisconnectHandler is an optional Adapter extension notified when the
// session ends. Fire-and-forget.
type DisconnectHandler interface {
	OnDisconnected(code int, reason string)
}

// StatusHandler is an optional Adapter extension notified on every status
// transition. Fire-and-forget.
type StatusHandler interface {
	OnStatusChanged(status Status)
}

// Config configures a Controller.
type Config struct {
	// Exchange names the venue, e.g. "coinbase". Appears in every log
	// record, event, and error produced by the controller.
	Exchange string

	// Backoff delays for reconnect scheduling.
	ReconnectBaseDelay  time.Duration
	ReconnectMultiplier float64
	ReconnectMaxDelay   time.Duration

	// Breaker gates connection attempts.
	Breaker breaker.Config

	// Socket timeouts.
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	ReadTimeout      time.Duration // zero disables the read deadline

	// BufferSize is the capacity of the price and event buffers.
	BufferSize int
}

// DefaultConfig returns sensible defaults for everything but Exchange.
func DefaultConfig() Config {
	return Config{
		ReconnectBaseDelay:  1 * time.Second,
		ReconnectMultiplier: 2.0,
		ReconnectMaxDelay:   60 * time.Second,
		Breaker:             breaker.DefaultConfig(),
		HandshakeTimeout:    10 * time.Second,
		WriteTimeout:        5 * time.Second,
		ReadTimeout:         30 * time.Second,
		BufferSize:          stream.DefaultCapacity,
	}
}
