// Package coinbase adapts the Coinbase Exchange WebSocket feed.
//
// The adapter subscribes to the ticker channel and maps ticker messages to
// price updates. Heartbeat-channel messages surface as heartbeat events.
package coinbase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jmlarson/venuefeed/internal/connector"
)

const Name = "coinbase"

// Adapter implements connector.Adapter for Coinbase.
type Adapter struct {
	url    string
	logger *slog.Logger
}

// New creates a Coinbase adapter dialing the given WebSocket URL.
func New(url string, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		url:    url,
		logger: logger.With("venue", Name),
	}
}

// BuildRequest returns the connection request. Public market data needs no
// authentication headers.
func (a *Adapter) BuildRequest(ctx context.Context) (connector.Request, error) {
	return connector.Request{URL: a.url}, nil
}

type subscribeChannel struct {
	Name       string   `json:"name"`
	ProductIDs []string `json:"product_ids"`
}

type subscribeMessage struct {
	Type     string             `json:"type"`
	Channels []subscribeChannel `json:"channels"`
}

// SendSubscription subscribes the ticker and heartbeat channels for the given
// product ids.
func (a *Adapter) SendSubscription(ctx context.Context, symbols []string, sock *connector.Socket) error {
	msg := subscribeMessage{
		Type: "subscribe",
		Channels: []subscribeChannel{
			{Name: "ticker", ProductIDs: symbols},
			{Name: "heartbeat", ProductIDs: symbols},
		},
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal subscribe: %w", err)
	}
	return sock.Send(b)
}

type inboundMessage struct {
	Type      string `json:"type"`
	ProductID string `json:"product_id"`
	BestBid   string `json:"best_bid"`
	BestAsk   string `json:"best_ask"`
	Time      string `json:"time"`
	Message   string `json:"message"` // set on type "error"
}

// OnMessage routes one inbound frame. Frames that fail to parse are skipped;
// a venue-reported error terminates the session.
func (a *Adapter) OnMessage(frame []byte, pub connector.Publisher) error {
	var msg inboundMessage
	if err := json.Unmarshal(frame, &msg); err != nil {
		a.logger.Warn("unparseable frame skipped", "error", err)
		return nil
	}

	switch msg.Type {
	case "ticker":
		a.handleTicker(msg, pub)
	case "heartbeat":
		pub.PublishHeartbeat(parseTime(msg.Time))
	case "error":
		return fmt.Errorf("venue error: %s", msg.Message)
	}
	return nil
}

func (a *Adapter) handleTicker(msg inboundMessage, pub connector.Publisher) {
	bid, err := decimal.NewFromString(msg.BestBid)
	if err != nil {
		a.logger.Warn("ticker with bad bid skipped", "product_id", msg.ProductID, "bid", msg.BestBid)
		return
	}
	ask, err := decimal.NewFromString(msg.BestAsk)
	if err != nil {
		a.logger.Warn("ticker with bad ask skipped", "product_id", msg.ProductID, "ask", msg.BestAsk)
		return
	}

	pub.PublishPrice(connector.PriceUpdate{
		Exchange:  Name,
		Symbol:    msg.ProductID,
		Bid:       bid,
		Ask:       ask,
		Timestamp: parseTime(msg.Time),
	})
}

// parseTime parses the venue's RFC 3339 timestamps, falling back to local
// receive time when absent or malformed.
func parseTime(s string) time.Time {
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts
	}
	return time.Now()
}
