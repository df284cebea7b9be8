// Package kraken adapts the Kraken WebSocket v2 feed.
//
// The adapter subscribes to the ticker channel and maps ticker updates to
// price updates. Heartbeat-channel messages surface as heartbeat events.
package kraken

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jmlarson/venuefeed/internal/connector"
)

const Name = "kraken"

// Adapter implements connector.Adapter for Kraken.
type Adapter struct {
	url    string
	logger *slog.Logger
}

// New creates a Kraken adapter dialing the given WebSocket URL.
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

type subscribeParams struct {
	Channel string   `json:"channel"`
	Symbol  []string `json:"symbol"`
}

type subscribeMessage struct {
	Method string          `json:"method"`
	Params subscribeParams `json:"params"`
}

// SendSubscription subscribes the ticker channel for the given symbols.
func (a *Adapter) SendSubscription(ctx context.Context, symbols []string, sock *connector.Socket) error {
	msg := subscribeMessage{
		Method: "subscribe",
		Params: subscribeParams{Channel: "ticker", Symbol: symbols},
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal subscribe: %w", err)
	}
	return sock.Send(b)
}

type tickerData struct {
	Symbol string          `json:"symbol"`
	Bid    decimal.Decimal `json:"bid"`
	Ask    decimal.Decimal `json:"ask"`
}

type inboundMessage struct {
	Channel string       `json:"channel"`
	Method  string       `json:"method"`
	Success *bool        `json:"success,omitempty"`
	Error   string       `json:"error,omitempty"`
	Data    []tickerData `json:"data,omitempty"`
}

// OnMessage routes one inbound frame. Frames that fail to parse are skipped;
// a rejected subscription terminates the session.
func (a *Adapter) OnMessage(frame []byte, pub connector.Publisher) error {
	var msg inboundMessage
	if err := json.Unmarshal(frame, &msg); err != nil {
		a.logger.Warn("unparseable frame skipped", "error", err)
		return nil
	}

	if msg.Method == "subscribe" && msg.Success != nil && !*msg.Success {
		return fmt.Errorf("subscription rejected: %s", msg.Error)
	}

	switch msg.Channel {
	case "ticker":
		now := time.Now()
		for _, d := range msg.Data {
			pub.PublishPrice(connector.PriceUpdate{
				Exchange:  Name,
				Symbol:    d.Symbol,
				Bid:       d.Bid,
				Ask:       d.Ask,
				Timestamp: now,
			})
		}
	case "heartbeat":
		pub.PublishHeartbeat(time.Now())
	}
	return nil
}
