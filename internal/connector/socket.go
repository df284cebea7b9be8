package connector

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrSocketClosed is returned by socket operations after Close.
var ErrSocketClosed = errors.New("socket closed")

// Socket is a thin wrapper over a WebSocket connection. Reads are owned
// exclusively by the controller's receive loop; writes are serialized so
// adapters and the controller may send concurrently.
type Socket struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	readTimeout  time.Duration

	writeMu sync.Mutex

	mu     sync.Mutex
	closed bool
}

// dialSocket opens the venue WebSocket described by req.
func dialSocket(ctx context.Context, req Request, cfg Config) (*Socket, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: cfg.HandshakeTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, req.URL, req.Header)
	if err != nil {
		return nil, err
	}
	return &Socket{
		conn:         conn,
		writeTimeout: cfg.WriteTimeout,
		readTimeout:  cfg.ReadTimeout,
	}, nil
}

// Send writes a text frame. Safe for concurrent use.
func (s *Socket) Send(data []byte) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSocketClosed
	}
	s.mu.Unlock()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.writeTimeout > 0 {
		s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// Read returns the next frame. Only the controller's receive loop calls this.
// A read deadline bounds how long a silent venue can stall the loop.
func (s *Socket) Read() ([]byte, error) {
	if s.readTimeout > 0 {
		s.conn.SetReadDeadline(time.Now().Add(s.readTimeout))
	}
	_, data, err := s.conn.ReadMessage()
	return data, err
}

// Close sends a close frame and tears down the connection. Idempotent.
func (s *Socket) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	return s.conn.Close()
}
