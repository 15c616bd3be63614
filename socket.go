package socketry

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// DefaultHeartbeat is the ping interval used when SocketConfig.Heartbeat is
// left at zero.
const DefaultHeartbeat = 5 * time.Second

// DefaultCloseGracePeriod bounds how long a closing session waits for the
// transport to confirm end-of-stream when SocketConfig.CloseGracePeriod is
// left at zero.
const DefaultCloseGracePeriod = 5 * time.Second

// SocketConfig carries per-connection transport settings.
type SocketConfig struct {
	// Heartbeat is the interval between keepalive pings sent by the
	// session. Zero selects DefaultHeartbeat; a negative value disables
	// heartbeats.
	Heartbeat time.Duration

	// CloseGracePeriod is how long a session initiating a close waits for
	// the transport to end before giving up. Zero selects
	// DefaultCloseGracePeriod.
	CloseGracePeriod time.Duration
}

func (c SocketConfig) withDefaults() SocketConfig {
	if c.Heartbeat == 0 {
		c.Heartbeat = DefaultHeartbeat
	} else if c.Heartbeat < 0 {
		c.Heartbeat = 0
	}
	if c.CloseGracePeriod <= 0 {
		c.CloseGracePeriod = DefaultCloseGracePeriod
	}
	return c
}

// Socket owns exactly one transport connection and its configuration. A
// socket belongs to a single session for its entire lifetime; no other
// goroutine ever touches the underlying transport.
type Socket struct {
	conn   SocketConnection
	config SocketConfig

	closeOnce sync.Once
	closeErr  error
}

// NewSocket wraps a SocketConnection in a Socket.
func NewSocket(conn SocketConnection, config SocketConfig) *Socket {
	return &Socket{conn: conn, config: config.withDefaults()}
}

// NewWebSocket wraps a github.com/coder/websocket.Conn in a Socket.
func NewWebSocket(conn *websocket.Conn, config SocketConfig) *Socket {
	return NewSocket(NewWebSocketConnection(conn), config)
}

// Next returns the next inbound message. See SocketConnection.Next.
func (s *Socket) Next(ctx context.Context) (Message, error) {
	return s.conn.Next(ctx)
}

// Send transmits an outbound message. See SocketConnection.Send.
func (s *Socket) Send(ctx context.Context, msg Message) error {
	return s.conn.Send(ctx, msg)
}

// Close closes the underlying transport exactly once. Subsequent calls
// return the result of the first.
func (s *Socket) Close(frame *CloseFrame) error {
	s.closeOnce.Do(func() {
		s.closeErr = s.conn.Close(frame)
	})
	return s.closeErr
}

// Config returns the socket's transport configuration with defaults applied.
func (s *Socket) Config() SocketConfig {
	return s.config
}
