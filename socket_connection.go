package socketry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// SocketConnection is the seam between the session layer and a concrete
// duplex transport. Implementations adapt a transport's native frames to
// Messages; nothing above this interface ever inspects transport bytes.
type SocketConnection interface {
	// Next blocks until the next inbound message has been decoded. It
	// returns io.EOF once the transport is permanently closed and no
	// further messages will ever arrive. Any other error is a decode or IO
	// fault on the transport.
	Next(ctx context.Context) (Message, error)

	// Send blocks until the message has been accepted for transmission,
	// subject to the transport's own flow control. It fails if the
	// transport has failed or is closed.
	Send(ctx context.Context, msg Message) error

	// Close ends the connection, delivering the close frame to the peer
	// when the transport supports it. A nil frame closes with a normal
	// status and no reason.
	Close(frame *CloseFrame) error
}

// WebSocketConnection is a SocketConnection implementation that wraps
// github.com/coder/websocket.Conn. This is the connection type used by the
// server when handling HTTP WebSocket upgrades and by the client when
// dialing.
//
// The underlying library answers pings and acknowledges close frames on its
// own, so inbound ping and pong messages are never surfaced by Next. A close
// frame received from the peer is surfaced once as a CloseMessage, after
// which Next returns io.EOF.
type WebSocketConnection struct {
	conn *websocket.Conn

	mu       sync.Mutex
	sawClose bool
}

var _ SocketConnection = &WebSocketConnection{}

// NewWebSocketConnection creates a WebSocketConnection from a
// github.com/coder/websocket.Conn.
func NewWebSocketConnection(conn *websocket.Conn) *WebSocketConnection {
	return &WebSocketConnection{conn: conn}
}

// Next reads the next message from the WebSocket connection. Implements
// SocketConnection.Next.
func (c *WebSocketConnection) Next(ctx context.Context) (Message, error) {
	c.mu.Lock()
	sawClose := c.sawClose
	c.mu.Unlock()
	if sawClose {
		return Message{}, io.EOF
	}

	kind, data, err := c.conn.Read(ctx)
	if err != nil {
		var closeErr websocket.CloseError
		if errors.As(err, &closeErr) {
			c.mu.Lock()
			c.sawClose = true
			c.mu.Unlock()

			code, codeErr := CloseCodeFromWire(uint16(closeErr.Code))
			if codeErr != nil {
				return Message{}, codeErr
			}
			return NewCloseMessage(&CloseFrame{Code: code, Reason: closeErr.Reason}), nil
		}
		if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
			return Message{}, io.EOF
		}
		return Message{}, err
	}

	switch kind {
	case websocket.MessageText:
		return NewTextMessage(string(data)), nil
	case websocket.MessageBinary:
		return NewBinaryMessage(data), nil
	}
	return Message{}, fmt.Errorf("unsupported websocket message kind: %v", kind)
}

// Send writes a message to the WebSocket connection. Implements
// SocketConnection.Send. Writes are flushed to the wire per message by the
// underlying library.
func (c *WebSocketConnection) Send(ctx context.Context, msg Message) error {
	switch msg.Type {
	case TextMessage:
		return c.conn.Write(ctx, websocket.MessageText, msg.Data)
	case BinaryMessage:
		return c.conn.Write(ctx, websocket.MessageBinary, msg.Data)
	case PingMessage:
		// Ping waits for the matching pong, which is only processed while
		// a Read is in flight. Run it off the caller's goroutine so a
		// heartbeat can never stall the session loop. A failed ping will
		// surface as a read error anyway.
		go func() {
			pingCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = c.conn.Ping(pingCtx)
		}()
		return nil
	case PongMessage:
		// Pongs are managed by the protocol library.
		return nil
	case CloseMessage:
		return c.Close(msg.Frame)
	}
	return fmt.Errorf("unsupported message type: %v", msg.Type)
}

// Close closes the WebSocket connection, sending the close frame to the
// peer. Implements SocketConnection.Close.
func (c *WebSocketConnection) Close(frame *CloseFrame) error {
	c.mu.Lock()
	c.sawClose = true
	c.mu.Unlock()

	code := CloseCodeNormal
	reason := ""
	if frame != nil {
		code = frame.Code
		reason = frame.Reason
	}
	return c.conn.Close(websocket.StatusCode(code), reason)
}
