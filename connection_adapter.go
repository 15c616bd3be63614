package socketry

import (
	"context"
	"time"
)

// RawConnection is an asynchronous duplex channel of some externally defined
// item type. Any transport that can be driven this way can be bridged to a
// SocketConnection with AdaptConnection.
type RawConnection[T any] interface {
	// Next blocks until the next inbound item arrives, returning io.EOF
	// once the transport is permanently closed.
	Next(ctx context.Context) (T, error)

	// Send blocks until the item has been accepted for transmission.
	Send(ctx context.Context, item T) error

	// Close ends the transport.
	Close() error
}

type adaptedConnection[T any] struct {
	conn   RawConnection[T]
	decode func(T) (Message, error)
	encode func(Message) (T, error)
}

var _ SocketConnection = &adaptedConnection[string]{}

// AdaptConnection bridges a typed duplex transport to the SocketConnection
// interface. Inbound items pass through decode and outbound messages through
// encode, so all transport specific knowledge stays in the two conversion
// functions and everything above the Socket remains transport agnostic.
func AdaptConnection[T any](conn RawConnection[T], decode func(T) (Message, error), encode func(Message) (T, error)) SocketConnection {
	return &adaptedConnection[T]{conn: conn, decode: decode, encode: encode}
}

func (a *adaptedConnection[T]) Next(ctx context.Context) (Message, error) {
	item, err := a.conn.Next(ctx)
	if err != nil {
		return Message{}, err
	}
	return a.decode(item)
}

func (a *adaptedConnection[T]) Send(ctx context.Context, msg Message) error {
	item, err := a.encode(msg)
	if err != nil {
		return err
	}
	return a.conn.Send(ctx, item)
}

func (a *adaptedConnection[T]) Close(frame *CloseFrame) error {
	if frame != nil {
		if item, err := a.encode(NewCloseMessage(frame)); err == nil {
			sendCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			_ = a.conn.Send(sendCtx, item)
			cancel()
		}
	}
	return a.conn.Close()
}
