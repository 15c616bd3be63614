package socketry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// ErrNotImplemented is returned by UnimplementedSession for callbacks a
// consumer has deliberately left out. A session whose handler returns it is
// disconnected, surfacing the capability gap in that consumer's code.
var ErrNotImplemented = errors.New("not implemented")

// CallbackError wraps an error returned, or a panic raised, by a user
// callback. It terminates only the session whose callback failed; the client
// controller will not reconnect after one.
type CallbackError struct {
	Err error
}

func (e *CallbackError) Error() string {
	return "session callback failed: " + e.Err.Error()
}

func (e *CallbackError) Unwrap() error {
	return e.Err
}

// SessionHandler receives the events of one session. Implementations hold
// the session's private state; the session guarantees the callbacks are
// never invoked concurrently and always in arrival order.
//
// OnCall is never triggered by transport input. It is an in-process entry
// point invoked through the session handle, letting other parts of the
// process reach a session's state while respecting its single-writer
// discipline.
type SessionHandler[C any] interface {
	OnText(ctx context.Context, text string) error
	OnBinary(ctx context.Context, data []byte) error
	OnCall(ctx context.Context, call C) error
}

// UnimplementedSession can be embedded in a SessionHandler implementation to
// default every callback to ErrNotImplemented, so a consumer only overrides
// the capabilities it supports.
type UnimplementedSession[C any] struct{}

func (UnimplementedSession[C]) OnText(context.Context, string) error {
	return fmt.Errorf("OnText: %w", ErrNotImplemented)
}

func (UnimplementedSession[C]) OnBinary(context.Context, []byte) error {
	return fmt.Errorf("OnBinary: %w", ErrNotImplemented)
}

func (UnimplementedSession[C]) OnCall(context.Context, C) error {
	return fmt.Errorf("OnCall: %w", ErrNotImplemented)
}

type sessionOp[C any] struct {
	msg    Message
	call   C
	isCall bool
}

// Session is the shared, thread-safe handle to a running session. Handles
// enqueue work on the session's mailbox and return immediately; the session
// alone drains the mailbox and touches the transport. Operations issued
// through one handle reach the session in the order they were issued.
//
// Operations issued after the session has terminated are accepted and
// silently discarded. Use Done and Err to observe termination.
type Session[I comparable, C any] struct {
	// ID is the session's identity, assigned at creation and never mutated.
	ID I

	ops  *mailbox[sessionOp[C]]
	done chan struct{}

	mu  sync.Mutex
	err error
}

// NewSession creates a session over the given socket and starts its event
// loop. The bind function receives the session handle and returns the
// handler that will own the session's state, allowing the handler to keep
// the handle for sending.
//
// The session runs until the transport ends, the handle is closed, a
// callback fails, or ctx is cancelled. The socket is released when the
// session ends.
func NewSession[I comparable, C any](ctx context.Context, id I, socket *Socket, bind func(*Session[I, C]) SessionHandler[C]) *Session[I, C] {
	sess := newSessionHandle[I, C](id)
	handler := bind(sess)
	go func() {
		sess.terminate(runSession(ctx, sess, socket, handler))
	}()
	return sess
}

func newSessionHandle[I comparable, C any](id I) *Session[I, C] {
	return &Session[I, C]{
		ID:   id,
		ops:  newMailbox[sessionOp[C]](),
		done: make(chan struct{}),
	}
}

// Send enqueues an outbound message.
func (s *Session[I, C]) Send(msg Message) {
	s.ops.put(sessionOp[C]{msg: msg})
}

// Text enqueues an outbound text message.
func (s *Session[I, C]) Text(text string) {
	s.Send(NewTextMessage(text))
}

// Binary enqueues an outbound binary message.
func (s *Session[I, C]) Binary(data []byte) {
	s.Send(NewBinaryMessage(data))
}

// Close asks the session to close its connection, delivering the optional
// close frame to the peer. Like all handle operations it returns
// immediately.
func (s *Session[I, C]) Close(frame *CloseFrame) {
	s.Send(NewCloseMessage(frame))
}

// Call delivers an in-process call to the session's OnCall callback,
// bypassing the wire. To get a response back, carry a reply channel inside
// the call value.
func (s *Session[I, C]) Call(call C) {
	s.ops.put(sessionOp[C]{call: call, isCall: true})
}

// Done is closed once the session has terminated and will never again invoke
// its handler.
func (s *Session[I, C]) Done() <-chan struct{} {
	return s.done
}

// Err reports why the session terminated. It is nil before termination and
// after a graceful close.
func (s *Session[I, C]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Session[I, C]) terminate(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()

	s.ops.close()
	close(s.done)
}

type inboundEvent struct {
	msg Message
	err error
}

// runSession is the session event loop. It races the socket's inbound
// stream against the handle mailbox, dispatching inbound messages to the
// handler strictly in arrival order and mailbox operations strictly in
// submission order. It returns nil on a graceful close (either side), the
// transport error on an abnormal drop, or a *CallbackError when the handler
// fails.
func runSession[I comparable, C any](ctx context.Context, sess *Session[I, C], socket *Socket, handler SessionHandler[C]) (err error) {
	defer func() {
		var frame *CloseFrame
		if err != nil {
			frame = &CloseFrame{Code: CloseCodeError}
		}
		_ = socket.Close(frame)
	}()

	pumpCtx, cancelPump := context.WithCancel(ctx)
	defer cancelPump()

	inbound := make(chan inboundEvent)
	go func() {
		defer close(inbound)
		for {
			msg, err := socket.Next(pumpCtx)
			select {
			case inbound <- inboundEvent{msg: msg, err: err}:
			case <-pumpCtx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	cfg := socket.Config()
	var heartbeat <-chan time.Time
	if cfg.Heartbeat > 0 {
		ticker := time.NewTicker(cfg.Heartbeat)
		defer ticker.Stop()
		heartbeat = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-inbound:
			if !ok {
				return io.EOF
			}
			if ev.err != nil {
				return ev.err
			}

			switch ev.msg.Type {
			case TextMessage:
				if err := invokeCallback(func() error {
					return handler.OnText(ctx, ev.msg.Text())
				}); err != nil {
					return &CallbackError{Err: err}
				}
			case BinaryMessage:
				if err := invokeCallback(func() error {
					return handler.OnBinary(ctx, ev.msg.Data)
				}); err != nil {
					return &CallbackError{Err: err}
				}
			case PingMessage:
				if err := socket.Send(ctx, NewPongMessage(ev.msg.Data)); err != nil {
					return err
				}
			case PongMessage:
				// Nothing to do.
			case CloseMessage:
				_ = socket.Close(ev.msg.Frame)
				return nil
			}

		case <-sess.ops.wait():
			for {
				op, ok := sess.ops.take()
				if !ok {
					break
				}

				if op.isCall {
					if err := invokeCallback(func() error {
						return handler.OnCall(ctx, op.call)
					}); err != nil {
						return &CallbackError{Err: err}
					}
					continue
				}

				if op.msg.Type == CloseMessage {
					_ = socket.Close(op.msg.Frame)
					awaitTransportEnd(ctx, inbound, cfg.CloseGracePeriod)
					return nil
				}

				if err := socket.Send(ctx, op.msg); err != nil {
					return err
				}
			}

		case <-heartbeat:
			if err := socket.Send(ctx, NewPingMessage(nil)); err != nil {
				return err
			}
		}
	}
}

// awaitTransportEnd waits for the inbound stream to confirm end-of-stream
// after a locally initiated close, bounded by the grace period. Messages
// still arriving after the close began are discarded.
func awaitTransportEnd(ctx context.Context, inbound <-chan inboundEvent, grace time.Duration) {
	timer := time.NewTimer(grace)
	defer timer.Stop()

	for {
		select {
		case ev, ok := <-inbound:
			if !ok || ev.err != nil {
				return
			}
		case <-timer.C:
			return
		case <-ctx.Done():
			return
		}
	}
}

// invokeCallback runs a user callback, converting a panic into an error so a
// misbehaving session cannot take down the process or its sibling sessions.
func invokeCallback(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if rErr, ok := r.(error); ok {
				err = rErr
			} else {
				err = fmt.Errorf("%v", r)
			}
		}
	}()
	return fn()
}
