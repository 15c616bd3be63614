// Package socketry unifies bidirectional message transports behind a single
// asynchronous duplex interface and drives one session per connection,
// dispatching messages to user-supplied handlers while exposing a
// thread-safe handle for sending and for in-process calls.
//
// # Key Features
//
//   - Transport-agnostic Message model with RFC 6455 close codes
//   - One session actor per connection: ordered delivery, single-writer
//     transport access, no shared mutable state
//   - Cloneable session handles with non-blocking Send, Close, and Call
//   - Server controller with an identity-keyed session registry,
//     mountable on any HTTP server via http.Handler
//   - Client controller with capped backoff reconnection
//   - Any duplex transport plugs in through the SocketConnection seam
//
// # Quick Start
//
// Implement a SessionHandler and a ServerHandler, then mount the server:
//
//	type EchoSession struct {
//	    socketry.UnimplementedSession[struct{}]
//	    handle *socketry.Session[string, struct{}]
//	}
//
//	func (s *EchoSession) OnText(ctx context.Context, text string) error {
//	    s.handle.Text(text)
//	    return nil
//	}
//
//	server := socketry.NewServer[string, struct{}](myServerHandler, socketry.ServerConfig{})
//	http.ListenAndServe(":8080", server)
//
// # Sessions
//
// A session owns its socket exclusively. All external interaction goes
// through the session handle, whose operations enqueue and return
// immediately. Inbound messages are delivered to the handler strictly in
// arrival order, never concurrently. A handler error disconnects only its
// own session.
//
// # Calls
//
// Call delivers a typed value to the session's OnCall callback without
// touching the wire. This is how other parts of the process talk to a
// session's private state while respecting its single-writer discipline.
//
// # Clients
//
// Connect dials a server and returns a session handle plus a termination
// channel. If the connection drops without a graceful close the client
// re-dials under the configured backoff, attaching the new connection to
// the same handle.
//
// For more examples see the example directory.
package socketry
