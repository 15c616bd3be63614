package socketry

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"
)

// ConnectionInfo describes an accepted transport connection: the remote
// address and, for WebSocket upgrades, the HTTP headers of the upgrade
// request.
type ConnectionInfo struct {
	RemoteAddr string
	Headers    http.Header
}

// ServerHandler decides the fate of incoming connections and observes
// session lifecycles.
type ServerHandler[I comparable, C any] interface {
	// OnConnect accepts or rejects a new connection. To accept, construct a
	// session over the socket with NewSession and return it; its identity
	// becomes the registry key. To reject, return an error; the server
	// closes the connection with a policy status.
	OnConnect(ctx context.Context, socket *Socket, info *ConnectionInfo) (*Session[I, C], error)

	// OnDisconnect is invoked exactly once after a previously accepted
	// session has terminated and been removed from the registry.
	OnDisconnect(ctx context.Context, id I) error
}

// ServerConfig carries server-wide settings.
type ServerConfig struct {
	// Socket is applied to every accepted connection.
	Socket SocketConfig

	// OriginPatterns are the allowed origins for the WebSocket handshake,
	// with "*" wildcards. Empty allows all origins.
	OriginPatterns []string

	// Logger receives accept, reject, and session failure events. Nil
	// discards them.
	Logger *zerolog.Logger
}

// Server accepts WebSocket connections and runs one session per connection,
// keeping a registry of live sessions by identity. It implements
// http.Handler, so it can be mounted on any Go HTTP server or router.
type Server[I comparable, C any] struct {
	handler ServerHandler[I, C]
	config  ServerConfig
	log     zerolog.Logger

	mu       sync.Mutex
	sessions map[I]*Session[I, C]
}

var _ http.Handler = &Server[string, any]{}

// NewServer creates a server driven by the given handler.
func NewServer[I comparable, C any](handler ServerHandler[I, C], config ServerConfig) *Server[I, C] {
	return &Server[I, C]{
		handler:  handler,
		config:   config,
		log:      loggerOrNop(config.Logger),
		sessions: map[I]*Session[I, C]{},
	}
}

// ServeHTTP upgrades the request to a WebSocket connection and runs a
// session over it, blocking until the session ends. Implements
// http.Handler.
func (s *Server[I, C]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	origins := s.config.OriginPatterns
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: origins,
	})
	if err != nil {
		s.log.Warn().Err(err).Str("remoteAddr", r.RemoteAddr).Msg("websocket accept failed")
		return
	}

	info := &ConnectionInfo{
		RemoteAddr: r.RemoteAddr,
		Headers:    r.Header,
	}
	s.Accept(context.Background(), NewWebSocket(conn, s.config.Socket), info)
}

// Accept runs a session over an already established transport, blocking
// until the session ends. This is the entry point for custom transports;
// ServeHTTP uses it for WebSocket upgrades.
func (s *Server[I, C]) Accept(ctx context.Context, socket *Socket, info *ConnectionInfo) {
	sess, err := s.handler.OnConnect(ctx, socket, info)
	if err != nil || sess == nil {
		s.log.Info().Err(err).Str("remoteAddr", info.RemoteAddr).Msg("connection rejected")
		_ = socket.Close(&CloseFrame{Code: CloseCodePolicy, Reason: "connection rejected"})
		return
	}

	if !s.register(sess) {
		s.log.Warn().Str("remoteAddr", info.RemoteAddr).Msg("session id already in use, closing connection")
		sess.Close(&CloseFrame{Code: CloseCodePolicy, Reason: "session id already in use"})
		<-sess.Done()
		return
	}
	s.log.Debug().Str("remoteAddr", info.RemoteAddr).Msg("session connected")

	<-sess.Done()

	if err := sess.Err(); err != nil {
		s.log.Warn().Err(err).Str("remoteAddr", info.RemoteAddr).Msg("session ended with error")
	}

	s.unregister(sess.ID)
	if err := s.handler.OnDisconnect(ctx, sess.ID); err != nil {
		s.log.Warn().Err(err).Msg("disconnect callback failed")
	}
}

// Session looks up a live session by identity.
func (s *Server[I, C]) Session(id I) (*Session[I, C], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// Sessions returns a snapshot of all live sessions.
func (s *Server[I, C]) Sessions() []*Session[I, C] {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := make([]*Session[I, C], 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	return sessions
}

// Shutdown closes every live session with the given frame and waits for
// them to terminate or for ctx to expire.
func (s *Server[I, C]) Shutdown(ctx context.Context, frame *CloseFrame) error {
	sessions := s.Sessions()
	for _, sess := range sessions {
		sess.Close(frame)
	}
	for _, sess := range sessions {
		select {
		case <-sess.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (s *Server[I, C]) register(sess *Session[I, C]) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[sess.ID]; exists {
		return false
	}
	s.sessions[sess.ID] = sess
	return true
}

func (s *Server[I, C]) unregister(id I) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// ListenAndServe binds addr and serves WebSocket upgrade requests with the
// server until ctx is cancelled. A bind failure is returned to the caller
// immediately.
func ListenAndServe[I comparable, C any](ctx context.Context, addr string, server *Server[I, C]) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	httpServer := &http.Server{Handler: server}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- httpServer.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
		return nil
	case err := <-serveErr:
		return err
	}
}

func loggerOrNop(logger *zerolog.Logger) zerolog.Logger {
	if logger == nil {
		return zerolog.Nop()
	}
	return *logger
}
