package socketry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultBackoff is the reconnect policy used when ClientConfig.Backoff is
// nil.
var DefaultBackoff Backoff = ExponentialBackoff{
	Base: 500 * time.Millisecond,
	Max:  30 * time.Second,
}

// ClientConfig carries the settings for an outbound connection.
type ClientConfig struct {
	// URL is the ws:// or wss:// endpoint to connect to.
	URL string

	// Header is attached to the WebSocket handshake request.
	Header http.Header

	// Socket is applied to each established connection.
	Socket SocketConfig

	// Backoff paces dial retries and reconnect attempts. Nil selects
	// DefaultBackoff.
	Backoff Backoff

	// DisableReconnect makes any connection loss terminal: the initial
	// dial is attempted once and a dropped connection is not
	// re-established.
	DisableReconnect bool

	// Logger receives dial and reconnect events. Nil discards them.
	Logger *zerolog.Logger
}

func (c ClientConfig) validate() error {
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("parse url %q: %w", c.URL, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("unsupported url scheme %q: must be ws or wss", u.Scheme)
	}
	return nil
}

// Connect establishes an outbound connection and runs a session over it. The
// bind function receives the session handle, which stays valid for the whole
// life of the client: if the connection drops for a reason other than a
// graceful close, the client re-dials under the configured backoff and
// attaches a fresh connection to the same handle, preserving its identity
// and any queued operations.
//
// Connect returns the session handle and a termination channel that yields
// the client's final error (nil after a graceful close) once it will never
// reconnect again. The initial dial is retried under the same backoff;
// exhausting it surfaces the dial error here instead.
func Connect[C any](ctx context.Context, bind func(*Session[string, C]) SessionHandler[C], config ClientConfig) (*Session[string, C], <-chan error, error) {
	if err := config.validate(); err != nil {
		return nil, nil, err
	}
	log := loggerOrNop(config.Logger)

	sess := newSessionHandle[string, C](uuid.NewString())
	handler := bind(sess)

	socket, err := dialWithBackoff(ctx, config, log)
	if err != nil {
		sess.terminate(err)
		return nil, nil, err
	}

	termination := make(chan error, 1)
	go func() {
		err := runClient(ctx, sess, socket, handler, config, log)
		sess.terminate(err)
		termination <- err
		close(termination)
	}()

	return sess, termination, nil
}

// runClient runs sessions over successive connections until one ends
// terminally: a graceful close on either side, a callback failure,
// cancellation, or backoff exhaustion.
func runClient[C any](ctx context.Context, sess *Session[string, C], socket *Socket, handler SessionHandler[C], config ClientConfig, log zerolog.Logger) error {
	for {
		err := runSession(ctx, sess, socket, handler)
		if err == nil {
			return nil
		}

		var callbackErr *CallbackError
		if errors.As(err, &callbackErr) {
			return err
		}
		if ctx.Err() != nil || config.DisableReconnect {
			return err
		}

		log.Warn().Err(err).Msg("connection lost, reconnecting")
		socket, err = dialWithBackoff(ctx, config, log)
		if err != nil {
			return err
		}
	}
}

func dialWithBackoff(ctx context.Context, config ClientConfig, log zerolog.Logger) (*Socket, error) {
	backoff := config.Backoff
	if backoff == nil {
		backoff = DefaultBackoff
	}

	for attempt := 1; ; attempt++ {
		conn, _, err := websocket.Dial(ctx, config.URL, &websocket.DialOptions{
			HTTPHeader: config.Header,
		})
		if err == nil {
			return NewWebSocket(conn, config.Socket), nil
		}
		if config.DisableReconnect {
			return nil, fmt.Errorf("dial %s: %w", config.URL, err)
		}

		delay, retry := backoff.Delay(attempt)
		if !retry {
			return nil, fmt.Errorf("dial %s: %w", config.URL, err)
		}
		log.Warn().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("dial failed, retrying")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
