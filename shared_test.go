package socketry_test

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/RobertWHurst/socketry"
)

// pipeConn is one end of a pair of in-memory SocketConnections joined back
// to back, used to exercise sessions without a network. Closing either end
// delivers the close frame to the peer and then ends both directions.
type pipeConn struct {
	p   *pipeState
	in  chan socketry.Message
	out chan socketry.Message
}

type pipeState struct {
	closeOnce sync.Once
	closed    chan struct{}
}

func newConnPipe() (*pipeConn, *pipeConn) {
	state := &pipeState{closed: make(chan struct{})}
	aToB := make(chan socketry.Message, 256)
	bToA := make(chan socketry.Message, 256)

	a := &pipeConn{p: state, in: bToA, out: aToB}
	b := &pipeConn{p: state, in: aToB, out: bToA}
	return a, b
}

func (c *pipeConn) Next(ctx context.Context) (socketry.Message, error) {
	select {
	case msg := <-c.in:
		return msg, nil
	case <-c.p.closed:
		select {
		case msg := <-c.in:
			return msg, nil
		default:
		}
		return socketry.Message{}, io.EOF
	case <-ctx.Done():
		return socketry.Message{}, ctx.Err()
	}
}

func (c *pipeConn) Send(ctx context.Context, msg socketry.Message) error {
	select {
	case <-c.p.closed:
		return io.ErrClosedPipe
	default:
	}

	select {
	case c.out <- msg:
		return nil
	case <-c.p.closed:
		return io.ErrClosedPipe
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *pipeConn) Close(frame *socketry.CloseFrame) error {
	c.p.closeOnce.Do(func() {
		if frame != nil {
			select {
			case c.out <- socketry.NewCloseMessage(frame):
			default:
			}
		}
		close(c.p.closed)
	})
	return nil
}

// noHeartbeat keeps session tests deterministic.
var noHeartbeat = socketry.SocketConfig{Heartbeat: -1}

func waitDone[I comparable, C any](t *testing.T, sess *socketry.Session[I, C]) {
	t.Helper()
	select {
	case <-sess.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for session to terminate")
	}
}

// readFromPipe reads the next message from a raw pipe end, failing the test
// on timeout.
func readFromPipe(t *testing.T, conn *pipeConn) socketry.Message {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	msg, err := conn.Next(ctx)
	if err != nil {
		t.Fatalf("reading from pipe: %v", err)
	}
	return msg
}
