package socketry_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/RobertWHurst/socketry"
)

type recordingSession struct {
	socketry.UnimplementedSession[string]

	mu       sync.Mutex
	texts    []string
	calls    []string
	onText   func(text string) error
	received chan struct{}
}

func newRecordingSession() *recordingSession {
	return &recordingSession{received: make(chan struct{}, 1024)}
}

func (s *recordingSession) OnText(ctx context.Context, text string) error {
	if s.onText != nil {
		if err := s.onText(text); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.texts = append(s.texts, text)
	s.mu.Unlock()
	s.received <- struct{}{}
	return nil
}

func (s *recordingSession) OnCall(ctx context.Context, call string) error {
	s.mu.Lock()
	s.calls = append(s.calls, call)
	s.mu.Unlock()
	s.received <- struct{}{}
	return nil
}

func (s *recordingSession) recordedTexts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.texts...)
}

func (s *recordingSession) recordedCalls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.calls...)
}

func startRecordingSession(t *testing.T) (*socketry.Session[int, string], *recordingSession, *pipeConn) {
	t.Helper()

	local, remote := newConnPipe()
	handler := newRecordingSession()
	sess := socketry.NewSession(context.Background(), 1, socketry.NewSocket(local, noHeartbeat),
		func(*socketry.Session[int, string]) socketry.SessionHandler[string] {
			return handler
		})
	return sess, handler, remote
}

func TestSessionDeliversInboundInOrder(t *testing.T) {
	sess, handler, remote := startRecordingSession(t)

	ctx := context.Background()
	const count = 50
	for i := 0; i < count; i++ {
		if err := remote.Send(ctx, socketry.NewTextMessage(fmt.Sprintf("message %d", i))); err != nil {
			t.Fatalf("send %d failed: %v", i, err)
		}
	}
	if err := remote.Close(&socketry.CloseFrame{Code: socketry.CloseCodeNormal}); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	waitDone(t, sess)

	texts := handler.recordedTexts()
	if len(texts) != count {
		t.Fatalf("expected %d messages, got %d", count, len(texts))
	}
	for i, text := range texts {
		if expected := fmt.Sprintf("message %d", i); text != expected {
			t.Errorf("message %d: expected %q, got %q", i, expected, text)
		}
	}
}

func TestSessionHandleOpsDeliveredInOrder(t *testing.T) {
	sess, handler, remote := startRecordingSession(t)

	// Hold the session busy in a callback so every handle operation is
	// queued before the actor drains any of them.
	release := make(chan struct{})
	entered := make(chan struct{})
	var once sync.Once
	handler.onText = func(string) error {
		once.Do(func() { close(entered) })
		<-release
		return nil
	}

	ctx := context.Background()
	if err := remote.Send(ctx, socketry.NewTextMessage("block")); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	<-entered

	const count = 20
	for i := 0; i < count; i++ {
		sess.Text(fmt.Sprintf("outbound %d", i))
	}
	close(release)

	for i := 0; i < count; i++ {
		msg := readFromPipe(t, remote)
		if msg.Type != socketry.TextMessage {
			t.Fatalf("expected text message, got %v", msg.Type)
		}
		if expected := fmt.Sprintf("outbound %d", i); msg.Text() != expected {
			t.Errorf("message %d: expected %q, got %q", i, expected, msg.Text())
		}
	}

	sess.Close(nil)
	waitDone(t, sess)
}

func TestSessionCall(t *testing.T) {
	sess, handler, _ := startRecordingSession(t)

	sess.Call("call one")
	sess.Call("call two")

	for i := 0; i < 2; i++ {
		select {
		case <-handler.received:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for call delivery")
		}
	}

	calls := handler.recordedCalls()
	if len(calls) != 2 || calls[0] != "call one" || calls[1] != "call two" {
		t.Errorf("expected calls in order, got %v", calls)
	}

	sess.Close(nil)
	waitDone(t, sess)
}

type question struct {
	text  string
	reply chan string
}

type questionSession struct {
	socketry.UnimplementedSession[question]
}

func (s *questionSession) OnCall(ctx context.Context, q question) error {
	q.reply <- "answer to " + q.text
	return nil
}

func TestSessionCallWithReplyChannel(t *testing.T) {
	local, _ := newConnPipe()
	sess := socketry.NewSession(context.Background(), 1, socketry.NewSocket(local, noHeartbeat),
		func(*socketry.Session[int, question]) socketry.SessionHandler[question] {
			return &questionSession{}
		})

	q := question{text: "ping", reply: make(chan string, 1)}
	sess.Call(q)

	select {
	case answer := <-q.reply:
		if answer != "answer to ping" {
			t.Errorf("expected 'answer to ping', got %q", answer)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reply")
	}

	sess.Close(nil)
	waitDone(t, sess)
}

func TestSessionCloseFrameReachesPeer(t *testing.T) {
	sess, _, remote := startRecordingSession(t)

	sess.Close(&socketry.CloseFrame{Code: socketry.CloseCodeNormal, Reason: "bye"})
	waitDone(t, sess)

	msg := readFromPipe(t, remote)
	if msg.Type != socketry.CloseMessage {
		t.Fatalf("expected close message, got %v", msg.Type)
	}
	if msg.Frame == nil {
		t.Fatal("expected close frame")
	}
	if msg.Frame.Code != socketry.CloseCodeNormal || msg.Frame.Reason != "bye" {
		t.Errorf("expected code 1000 reason 'bye', got %d %q", uint16(msg.Frame.Code), msg.Frame.Reason)
	}
	if err := sess.Err(); err != nil {
		t.Errorf("expected graceful termination, got %v", err)
	}
}

func TestSessionAutoPong(t *testing.T) {
	sess, _, remote := startRecordingSession(t)

	ctx := context.Background()
	if err := remote.Send(ctx, socketry.NewPingMessage([]byte("probe"))); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	msg := readFromPipe(t, remote)
	if msg.Type != socketry.PongMessage {
		t.Fatalf("expected pong, got %v", msg.Type)
	}
	if string(msg.Data) != "probe" {
		t.Errorf("expected pong to echo payload, got %q", msg.Data)
	}

	sess.Close(nil)
	waitDone(t, sess)
}

func TestSessionCallbackErrorTerminatesSession(t *testing.T) {
	sess, handler, remote := startRecordingSession(t)
	handler.onText = func(text string) error {
		if text == "boom" {
			return errors.New("boom")
		}
		return nil
	}

	ctx := context.Background()
	if err := remote.Send(ctx, socketry.NewTextMessage("fine")); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if err := remote.Send(ctx, socketry.NewTextMessage("boom")); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	waitDone(t, sess)

	var callbackErr *socketry.CallbackError
	if err := sess.Err(); !errors.As(err, &callbackErr) {
		t.Fatalf("expected CallbackError, got %v", err)
	}
	if texts := handler.recordedTexts(); len(texts) != 1 || texts[0] != "fine" {
		t.Errorf("expected only the first message to be recorded, got %v", texts)
	}
}

func TestSessionCallbackPanicBecomesError(t *testing.T) {
	sess, handler, remote := startRecordingSession(t)
	handler.onText = func(text string) error {
		panic("handler exploded")
	}

	ctx := context.Background()
	if err := remote.Send(ctx, socketry.NewTextMessage("anything")); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	waitDone(t, sess)

	var callbackErr *socketry.CallbackError
	if err := sess.Err(); !errors.As(err, &callbackErr) {
		t.Fatalf("expected CallbackError, got %v", err)
	}
}

func TestSessionUnimplementedBinary(t *testing.T) {
	sess, _, remote := startRecordingSession(t)

	ctx := context.Background()
	if err := remote.Send(ctx, socketry.NewBinaryMessage([]byte{1})); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	waitDone(t, sess)

	if err := sess.Err(); !errors.Is(err, socketry.ErrNotImplemented) {
		t.Errorf("expected ErrNotImplemented, got %v", err)
	}
}

func TestSessionHandleAfterTermination(t *testing.T) {
	sess, handler, remote := startRecordingSession(t)

	sess.Close(nil)
	waitDone(t, sess)

	// None of these may fail or panic; they are silently discarded.
	sess.Text("too late")
	sess.Binary([]byte("too late"))
	sess.Call("too late")
	sess.Close(&socketry.CloseFrame{Code: socketry.CloseCodeAgain})

	time.Sleep(50 * time.Millisecond)
	if calls := handler.recordedCalls(); len(calls) != 0 {
		t.Errorf("expected no calls after termination, got %v", calls)
	}
	_ = remote
}
