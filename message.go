package socketry

// MessageType identifies which variant of a Message is active. Exactly one
// variant is active per message.
type MessageType int

const (
	// TextMessage carries UTF-8 text in Data.
	TextMessage MessageType = iota + 1

	// BinaryMessage carries an opaque byte payload in Data.
	BinaryMessage

	// PingMessage is a keepalive probe. Transports that manage their own
	// ping/pong exchange may absorb these instead of surfacing them.
	PingMessage

	// PongMessage answers a ping, echoing its payload.
	PongMessage

	// CloseMessage signals the end of the connection. It optionally carries
	// a CloseFrame describing why the connection is closing.
	CloseMessage
)

func (t MessageType) String() string {
	switch t {
	case TextMessage:
		return "text"
	case BinaryMessage:
		return "binary"
	case PingMessage:
		return "ping"
	case PongMessage:
		return "pong"
	case CloseMessage:
		return "close"
	}
	return "unknown"
}

// Message is the unit of exchange between a session and its transport. Inbound
// messages are produced by decoding transport frames; outbound messages are
// constructed by user code and encoded by the transport adapter.
//
// Frame is only set for CloseMessage, and Data is unused for CloseMessage.
type Message struct {
	Type  MessageType
	Data  []byte
	Frame *CloseFrame
}

// NewTextMessage creates a text message from a string.
func NewTextMessage(text string) Message {
	return Message{Type: TextMessage, Data: []byte(text)}
}

// NewBinaryMessage creates a binary message from a byte slice. The slice is
// not copied; the caller must not mutate it after handing it off.
func NewBinaryMessage(data []byte) Message {
	return Message{Type: BinaryMessage, Data: data}
}

// NewPingMessage creates a ping message with an optional payload.
func NewPingMessage(data []byte) Message {
	return Message{Type: PingMessage, Data: data}
}

// NewPongMessage creates a pong message echoing the given ping payload.
func NewPongMessage(data []byte) Message {
	return Message{Type: PongMessage, Data: data}
}

// NewCloseMessage creates a close message. The frame may be nil when the
// closing party has no status to report.
func NewCloseMessage(frame *CloseFrame) Message {
	return Message{Type: CloseMessage, Frame: frame}
}

// Text returns the payload as a string. Only meaningful for text messages.
func (m Message) Text() string {
	return string(m.Data)
}
