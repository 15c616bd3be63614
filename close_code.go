package socketry

import "fmt"

// CloseCode is a registered WebSocket close status as defined in RFC 6455.
// Only the thirteen codes below are part of the model; arbitrary or
// application-defined codes are rejected by CloseCodeFromWire.
type CloseCode uint16

const (
	// CloseCodeNormal indicates a normal closure, meaning the purpose for
	// which the connection was established has been fulfilled.
	CloseCodeNormal CloseCode = 1000

	// CloseCodeAway indicates an endpoint is going away, such as a server
	// shutting down or a browser navigating away from a page.
	CloseCodeAway CloseCode = 1001

	// CloseCodeProtocol indicates termination due to a protocol error.
	CloseCodeProtocol CloseCode = 1002

	// CloseCodeUnsupported indicates the endpoint received a type of data it
	// cannot accept, for example binary data on a text-only endpoint.
	CloseCodeUnsupported CloseCode = 1003

	// CloseCodeStatus indicates no status code was present in the close
	// frame received from the peer.
	CloseCodeStatus CloseCode = 1005

	// CloseCodeAbnormal indicates the connection was dropped without a close
	// frame being sent or received.
	CloseCodeAbnormal CloseCode = 1006

	// CloseCodeInvalid indicates the endpoint received data inconsistent
	// with the message type, such as non-UTF-8 data in a text message.
	CloseCodeInvalid CloseCode = 1007

	// CloseCodePolicy indicates the endpoint received a message violating
	// its policy. A generic code for when no more specific one applies.
	CloseCodePolicy CloseCode = 1008

	// CloseCodeSize indicates the endpoint received a message too big for it
	// to process.
	CloseCodeSize CloseCode = 1009

	// CloseCodeExtension indicates the client expected the server to
	// negotiate one or more extensions the server did not return.
	CloseCodeExtension CloseCode = 1010

	// CloseCodeError indicates the server encountered an unexpected
	// condition preventing it from fulfilling the request.
	CloseCodeError CloseCode = 1011

	// CloseCodeRestart indicates the server is restarting and the client may
	// reconnect after a delay.
	CloseCodeRestart CloseCode = 1012

	// CloseCodeAgain indicates the server is overloaded and the client
	// should back off or try a different endpoint.
	CloseCodeAgain CloseCode = 1013
)

// UnsupportedCloseCodeError is returned by CloseCodeFromWire when a wire value
// is not one of the registered close codes. The error value is the offending
// wire code.
type UnsupportedCloseCodeError uint16

func (e UnsupportedCloseCodeError) Error() string {
	return fmt.Sprintf("unsupported close code: %d", uint16(e))
}

// Code returns the wire value that failed to convert.
func (e UnsupportedCloseCodeError) Code() uint16 {
	return uint16(e)
}

// CloseCodeFromWire converts a 16-bit wire value into a CloseCode. It fails
// with an UnsupportedCloseCodeError carrying the original value when the
// input is not one of the thirteen registered codes.
func CloseCodeFromWire(code uint16) (CloseCode, error) {
	switch c := CloseCode(code); c {
	case CloseCodeNormal,
		CloseCodeAway,
		CloseCodeProtocol,
		CloseCodeUnsupported,
		CloseCodeStatus,
		CloseCodeAbnormal,
		CloseCodeInvalid,
		CloseCodePolicy,
		CloseCodeSize,
		CloseCodeExtension,
		CloseCodeError,
		CloseCodeRestart,
		CloseCodeAgain:
		return c, nil
	}
	return 0, UnsupportedCloseCodeError(code)
}

func (c CloseCode) String() string {
	switch c {
	case CloseCodeNormal:
		return "normal"
	case CloseCodeAway:
		return "away"
	case CloseCodeProtocol:
		return "protocol"
	case CloseCodeUnsupported:
		return "unsupported"
	case CloseCodeStatus:
		return "status"
	case CloseCodeAbnormal:
		return "abnormal"
	case CloseCodeInvalid:
		return "invalid"
	case CloseCodePolicy:
		return "policy"
	case CloseCodeSize:
		return "size"
	case CloseCodeExtension:
		return "extension"
	case CloseCodeError:
		return "error"
	case CloseCodeRestart:
		return "restart"
	case CloseCodeAgain:
		return "again"
	}
	return fmt.Sprintf("close code %d", uint16(c))
}

// CloseFrame describes why a connection is closing. It is constructed by the
// closing party, carried in a close message, and consumed by the receiving
// side's close handling.
type CloseFrame struct {
	Code   CloseCode
	Reason string
}
