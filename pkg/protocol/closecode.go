package protocol

// CloseCode is a WebSocket close code produced by the protocol engine.
// Values above 4000 are application-defined per RFC 6455 and are part
// of the wire contract.
type CloseCode uint16

const (
	// CloseDontClose is the zero value: the connection stays open.
	CloseDontClose CloseCode = 0

	// CloseUnknownReason covers internal errors with no better code.
	CloseUnknownReason CloseCode = 4000

	// CloseMessageDecodeError means the payload could not be decoded
	// with the connection's negotiated encoding.
	CloseMessageDecodeError CloseCode = 4002

	// CloseMissingDataKey means a required payload field was absent.
	CloseMissingDataKey CloseCode = 4003

	// CloseInvalidDataKeyType means a payload field had the wrong type.
	CloseInvalidDataKeyType CloseCode = 4004

	// CloseInvalidDataKeyValue means a payload field had an
	// unrecognized value.
	CloseInvalidDataKeyValue CloseCode = 4005

	// CloseUnknownOpCode means the message's opcode is not one the
	// server understands.
	CloseUnknownOpCode CloseCode = 4006

	// CloseNotIdentified means a non-Identify message arrived before
	// the session identified.
	CloseNotIdentified CloseCode = 4007

	// CloseAlreadyIdentified means an Identify arrived on an already
	// identified session.
	CloseAlreadyIdentified CloseCode = 4008

	// CloseAuthenticationFailed means the authentication proof was
	// missing or wrong.
	CloseAuthenticationFailed CloseCode = 4009

	// CloseUnsupportedRpcVersion means the client requested an RPC
	// version the server does not speak.
	CloseUnsupportedRpcVersion CloseCode = 4010

	// CloseSessionInvalidated means the server revoked the session,
	// for example because authentication parameters changed.
	CloseSessionInvalidated CloseCode = 4011

	// CloseUnsupportedFeature means the request needs a capability the
	// server cannot provide.
	CloseUnsupportedFeature CloseCode = 4012
)

// String returns the symbolic name of the close code.
func (c CloseCode) String() string {
	switch c {
	case CloseDontClose:
		return "DontClose"
	case CloseUnknownReason:
		return "UnknownReason"
	case CloseMessageDecodeError:
		return "MessageDecodeError"
	case CloseMissingDataKey:
		return "MissingDataKey"
	case CloseInvalidDataKeyType:
		return "InvalidDataKeyType"
	case CloseInvalidDataKeyValue:
		return "InvalidDataKeyValue"
	case CloseUnknownOpCode:
		return "UnknownOpCode"
	case CloseNotIdentified:
		return "NotIdentified"
	case CloseAlreadyIdentified:
		return "AlreadyIdentified"
	case CloseAuthenticationFailed:
		return "AuthenticationFailed"
	case CloseUnsupportedRpcVersion:
		return "UnsupportedRpcVersion"
	case CloseSessionInvalidated:
		return "SessionInvalidated"
	case CloseUnsupportedFeature:
		return "UnsupportedFeature"
	default:
		return "Unknown"
	}
}

// Error is a protocol-level validation failure carrying the close code
// and human-readable reason that should terminate the connection.
type Error struct {
	Code   CloseCode
	Reason string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return "protocol: " + e.Code.String() + ": " + e.Reason
}

// NewError creates a protocol error with the given close code.
func NewError(code CloseCode, reason string) *Error {
	return &Error{Code: code, Reason: reason}
}
