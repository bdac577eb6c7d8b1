package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Encoding identifies one of the two wire representations. It is fixed
// at connection-open time via subprotocol negotiation.
type Encoding uint8

const (
	// EncodingJSON is the tree-structured text representation. It is
	// the default when the client negotiates no subprotocol.
	EncodingJSON Encoding = iota

	// EncodingBinary is the compact binary representation: the opcode
	// byte followed by the payload as a tagged value.
	EncodingBinary
)

// Subprotocol names offered during the WebSocket handshake.
const (
	SubprotocolJSON   = "studiolink.json"
	SubprotocolBinary = "studiolink.binary"
)

// Subprotocols lists every subprotocol the server offers, most
// preferred first.
var Subprotocols = []string{SubprotocolJSON, SubprotocolBinary}

// EncodingFromSubprotocol maps a negotiated subprotocol to its
// encoding. An empty or unknown subprotocol falls back to JSON.
func EncodingFromSubprotocol(subprotocol string) Encoding {
	if subprotocol == SubprotocolBinary {
		return EncodingBinary
	}
	return EncodingJSON
}

// String returns the subprotocol name of the encoding.
func (e Encoding) String() string {
	if e == EncodingBinary {
		return SubprotocolBinary
	}
	return SubprotocolJSON
}

// ErrMissingOp is returned when a decoded message carries no opcode.
var ErrMissingOp = errors.New("protocol: message is missing an op")

// MarshalMessage serializes a logical message with the given encoding.
func MarshalMessage(m *Message, encoding Encoding) ([]byte, error) {
	switch encoding {
	case EncodingBinary:
		enc := NewEncoder()
		enc.WriteByte(byte(m.Op))
		encodeValue(enc, m.D)
		return enc.Bytes(), nil
	default:
		return json.Marshal(m)
	}
}

// UnmarshalMessage parses a wire message with the given encoding. The
// payload of the returned message is nil when absent, and keeps its
// decoded type otherwise so callers can distinguish a missing payload
// from a mistyped one.
func UnmarshalMessage(data []byte, encoding Encoding) (*Message, error) {
	switch encoding {
	case EncodingBinary:
		dec := NewDecoder(data)
		op, err := dec.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("protocol: decode op: %w", err)
		}
		d, err := decodeValue(dec)
		if err != nil {
			return nil, fmt.Errorf("protocol: decode payload: %w", err)
		}
		return &Message{Op: OpCode(op), D: d}, nil
	default:
		var raw struct {
			Op *uint8 `json:"op"`
			D  any    `json:"d"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("protocol: decode message: %w", err)
		}
		if raw.Op == nil {
			return nil, ErrMissingOp
		}
		return &Message{Op: OpCode(*raw.Op), D: raw.D}, nil
	}
}
