package protocol

// Message is the logical wire envelope. D is the opcode-specific
// payload: a map[string]any for every message the server produces, and
// whatever the client actually sent (possibly nil or a non-object) for
// inbound traffic, so that validation can distinguish a missing payload
// from a mistyped one.
type Message struct {
	Op OpCode `json:"op"`
	D  any    `json:"d"`
}

// NewMessage builds an envelope with a map payload.
func NewMessage(op OpCode, d map[string]any) *Message {
	return &Message{Op: op, D: d}
}

// Data returns the payload as an object, or nil if the payload is
// absent or not an object.
func (m *Message) Data() map[string]any {
	d, _ := m.D.(map[string]any)
	return d
}

// AsBool coerces a decoded payload value to a bool. The second return
// value is false when the value has any other type.
func AsBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

// AsString coerces a decoded payload value to a string.
func AsString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// AsUint coerces a decoded payload value to a non-negative integer.
// JSON decoding produces float64; the binary decoding produces int64 or
// uint64. Fractional or negative numbers are rejected.
func AsUint(v any) (uint64, bool) {
	switch n := v.(type) {
	case float64:
		if n < 0 || n != float64(uint64(n)) {
			return 0, false
		}
		return uint64(n), true
	case int64:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	case uint64:
		return n, true
	case int:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	default:
		return 0, false
	}
}

// AsObject coerces a decoded payload value to an object.
func AsObject(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

// AsArray coerces a decoded payload value to an array.
func AsArray(v any) ([]any, bool) {
	a, ok := v.([]any)
	return a, ok
}
