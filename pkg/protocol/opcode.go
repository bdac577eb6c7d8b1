package protocol

// OpCode identifies a message's role in the protocol.
type OpCode uint8

// Protocol opcodes. The numeric values are part of the wire contract
// and must never be renumbered.
const (
	OpHello                OpCode = 0
	OpIdentify             OpCode = 1
	OpIdentified           OpCode = 2
	OpReidentify           OpCode = 3
	OpEvent                OpCode = 5
	OpRequest              OpCode = 6
	OpRequestResponse      OpCode = 7
	OpRequestBatch         OpCode = 8
	OpRequestBatchResponse OpCode = 9
)

// String returns the symbolic name of the opcode.
func (op OpCode) String() string {
	switch op {
	case OpHello:
		return "Hello"
	case OpIdentify:
		return "Identify"
	case OpIdentified:
		return "Identified"
	case OpReidentify:
		return "Reidentify"
	case OpEvent:
		return "Event"
	case OpRequest:
		return "Request"
	case OpRequestResponse:
		return "RequestResponse"
	case OpRequestBatch:
		return "RequestBatch"
	case OpRequestBatchResponse:
		return "RequestBatchResponse"
	default:
		return "Unknown"
	}
}

// RPCVersion is the current protocol revision. Clients negotiate a
// version at Identify time; the negotiated version is fixed for the
// lifetime of the connection.
const RPCVersion uint8 = 1

// IsSupportedRpcVersion reports whether the server speaks the requested
// RPC version.
func IsSupportedRpcVersion(requested uint8) bool {
	return requested == RPCVersion
}
