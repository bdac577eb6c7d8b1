// Package protocol defines the StudioLink wire protocol: opcodes, close
// codes, request status codes, batch execution types, the message
// envelope, and the two wire encodings (JSON and a compact binary form).
//
// Every message is a logical envelope {op, d} where op identifies the
// message's role and d carries the opcode-specific payload. Both
// encodings serialize the identical logical message; which one a
// connection uses is negotiated once via the WebSocket subprotocol and
// never changes for the lifetime of the connection.
package protocol
