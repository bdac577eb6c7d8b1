// Package request implements the request handler collaborator: the
// catalogue of RPC requests the protocol engine can delegate to, and
// the per-session handler that validates and executes them.
package request

import (
	"fmt"

	"github.com/studiolink/studiolink/pkg/events"
	"github.com/studiolink/studiolink/pkg/protocol"
)

// Request is a single RPC request as extracted from the wire.
type Request struct {
	Type string
	Data map[string]any
}

// Result is the outcome of processing one request. A non-success
// status is reported in-band; it never closes the connection.
type Result struct {
	StatusCode   protocol.RequestStatus
	Comment      string
	ResponseData map[string]any
}

// Success builds a successful result with optional response data.
func Success(responseData map[string]any) Result {
	return Result{
		StatusCode:   protocol.RequestStatusSuccess,
		ResponseData: responseData,
	}
}

// Error builds a failed result with a formatted comment.
func Error(code protocol.RequestStatus, format string, args ...any) Result {
	return Result{
		StatusCode: code,
		Comment:    fmt.Sprintf(format, args...),
	}
}

// Session is the view of the calling session a request handler may
// read. Handlers never mutate session protocol state.
type Session interface {
	RPCVersion() uint8
	EventSubscriptions() events.Subscription
	RemoteAddress() string
}

// Host is the surface of the server a request implementation may use.
type Host interface {
	events.Broadcaster

	// Version is the host application version string.
	Version() string

	// SessionCount is the number of live connections.
	SessionCount() int

	// MessageStats returns the total incoming and outgoing message
	// counts across all sessions.
	MessageStats() (incoming, outgoing uint64)
}
