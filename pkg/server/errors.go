package server

import "errors"

var (
	// ErrSessionClosed is returned when writing to a session whose
	// connection has already been torn down.
	ErrSessionClosed = errors.New("server: session closed")

	// ErrServerClosed is returned by Start after Shutdown has been called.
	ErrServerClosed = errors.New("server: closed")
)
