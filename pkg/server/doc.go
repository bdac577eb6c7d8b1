// Package server implements the studiolink control-plane server: the
// WebSocket transport, the per-session identify state machine, opcode
// dispatch, request batch execution and event broadcast fanout.
package server
