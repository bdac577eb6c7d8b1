package server

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/studiolink/studiolink/pkg/events"
	"github.com/studiolink/studiolink/pkg/protocol"
)

// messageWriter is the slice of *websocket.Conn the session writes through.
type messageWriter interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type deadlineWriter interface {
	SetWriteDeadline(t time.Time) error
}

// Session is one client connection and its negotiated protocol state.
type Session struct {
	conn          messageWriter
	encoding      protocol.Encoding
	remoteAddress string
	config        *SessionConfig
	logger        *slog.Logger

	// opMu serializes Identify and Reidentify so concurrent attempts
	// cannot interleave subscription accounting.
	opMu sync.Mutex

	// writeMu serializes frame writes; broadcasts and replies share the
	// connection.
	writeMu sync.Mutex

	mu                    sync.Mutex
	identified            bool
	rpcVersion            uint8
	eventSubscriptions    events.Subscription
	ignoreInvalidMessages bool

	authRequired bool
	secret       string
	challenge    string

	closed atomic.Bool

	incomingMessages atomic.Uint64
	outgoingMessages atomic.Uint64

	connectedAt time.Time
}

func newSession(conn messageWriter, encoding protocol.Encoding, remoteAddress string, config *SessionConfig, logger *slog.Logger) *Session {
	if config == nil {
		config = DefaultSessionConfig()
	}
	return &Session{
		conn:          conn,
		encoding:      encoding,
		remoteAddress: remoteAddress,
		config:        config,
		logger:        logger,
		connectedAt:   time.Now(),
	}
}

// Encoding returns the message encoding negotiated at upgrade time.
func (s *Session) Encoding() protocol.Encoding {
	return s.encoding
}

// RemoteAddress returns the client's network address.
func (s *Session) RemoteAddress() string {
	return s.remoteAddress
}

// IsIdentified reports whether the session has completed identification.
func (s *Session) IsIdentified() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identified
}

func (s *Session) setIdentified(identified bool) {
	s.mu.Lock()
	s.identified = identified
	s.mu.Unlock()
}

// RPCVersion returns the negotiated RPC version, zero before identification.
func (s *Session) RPCVersion() uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rpcVersion
}

func (s *Session) setRPCVersion(version uint8) {
	s.mu.Lock()
	s.rpcVersion = version
	s.mu.Unlock()
}

// EventSubscriptions returns the session's current subscription mask.
func (s *Session) EventSubscriptions() events.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eventSubscriptions
}

func (s *Session) setEventSubscriptions(subscriptions events.Subscription) {
	s.mu.Lock()
	s.eventSubscriptions = subscriptions
	s.mu.Unlock()
}

// IgnoreInvalidMessages reports whether protocol validation failures on
// identified traffic drop the message instead of closing the session.
func (s *Session) IgnoreInvalidMessages() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ignoreInvalidMessages
}

func (s *Session) setIgnoreInvalidMessages(ignore bool) {
	s.mu.Lock()
	s.ignoreInvalidMessages = ignore
	s.mu.Unlock()
}

// AuthRequired reports whether the session must authenticate to identify.
func (s *Session) AuthRequired() bool {
	return s.authRequired
}

// Challenge returns the per-session authentication challenge.
func (s *Session) Challenge() string {
	return s.challenge
}

// ConnectedAt returns when the connection was accepted.
func (s *Session) ConnectedAt() time.Time {
	return s.connectedAt
}

// MessageCounts returns the number of messages received from and sent to
// this session.
func (s *Session) MessageCounts() (incoming, outgoing uint64) {
	return s.incomingMessages.Load(), s.outgoingMessages.Load()
}

// WriteMessage encodes msg with the session's encoding and writes it.
func (s *Session) WriteMessage(msg *protocol.Message) error {
	data, err := protocol.MarshalMessage(msg, s.encoding)
	if err != nil {
		return err
	}
	return s.writeRaw(messageTypeFor(s.encoding), data)
}

// writeRaw writes a pre-encoded frame. Broadcast fanout uses this to share
// one encoded payload across sessions.
func (s *Session) writeRaw(messageType int, data []byte) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if dw, ok := s.conn.(deadlineWriter); ok && s.config.WriteTimeout > 0 {
		_ = dw.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	}
	if err := s.conn.WriteMessage(messageType, data); err != nil {
		return err
	}
	s.outgoingMessages.Add(1)
	return nil
}

// writeClose sends a close control frame with the given code and reason.
func (s *Session) writeClose(code protocol.CloseCode, reason string) error {
	frame := websocket.FormatCloseMessage(int(code), reason)
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if dw, ok := s.conn.(deadlineWriter); ok {
		_ = dw.SetWriteDeadline(time.Now().Add(time.Second))
	}
	return s.conn.WriteMessage(websocket.CloseMessage, frame)
}

// Close tears down the connection. Safe to call more than once.
func (s *Session) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.conn.Close()
}

func messageTypeFor(encoding protocol.Encoding) int {
	if encoding == protocol.EncodingBinary {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}
