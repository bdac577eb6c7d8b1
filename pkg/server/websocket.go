package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/studiolink/studiolink/pkg/auth"
	"github.com/studiolink/studiolink/pkg/protocol"
)

// handleWebSocket upgrades the HTTP request and runs the session's read
// loop until the client disconnects or a protocol violation closes it.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !s.accepting.Load() {
		http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "remote_address", r.RemoteAddr, "error", err)
		return
	}

	encoding := protocol.EncodingFromSubprotocol(conn.Subprotocol())
	session := newSession(conn, encoding, r.RemoteAddr, s.config.Session, s.logger)
	if s.config.Auth.Enabled {
		session.authRequired = true
		session.secret = s.secret
		session.challenge = auth.GenerateChallenge()
	}
	if s.config.Session.MaxMessageSize > 0 {
		conn.SetReadLimit(s.config.Session.MaxMessageSize)
	}

	s.sessions.Add(session)
	s.metrics.sessionsActive.Inc()
	s.metrics.sessionsTotal.Inc()
	s.logger.Info("session connected",
		"remote_address", session.RemoteAddress(), "encoding", encoding.String())

	if err := session.WriteMessage(s.helloMessage(session)); err != nil {
		s.logger.Warn("failed to send hello", "remote_address", session.RemoteAddress(), "error", err)
		s.teardownSession(session)
		return
	}

	s.readLoop(conn, session)
}

// helloMessage builds the Op 0 greeting, including the authentication
// challenge when the session must authenticate.
func (s *Server) helloMessage(session *Session) *protocol.Message {
	d := map[string]any{
		"studiolinkVersion": s.config.Version,
		"rpcVersion":        protocol.RPCVersion,
	}
	if session.AuthRequired() {
		d["authentication"] = map[string]any{
			"challenge": session.Challenge(),
			"salt":      s.salt,
		}
	}
	return protocol.NewMessage(protocol.OpHello, d)
}

func (s *Server) readLoop(conn *websocket.Conn, session *Session) {
	defer s.teardownSession(session)

	ctx := context.Background()
	expectedType := messageTypeFor(session.Encoding())

	for {
		if s.config.Session.ReadTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(s.config.Session.ReadTimeout))
		}
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("session read error", "remote_address", session.RemoteAddress(), "error", err)
			}
			return
		}

		if messageType != expectedType {
			s.closeSession(session, protocol.CloseMessageDecodeError, "Your message type does not match the session's encoding.")
			return
		}

		msg, err := protocol.UnmarshalMessage(data, session.Encoding())
		if err != nil {
			s.closeSession(session, protocol.CloseMessageDecodeError, "Unable to decode your message.")
			return
		}

		session.incomingMessages.Add(1)
		s.metrics.messagesIn.Inc()
		if s.config.DebugMode {
			s.logger.Debug("incoming message",
				"remote_address", session.RemoteAddress(), "op", msg.Op.String())
		}

		ret := s.ProcessMessage(ctx, session, msg)
		if ret.shouldClose() {
			s.closeSession(session, ret.CloseCode, ret.CloseReason)
			return
		}
		if ret.Result != nil {
			if err := session.WriteMessage(ret.Result); err != nil {
				s.logger.Warn("failed to send reply",
					"remote_address", session.RemoteAddress(), "error", err)
				return
			}
			s.metrics.messagesOut.Inc()
		}
	}
}

// closeSession sends a close frame with the protocol close code, then tears
// the connection down.
func (s *Server) closeSession(session *Session, code protocol.CloseCode, reason string) {
	s.logger.Info("closing session",
		"remote_address", session.RemoteAddress(), "code", code.String(), "reason", reason)
	s.metrics.sessionCloses.WithLabelValues(code.String()).Inc()
	if err := session.writeClose(code, reason); err != nil {
		s.logger.Debug("failed to send close frame",
			"remote_address", session.RemoteAddress(), "error", err)
	}
	_ = session.Close()
}

// teardownSession removes the session from the registry and releases its
// event subscriptions.
func (s *Server) teardownSession(session *Session) {
	s.sessions.Remove(session)
	s.metrics.sessionsActive.Dec()
	if session.IsIdentified() {
		session.setIdentified(false)
		s.subscriptions.Unsubscribe(session.EventSubscriptions())
	}
	_ = session.Close()
	s.logger.Info("session disconnected", "remote_address", session.RemoteAddress())
}
