package server

import (
	"github.com/studiolink/studiolink/pkg/events"
	"github.com/studiolink/studiolink/pkg/protocol"
)

// BroadcastEvent fans an event out to every identified session whose
// subscription mask overlaps requiredIntent. A non-zero rpcVersion restricts
// delivery to sessions that negotiated that version. Delivery happens on the
// worker pool; the caller never blocks on slow sessions.
func (s *Server) BroadcastEvent(requiredIntent events.Subscription, eventType string, eventData map[string]any, rpcVersion uint8) {
	if !s.accepting.Load() {
		return
	}
	d := map[string]any{
		"eventType":   eventType,
		"eventIntent": uint64(requiredIntent),
	}
	if eventData != nil {
		d["eventData"] = eventData
	}
	msg := protocol.NewMessage(protocol.OpEvent, d)

	task := func() {
		s.broadcastEvent(requiredIntent, rpcVersion, msg)
	}
	if s.pool == nil || s.pool.Submit(task) != nil {
		go task()
	}
}

// broadcastEvent delivers msg to eligible sessions, encoding at most once
// per wire encoding regardless of session count.
func (s *Server) broadcastEvent(requiredIntent events.Subscription, rpcVersion uint8, msg *protocol.Message) {
	var encoded [2][]byte

	s.sessions.ForEach(func(session *Session) {
		if !session.IsIdentified() {
			return
		}
		if rpcVersion != 0 && session.RPCVersion() != rpcVersion {
			return
		}
		if !session.EventSubscriptions().Matches(requiredIntent) {
			return
		}

		encoding := session.Encoding()
		if encoded[encoding] == nil {
			data, err := protocol.MarshalMessage(msg, encoding)
			if err != nil {
				s.logger.Error("failed to encode event", "encoding", encoding.String(), "error", err)
				return
			}
			encoded[encoding] = data
		}

		if err := session.writeRaw(messageTypeFor(encoding), encoded[encoding]); err != nil {
			s.metrics.broadcastErrors.Inc()
			s.logger.Error("failed to send event to session",
				"remote_address", session.RemoteAddress(), "error", err)
			return
		}
		s.metrics.messagesOut.Inc()
	})

	s.metrics.eventsBroadcast.Inc()
	// High-volume intents are too chatty to log even at debug level.
	if s.config.DebugMode && requiredIntent.Matches(events.SubscriptionAll) {
		s.logger.Debug("broadcast event", "payload", msg.D)
	}
}

func (s *Server) notifyIdentified(session *Session) {
	remote := session.RemoteAddress()
	task := func() { s.notifier.Identified(remote) }
	if s.pool == nil || s.pool.Submit(task) != nil {
		go task()
	}
}

func (s *Server) notifyAuthenticationFailed(session *Session) {
	remote := session.RemoteAddress()
	task := func() { s.notifier.AuthenticationFailed(remote) }
	if s.pool == nil || s.pool.Submit(task) != nil {
		go task()
	}
}
