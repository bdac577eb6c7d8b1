package server

import (
	"sync"
	"sync/atomic"
)

// SessionManager tracks the set of live sessions and aggregates their
// message counters, including counters from sessions that have since
// disconnected.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[*Session]struct{}

	closedIncoming atomic.Uint64
	closedOutgoing atomic.Uint64
}

// NewSessionManager returns an empty manager.
func NewSessionManager() *SessionManager {
	return &SessionManager{
		sessions: make(map[*Session]struct{}),
	}
}

// Add registers a session.
func (m *SessionManager) Add(s *Session) {
	m.mu.Lock()
	m.sessions[s] = struct{}{}
	m.mu.Unlock()
}

// Remove deregisters a session and folds its counters into the totals.
func (m *SessionManager) Remove(s *Session) {
	m.mu.Lock()
	_, ok := m.sessions[s]
	delete(m.sessions, s)
	m.mu.Unlock()
	if ok {
		in, out := s.MessageCounts()
		m.closedIncoming.Add(in)
		m.closedOutgoing.Add(out)
	}
}

// Count returns the number of live sessions.
func (m *SessionManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// ForEach calls fn for every live session while holding the manager lock.
// Sessions cannot join or leave mid-iteration, so a broadcast observes a
// consistent snapshot.
func (m *SessionManager) ForEach(fn func(s *Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for s := range m.sessions {
		fn(s)
	}
}

// MessageStats returns the cumulative incoming and outgoing message counts
// across all sessions, live and closed.
func (m *SessionManager) MessageStats() (incoming, outgoing uint64) {
	incoming = m.closedIncoming.Load()
	outgoing = m.closedOutgoing.Load()
	m.mu.Lock()
	defer m.mu.Unlock()
	for s := range m.sessions {
		in, out := s.MessageCounts()
		incoming += in
		outgoing += out
	}
	return incoming, outgoing
}
