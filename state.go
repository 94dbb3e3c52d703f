// Package ircd wires the protocol engine together: the shared nickname
// registry (ServerState), the per-connection registration driver,
// and the listeners that feed it.
package ircd

import (
	"sync"

	"github.com/birchwood-irc/ircd/session"
)

// Phase is the server's lifecycle stage. Listener topology may only
// change during PhaseStartup.
type Phase int

const (
	PhaseStartup Phase = iota
	PhaseRunning
)

// ServerState is the process-global registry: the single source of truth
// for nickname collision checks. Grounded on original_source/src/server.rs's
// ServerState (Arc<RwLock<HashMap<String, Arc<Client>>>>), realized here
// with a sync.RWMutex-guarded map.
//
// Sessions never hold a back-reference to the ServerState that registered
// them, avoiding an ownership cycle; callers that need both pass the
// *ServerState explicitly (see Driver).
type ServerState struct {
	name string

	mu      sync.RWMutex
	phase   Phase
	clients map[string]*session.Session
}

// NewServerState creates a registry for a server identified by name,
// starting in PhaseStartup.
func NewServerState(name string) *ServerState {
	return &ServerState{
		name:    name,
		phase:   PhaseStartup,
		clients: make(map[string]*session.Session),
	}
}

// Name returns the server's configured name, used as the prefix on
// server-originated messages and as the pinger's PING target.
func (s *ServerState) Name() string { return s.name }

// Phase returns the server's current lifecycle phase.
func (s *ServerState) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

// Start transitions the server into PhaseRunning. Idempotent.
func (s *ServerState) Start() {
	s.mu.Lock()
	s.phase = PhaseRunning
	s.mu.Unlock()
}

// HasNick reports whether nick is currently registered. Callers
// performing a subsequent registration must not rely on this alone —
// use TryRegister for the atomic check-then-insert.
func (s *ServerState) HasNick(nick string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.clients[nick]
	return ok
}

// TryRegister atomically checks nick uniqueness and, if nick is free,
// inserts sess under it. It reports whether the insert succeeded. This is
// the single write-lock acquisition the registration state machine's USER
// step relies on to guarantee nickname uniqueness under concurrent
// registration.
func (s *ServerState) TryRegister(nick string, sess *session.Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.clients[nick]; exists {
		return false
	}
	s.clients[nick] = sess
	return true
}

// Remove deletes nick from the registry, if present. Safe to call for a
// nick that was never inserted.
func (s *ServerState) Remove(nick string) {
	s.mu.Lock()
	delete(s.clients, nick)
	s.mu.Unlock()
}

// Count returns the number of registered clients.
func (s *ServerState) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}
