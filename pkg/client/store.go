package client

import (
	"sync"
)

// identity is the tuple that distinguishes one appliance session from
// another. Two clients with the same identity share a session and its
// api_key.
type identity struct {
	host     string
	username string
	password string
}

// Session pairs an identity with its current api_key. The token is
// replaced in place when the appliance reports it expired; sessions are
// never removed from their store.
type Session struct {
	Host     string
	Username string
	password string

	mu    sync.Mutex
	token string
}

// Token returns the current api_key, which may be empty if no login has
// succeeded yet.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *Session) setToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// Store caches sessions for the life of the process so that repeated
// client constructions for the same appliance reuse a token instead of
// authenticating every time. Lookups and inserts happen under one lock,
// so concurrent constructions for the same identity converge on a single
// session.
type Store struct {
	mu       sync.Mutex
	sessions map[identity]*Session
}

func NewStore() *Store {
	return &Store{sessions: make(map[identity]*Session)}
}

// DefaultStore is the process-wide session cache used when no explicit
// store is supplied.
var DefaultStore = NewStore()

// getOrCreate returns the session for the given identity, creating an
// empty one if none exists. The second return value reports whether the
// session already existed.
func (s *Store) getOrCreate(host, username, password string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := identity{host: host, username: username, password: password}
	if sess, ok := s.sessions[key]; ok {
		return sess, true
	}

	sess := &Session{Host: host, Username: username, password: password}
	s.sessions[key] = sess
	return sess, false
}

// Len reports how many sessions the store currently holds.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
