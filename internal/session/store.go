package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store keeps sessions in memory, keyed by id.
type Store struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
	defaults Config
}

// NewStore creates an empty store. New sessions start with def.
func NewStore(def Config) *Store {
	return &Store{sessions: map[uuid.UUID]*Session{}, defaults: def}
}

// Get returns the session for id.
func (st *Store) Get(id string) (*Session, bool) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[uid]
	return s, ok
}

// Create registers a new session.
func (st *Store) Create() *Session {
	s := New(st.defaults)
	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
	return s
}

// GetOrCreate returns the session for id, creating one when id is unknown or malformed.
func (st *Store) GetOrCreate(id string) (s *Session, created bool) {
	if s, ok := st.Get(id); ok {
		return s, false
	}
	return st.Create(), true
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Prune drops sessions idle for longer than maxIdle and returns how many were removed.
func (st *Store) Prune(maxIdle time.Duration, now time.Time) int {
	st.mu.Lock()
	candidates := make([]*Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		candidates = append(candidates, s)
	}
	st.mu.Unlock()

	var stale []uuid.UUID
	for _, s := range candidates {
		s.mu.Lock()
		idle := now.Sub(s.UpdatedAt)
		s.mu.Unlock()
		if idle > maxIdle {
			stale = append(stale, s.ID)
		}
	}
	st.mu.Lock()
	for _, id := range stale {
		delete(st.sessions, id)
	}
	st.mu.Unlock()
	return len(stale)
}
