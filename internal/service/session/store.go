package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"accidentwatch/internal/config"
)

// Store keeps sessions in memory, keyed by a random identifier.
type Store struct {
	sessions map[string]*Session
	defaults Settings
	now      func() time.Time
	mu       sync.RWMutex
}

// NewStore creates a store whose new sessions start from the configured defaults.
func NewStore(cfg *config.Config) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		defaults: Settings{
			Confidence:   cfg.DefaultConfidence,
			SaveEvidence: true,
			Location:     cfg.DefaultLocation,
		},
		now: time.Now,
	}
}

// Create starts a new session.
func (st *Store) Create() *Session {
	s := newSession(uuid.NewString(), st.defaults, st.now())

	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
	return s
}

// Get returns the session with id and marks it as used.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()

	if ok {
		s.touch(st.now())
	}
	return s, ok
}

// GetOrCreate returns the session with id, or a new one when id is unknown.
// The boolean reports whether a session was created.
func (st *Store) GetOrCreate(id string) (*Session, bool) {
	if _, err := uuid.Parse(id); err == nil {
		if s, ok := st.Get(id); ok {
			return s, false
		}
	}
	return st.Create(), true
}

// Delete forgets a session.
func (st *Store) Delete(id string) {
	st.mu.Lock()
	delete(st.sessions, id)
	st.mu.Unlock()
}

// Count returns the number of live sessions.
func (st *Store) Count() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Prune removes sessions idle for longer than maxIdle and returns their ids.
// Sessions for which keep reports true are left alone; keep may be nil.
func (st *Store) Prune(maxIdle time.Duration, keep func(id string) bool) []string {
	now := st.now()

	st.mu.Lock()
	defer st.mu.Unlock()

	var removed []string
	for id, s := range st.sessions {
		if s.idleSince(now) > maxIdle && (keep == nil || !keep(id)) {
			delete(st.sessions, id)
			removed = append(removed, id)
		}
	}
	return removed
}
