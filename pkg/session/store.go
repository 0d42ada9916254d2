package session

import "github.com/puzpuzpuz/xsync/v3"

// Store holds at most one live session per device identity.
// It is safe for concurrent use.
type Store struct {
	sessions *xsync.MapOf[string, *Session]
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{sessions: xsync.NewMapOf[string, *Session]()}
}

// GetOrCreate returns the session for an identity, creating it with the
// given name if absent. The second return value reports whether the
// session already existed.
func (st *Store) GetOrCreate(identity, name string) (*Session, bool) {
	return st.sessions.LoadOrCompute(identity, func() *Session {
		return New(identity, name)
	})
}

// Get returns the session for an identity, if present.
func (st *Store) Get(identity string) (*Session, bool) {
	return st.sessions.Load(identity)
}

// Delete removes the session for an identity.
func (st *Store) Delete(identity string) {
	st.sessions.Delete(identity)
}

// Range calls fn for each session until fn returns false.
func (st *Store) Range(fn func(s *Session) bool) {
	st.sessions.Range(func(_ string, s *Session) bool {
		return fn(s)
	})
}

// Count returns the number of tracked sessions.
func (st *Store) Count() int {
	return st.sessions.Size()
}
