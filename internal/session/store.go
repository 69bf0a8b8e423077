package session

import (
	"sync"
	"time"
)

// Store holds live chat sessions keyed by chat ID. All access goes through
// the store mutex; per-chat serialization uses the session busy flag.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	now      func() time.Time
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Acquire returns the session for chatID, creating it if needed, and marks
// it busy. The second return value is false when another message for the
// same chat is still being processed; callers must not touch the session in
// that case.
func (st *Store) Acquire(chatID string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	sess, ok := st.sessions[chatID]
	if !ok {
		sess = &Session{
			ChatID:       chatID,
			Stage:        StageGreeting,
			LastActivity: st.now(),
		}
		st.sessions[chatID] = sess
	}

	if sess.busy {
		return sess, false
	}
	sess.busy = true
	sess.LastActivity = st.now()
	return sess, true
}

// Release clears the busy flag after message processing finishes.
func (st *Store) Release(chatID string) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if sess, ok := st.sessions[chatID]; ok {
		sess.busy = false
		sess.LastActivity = st.now()
	}
}

// Peek returns the session without acquiring it, or nil when the chat has
// no live session.
func (st *Store) Peek(chatID string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.sessions[chatID]
}

// Evict removes a session, e.g. on the reset command.
func (st *Store) Evict(chatID string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, chatID)
}

// EvictIdle drops sessions whose last activity is older than maxIdle.
// Busy sessions are never evicted. Returns how many were removed.
func (st *Store) EvictIdle(maxIdle time.Duration) int {
	st.mu.Lock()
	defer st.mu.Unlock()

	cutoff := st.now().Add(-maxIdle)
	evicted := 0
	for chatID, sess := range st.sessions {
		if !sess.busy && sess.LastActivity.Before(cutoff) {
			delete(st.sessions, chatID)
			evicted++
		}
	}
	return evicted
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}
