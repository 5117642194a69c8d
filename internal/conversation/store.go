// Package conversation owns the in-process dialogue state for Lina.
//
// A Store maps conversation identities to sessions of ordered turns. Sessions
// are created lazily on first contact and live for the lifetime of the
// process. History is append-only in user/assistant pairs and capped: once a
// session exceeds the configured limit the oldest turns are evicted
// pair-aligned, so a capped history always starts with a user turn.
package conversation

import (
	"log/slog"
	"sync"
	"time"

	"lina/internal/models"
)

// DefaultMaxTurns is the default history cap per session (10 exchanges).
const DefaultMaxTurns = 20

// Session holds the mutable per-identity conversation history and metadata.
// It is owned exclusively by the Store; callers receive snapshot copies only.
type Session struct {
	CreatedAt time.Time
	turns     []models.Turn
}

// Store is the guarded mapping from conversation identity to session.
// Construct once at process start and share by reference.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	locks    map[string]*sync.Mutex
	maxTurns int
}

// Option defines a configuration option for the Store.
type Option func(*Store)

// WithMaxTurns overrides the per-session history cap.
func WithMaxTurns(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxTurns = n
		}
	}
}

// NewStore creates an empty conversation store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		sessions: make(map[string]*Session),
		locks:    make(map[string]*sync.Mutex),
		maxTurns: DefaultMaxTurns,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetOrCreate returns the session for the given identity, creating it lazily
// on first contact.
func (s *Store) GetOrCreate(identity string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrCreateLocked(identity)
}

func (s *Store) getOrCreateLocked(identity string) *Session {
	if sess, ok := s.sessions[identity]; ok {
		return sess
	}
	sess := &Session{CreatedAt: time.Now()}
	s.sessions[identity] = sess
	slog.Debug("Store.GetOrCreate: new session created", "identity", identity)
	return sess
}

// IsFirstContact reports whether no session exists yet for the identity.
func (s *Store) IsFirstContact(identity string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sessions[identity]
	return !ok
}

// AppendTurn appends a turn to the identity's session, creating the session if
// needed, then evicts the oldest turns pair-aligned until the history is at or
// under the cap.
func (s *Store) AppendTurn(identity string, role models.Role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.getOrCreateLocked(identity)
	sess.turns = append(sess.turns, models.Turn{Role: role, Content: content, Timestamp: time.Now()})

	if over := len(sess.turns) - s.maxTurns; over > 0 {
		// Keep eviction pair-aligned so the retained window starts on a user turn.
		if over%2 != 0 {
			over++
		}
		sess.turns = append(sess.turns[:0:0], sess.turns[over:]...)
		slog.Debug("Store.AppendTurn: history truncated", "identity", identity, "evicted", over, "retained", len(sess.turns))
	}
}

// History returns a chronological snapshot of the most recent maxTurns turns
// for the identity. A maxTurns of zero or less returns the full retained
// history. An unknown identity yields an empty slice without creating a session.
func (s *Store) History(identity string, maxTurns int) []models.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[identity]
	if !ok {
		return nil
	}
	turns := sess.turns
	if maxTurns > 0 && len(turns) > maxTurns {
		turns = turns[len(turns)-maxTurns:]
	}
	out := make([]models.Turn, len(turns))
	copy(out, turns)
	return out
}

// ActiveSessionCount returns the number of sessions currently held.
func (s *Store) ActiveSessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Do runs fn while holding the identity's serialization lock. Concurrent
// events for the same identity are executed one at a time so a
// read-generate-append sequence cannot interleave with another; events for
// different identities proceed independently.
func (s *Store) Do(identity string, fn func()) {
	s.mu.Lock()
	lock, ok := s.locks[identity]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[identity] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()
	fn()
}
