// Package session manages bounded, timeout-evicted conversation
// histories keyed by an opaque session id.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/airsimlabs/go-dronechat/pkg/chat"
)

type entry struct {
	messages     []chat.Message
	lastActivity time.Time
}

// Store holds per-session message history. Histories are capped at
// maxHistory messages (oldest trimmed first) and sessions idle for
// longer than idleTimeout are evicted on the next store operation.
// Safe for concurrent use from multiple turns.
type Store struct {
	mu          sync.Mutex
	sessions    map[string]*entry
	maxHistory  int
	idleTimeout time.Duration
	now         func() time.Time // overridable in tests
}

// New creates a session store.
func New(maxHistory int, idleTimeout time.Duration) *Store {
	return &Store{
		sessions:    make(map[string]*entry),
		maxHistory:  maxHistory,
		idleTimeout: idleTimeout,
		now:         time.Now,
	}
}

// GetOrCreate returns the id of an existing session, refreshing its
// idle timer, or allocates a fresh session when id is empty or
// unknown. Never fails.
func (s *Store) GetOrCreate(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()

	if id == "" {
		id = uuid.NewString()
	}
	e, ok := s.sessions[id]
	if !ok {
		e = &entry{}
		s.sessions[id] = e
	}
	e.lastActivity = s.now()
	return id
}

// Append adds a message to the session, creating it if absent. The
// history is trimmed to the configured cap, dropping oldest entries.
func (s *Store) Append(id string, msg chat.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()

	e, ok := s.sessions[id]
	if !ok {
		e = &entry{}
		s.sessions[id] = e
	}
	e.messages = append(e.messages, msg)
	if len(e.messages) > s.maxHistory {
		e.messages = e.messages[len(e.messages)-s.maxHistory:]
	}
	e.lastActivity = s.now()
}

// Messages returns a copy of the session history, empty for unknown ids.
func (s *Store) Messages(id string) []chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return nil
	}
	out := make([]chat.Message, len(e.messages))
	copy(out, e.messages)
	return out
}

// Clear removes the session entirely. Idempotent.
func (s *Store) Clear(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// sweepLocked evicts sessions idle past the timeout.
// Caller must hold s.mu.
func (s *Store) sweepLocked() {
	if s.idleTimeout <= 0 {
		return
	}
	cutoff := s.now().Add(-s.idleTimeout)
	for id, e := range s.sessions {
		if e.lastActivity.Before(cutoff) {
			delete(s.sessions, id)
		}
	}
}
