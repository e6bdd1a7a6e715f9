// Package memory provides in-memory implementations of outbound ports.
package memory

import (
	"context"
	"sync"

	"github.com/G-TechSD/ganesha-ai/internal/domain/plan"
	"github.com/G-TechSD/ganesha-ai/internal/domain/session"
)

// SessionStore implements session.Store with an in-memory map. For tests;
// the daemon uses the file-backed adapter (internal/adapter/outbound/sessionstore).
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*session.Session
}

// NewSessionStore creates a new in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*session.Session)}
}

// Save stores a copy of sess, overwriting any prior record with the same ID.
func (s *SessionStore) Save(_ context.Context, sess *session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = copySession(sess)
	return nil
}

// Get retrieves a session by ID. Returns session.ErrSessionNotFound if it
// doesn't exist.
func (s *SessionStore) Get(_ context.Context, id string) (*session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, session.ErrSessionNotFound
	}
	return copySession(sess), nil
}

// List returns the IDs of all stored sessions.
func (s *SessionStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	return ids, nil
}

// copySession returns a deep copy so stored sessions are not mutated by
// callers holding a previously-returned pointer.
func copySession(sess *session.Session) *session.Session {
	cp := *sess
	cp.ExecutedActions = make([]plan.Action, len(sess.ExecutedActions))
	copy(cp.ExecutedActions, sess.ExecutedActions)
	cp.Results = make([]session.ExecutionResult, len(sess.Results))
	copy(cp.Results, sess.Results)
	if sess.Plan != nil {
		p := *sess.Plan
		p.Actions = make([]plan.Action, len(sess.Plan.Actions))
		copy(p.Actions, sess.Plan.Actions)
		cp.Plan = &p
	}
	return &cp
}

var _ session.Store = (*SessionStore)(nil)
