package memory

import (
	"context"
	"sync"

	"github.com/G-TechSD/ganesha-ai/internal/domain/policy"
)

// PolicyStore implements an in-memory policystore.Store: a single
// AccessPolicy guarded by a mutex. For tests; the daemon and the CLI use
// the file-backed adapter
// (internal/adapter/outbound/policystore).
type PolicyStore struct {
	mu sync.RWMutex
	p  policy.AccessPolicy
	ok bool
}

// NewPolicyStore returns an empty store; Load returns DefaultPolicy until
// the first Save.
func NewPolicyStore() *PolicyStore {
	return &PolicyStore{}
}

// Load returns the stored policy, or policy.DefaultPolicy() if none has
// been saved yet (spec §4.1: absent both canonical locations, defaults to
// STANDARD).
func (s *PolicyStore) Load(_ context.Context) (policy.AccessPolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.ok {
		return policy.DefaultPolicy(), nil
	}
	return s.p, nil
}

// Save replaces the stored policy.
func (s *PolicyStore) Save(_ context.Context, p policy.AccessPolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.p = p
	s.ok = true
	return nil
}
