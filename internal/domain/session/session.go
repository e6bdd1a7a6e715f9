package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/G-TechSD/ganesha-ai/internal/domain/plan"
)

// ErrSessionNotFound is returned when a session doesn't exist.
var ErrSessionNotFound = errors.New("session not found")

// ErrInvalidTransition is returned when a state transition is not allowed
// from the session's current state.
var ErrInvalidTransition = errors.New("invalid session state transition")

// ErrResultMismatch is returned if a caller tries to record a result
// without a matching action, which would break the
// |executed_actions| == |results| invariant.
var ErrResultMismatch = errors.New("executed actions and results must stay paired")

var allowedTransitions = map[TaskState][]TaskState{
	StatePending:         {StatePlanning, StateCancelled},
	StatePlanning:        {StateAwaitingConsent, StateFailed, StateCancelled},
	StateAwaitingConsent: {StateExecuting, StateCancelled},
	StateExecuting:       {StateCompleted, StateFailed, StateCancelled},
}

// Transition moves the session to next, rejecting any move not in the
// fixed lifecycle pending -> planning -> awaiting_consent -> executing ->
// (completed|failed|cancelled).
func (s *Session) Transition(next TaskState) error {
	for _, allowed := range allowedTransitions[s.State] {
		if allowed == next {
			s.State = next
			if next.IsTerminal() {
				s.CompletedAt = time.Now().UTC()
			}
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.State, next)
}

// RecordExecution appends action and its result atomically, preserving
// the |executed_actions| == |results| invariant.
func (s *Session) RecordExecution(action plan.Action, result ExecutionResult) {
	s.ExecutedActions = append(s.ExecutedActions, action)
	s.Results = append(s.Results, result)
}

// ValidateInvariant checks the |executed_actions| == |results| invariant
// that RecordExecution maintains. A session loaded from a store written
// by anything other than RecordExecution (a hand-edited file, a partial
// write interrupted mid-append) can violate it; callers that rebuild a
// Session from storage before rolling it back should check this first.
func (s *Session) ValidateInvariant() error {
	if len(s.ExecutedActions) != len(s.Results) {
		return fmt.Errorf("%w: %d actions, %d results", ErrResultMismatch, len(s.ExecutedActions), len(s.Results))
	}
	return nil
}

// RollbackActions implements rollback_actions_for: the reverse of every
// executed, reversible action that carries a rollback command, each
// wrapped into a new Action whose command is the original
// RollbackCommand. Returns ErrResultMismatch without computing anything
// if the session's invariant has been violated.
func (s *Session) RollbackActions() ([]plan.Action, error) {
	if err := s.ValidateInvariant(); err != nil {
		return nil, err
	}

	var reversible []plan.Action
	for _, a := range s.ExecutedActions {
		if a.Reversible && a.RollbackCommand != "" {
			reversible = append(reversible, a)
		}
	}

	out := make([]plan.Action, 0, len(reversible))
	for i := len(reversible) - 1; i >= 0; i-- {
		orig := reversible[i]
		out = append(out, plan.Action{
			ID:              orig.ID + "-rollback",
			Type:            orig.Type,
			Command:         orig.RollbackCommand,
			Explanation:     "rollback of: " + orig.Explanation,
			RiskLevel:       orig.RiskLevel,
			Reversible:      false,
			RequiresConsent: orig.RequiresConsent,
		})
	}
	return out, nil
}

var (
	idMu      sync.Mutex
	idLastSec int64
	idSeq     int
)

// NewSessionID returns a timestamp-derived identifier, monotonic within
// the same second so two sessions created back-to-back never collide.
func NewSessionID() string {
	idMu.Lock()
	defer idMu.Unlock()

	now := time.Now().UTC()
	sec := now.Unix()
	if sec == idLastSec {
		idSeq++
	} else {
		idLastSec = sec
		idSeq = 0
	}
	return fmt.Sprintf("session_%s_%d", now.Format("20060102T150405"), idSeq)
}
