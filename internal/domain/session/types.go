// Package session implements the per-task Session state machine: recording
// executed actions and their results, and generating rollback plans.
package session

import (
	"time"

	"github.com/G-TechSD/ganesha-ai/internal/domain/plan"
	"github.com/G-TechSD/ganesha-ai/internal/domain/policy"
)

// TaskState is a Session's lifecycle stage.
type TaskState string

const (
	StatePending         TaskState = "pending"
	StatePlanning        TaskState = "planning"
	StateAwaitingConsent TaskState = "awaiting_consent"
	StateExecuting       TaskState = "executing"
	StateCompleted       TaskState = "completed"
	StateFailed          TaskState = "failed"
	StateCancelled       TaskState = "cancelled"
)

// IsTerminal reports whether the state has no further transitions.
func (s TaskState) IsTerminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled:
		return true
	default:
		return false
	}
}

// ExecutionResult is the outcome of running one Action through the
// daemon, positionally paired with its Action in Session.Results.
type ExecutionResult struct {
	Success         bool             `json:"success"`
	Output          string           `json:"output"`
	Error           string           `json:"error"`
	ExitCode        int              `json:"exit_code"`
	RiskLevel       policy.RiskLevel `json:"risk_level"`
	ExecutionTimeMs int64            `json:"execution_time_ms"`
}

// Session is the per-user-task record: the plan it executed, what ran,
// and what each run returned.
type Session struct {
	ID              string            `json:"session_id"`
	Task            string            `json:"task"`
	State           TaskState         `json:"state"`
	Plan            *plan.Plan        `json:"plan,omitempty"`
	ExecutedActions []plan.Action     `json:"executed_actions"`
	Results         []ExecutionResult `json:"results"`
	StartedAt       time.Time         `json:"started_at"`
	CompletedAt     time.Time         `json:"completed_at,omitempty"`
}

// New creates a pending Session for task, with a fresh ID.
func New(task string) *Session {
	return &Session{
		ID:        NewSessionID(),
		Task:      task,
		State:     StatePending,
		StartedAt: time.Now().UTC(),
	}
}
