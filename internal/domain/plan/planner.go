package plan

import "context"

// SystemFacts describes the environment a Planner Adapter reasons about
// when turning a task into a Plan.
type SystemFacts struct {
	OS              string
	Arch            string
	PlatformVersion string
	CWD             string
}

// Turn is one prior exchange in a task's conversation history, offered to
// the Planner Adapter for context.
type Turn struct {
	Role    string
	Content string
}

// Planner turns a natural-language task plus system facts into a candidate
// Plan. Implementations talk to an external LLM provider or, for tests, a
// fixed function. Any field outside id/type/command/explanation/
// risk_level/reversible/rollback_command/requires_consent returned by a
// provider is discarded.
type Planner interface {
	Plan(ctx context.Context, facts SystemFacts, task string, history []Turn) (Plan, error)
}
