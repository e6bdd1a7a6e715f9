// Package planner provides outbound implementations of plan.Planner: a
// ChainAdapter trying a static ordered list of providers, a FuncPlanner
// test double, and an HTTPPlanner reference provider. No LLM SDK is
// wired by default — spec.md treats "LLM providers" as an external
// collaborator contract, not a specific vendor (see DESIGN.md).
package planner

import (
	"context"
	"errors"
	"fmt"

	"github.com/G-TechSD/ganesha-ai/internal/domain/plan"
)

// ErrAllProvidersFailed is returned when every provider in a
// ChainAdapter's list fails to produce a plan.
var ErrAllProvidersFailed = errors.New("all planner providers failed")

// ChainAdapter tries each of its Providers in order, returning the first
// successful Plan. Every failure is joined into the final error so a
// caller can see why each candidate was skipped.
type ChainAdapter struct {
	Providers []plan.Planner
}

// NewChainAdapter builds a ChainAdapter over providers, tried in order.
func NewChainAdapter(providers ...plan.Planner) *ChainAdapter {
	return &ChainAdapter{Providers: providers}
}

func (c *ChainAdapter) Plan(ctx context.Context, facts plan.SystemFacts, task string, history []plan.Turn) (plan.Plan, error) {
	if len(c.Providers) == 0 {
		return plan.Plan{}, fmt.Errorf("%w: no providers configured", ErrAllProvidersFailed)
	}
	var errs []error
	for _, p := range c.Providers {
		result, err := p.Plan(ctx, facts, task, history)
		if err == nil {
			return result, nil
		}
		errs = append(errs, err)
	}
	return plan.Plan{}, fmt.Errorf("%w: %w", ErrAllProvidersFailed, errors.Join(errs...))
}

// FuncPlanner adapts a plain function to plan.Planner, for tests.
type FuncPlanner func(ctx context.Context, facts plan.SystemFacts, task string, history []plan.Turn) (plan.Plan, error)

func (f FuncPlanner) Plan(ctx context.Context, facts plan.SystemFacts, task string, history []plan.Turn) (plan.Plan, error) {
	return f(ctx, facts, task, history)
}
