// Package cel compiles and evaluates the optional CEL guard expressions
// attachable to whitelist/blacklist pattern entries (SPEC_FULL.md §2 DOMAIN
// STACK). A guard only narrows a pattern that has already matched by
// regular expression; it never substitutes for the regex itself.
package cel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/cel-go/cel"
)

const (
	maxExpressionLength = 1024
	maxCostBudget       = 100_000
	maxNestingDepth      = 50
	evalTimeout          = 2 * time.Second
	interruptCheckFreq   = 100
)

// GuardContext is the activation exposed to a pattern's guard expression.
type GuardContext struct {
	Command    string
	WorkingDir string
	UserName   string
	UID        int
	RiskLevel  string
}

func (g GuardContext) asActivation() map[string]interface{} {
	return map[string]interface{}{
		"command":     g.Command,
		"working_dir": g.WorkingDir,
		"user_name":   g.UserName,
		"uid":         int64(g.UID),
		"risk_level":  g.RiskLevel,
	}
}

// GuardEvaluator compiles and evaluates guard expressions.
type GuardEvaluator struct {
	env *cel.Env
}

// NewGuardEvaluator builds a GuardEvaluator with the ganesha guard
// environment (command/working_dir/user_name/uid/risk_level variables).
func NewGuardEvaluator() (*GuardEvaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("command", cel.StringType),
		cel.Variable("working_dir", cel.StringType),
		cel.Variable("user_name", cel.StringType),
		cel.Variable("uid", cel.IntType),
		cel.Variable("risk_level", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create guard environment: %w", err)
	}
	return &GuardEvaluator{env: env}, nil
}

// Compile parses, type-checks, and validates a guard expression.
func (g *GuardEvaluator) Compile(expr string) (cel.Program, error) {
	if expr == "" {
		return nil, errors.New("guard expression is empty")
	}
	if len(expr) > maxExpressionLength {
		return nil, fmt.Errorf("guard expression too long: %d chars (max %d)", len(expr), maxExpressionLength)
	}
	if err := validateNesting(expr); err != nil {
		return nil, err
	}

	ast, issues := g.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("guard compilation failed: %w", issues.Err())
	}
	prg, err := g.env.Program(ast,
		cel.EvalOptions(cel.OptOptimize),
		cel.CostLimit(maxCostBudget),
		cel.InterruptCheckFrequency(interruptCheckFreq),
	)
	if err != nil {
		return nil, fmt.Errorf("guard program creation failed: %w", err)
	}
	return prg, nil
}

// Evaluate runs a compiled guard program against ctx, bounded by evalTimeout.
func (g *GuardEvaluator) Evaluate(prg cel.Program, ctx GuardContext) (bool, error) {
	c, cancel := context.WithTimeout(context.Background(), evalTimeout)
	defer cancel()

	result, _, err := prg.ContextEval(c, ctx.asActivation())
	if err != nil {
		return false, fmt.Errorf("guard evaluation failed: %w", err)
	}
	b, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("guard expression did not return a boolean, got %T", result.Value())
	}
	return b, nil
}

func validateNesting(expr string) error {
	var depth, maxDepth int
	for _, ch := range expr {
		switch ch {
		case '(', '[', '{':
			depth++
			if depth > maxDepth {
				maxDepth = depth
			}
		case ')', ']', '}':
			depth--
		}
	}
	if maxDepth > maxNestingDepth {
		return fmt.Errorf("guard expression nesting too deep: %d levels (max %d)", maxDepth, maxNestingDepth)
	}
	return nil
}
