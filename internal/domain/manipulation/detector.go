// Package manipulation implements the Manipulation Detector (C4): a pure
// function over free text that flags apparent prompt-injection attempts,
// independent of the Access Controller's command matching (spec.md §4.4).
package manipulation

import "github.com/G-TechSD/ganesha-ai/internal/domain/policy"

// Detector scans free text for prompt-injection indicators using the rule
// set's compiled manipulation patterns. It holds no mutable state and is
// safe for concurrent use.
type Detector struct {
	rules *policy.RuleSet
}

// New builds a Detector over the given compiled rule set.
func New(rules *policy.RuleSet) *Detector {
	return &Detector{rules: rules}
}

// Contains reports whether text matches any manipulation indicator,
// returning the first matched indicator's source pattern for audit
// correlation. It is applied to free text only — the task, LLM
// explanations, and any non-command Action field — never to the command
// string itself, which is covered by the Access Controller instead.
func (d *Detector) Contains(text string) (bool, string) {
	for _, p := range d.rules.ManipulationIndicators {
		if p.Regexp.MatchString(text) {
			return true, p.Source
		}
	}
	return false, ""
}
