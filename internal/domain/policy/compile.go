package policy

import (
	"fmt"
	"regexp"

	celpkg "github.com/google/cel-go/cel"

	"github.com/G-TechSD/ganesha-ai/internal/adapter/outbound/cel"
)

// CompiledPattern pairs a compiled regular expression with its origin and
// an optional compiled CEL guard program (SPEC_FULL.md §2).
type CompiledPattern struct {
	Source   string
	Origin   PatternOrigin
	Category DenyCategory // set only for Origin == OriginAlwaysDenied
	Regexp   *regexp.Regexp
	Guard    celpkg.Program // nil if the pattern has no guard
}

// RuleSet is the compiled output of the Pattern Compiler (C2): every
// pattern the Access Controller needs, already compiled and ordered.
// It is immutable once built and safe for concurrent read-only use.
type RuleSet struct {
	Level                   AccessLevel // the policy level this rule set was compiled from
	AlwaysDenied            []CompiledPattern
	ManipulationIndicators  []CompiledPattern
	PresetAllowed           []CompiledPattern
	Whitelist               []CompiledPattern
	Blacklist               []CompiledPattern
	DroppedUserPatterns     []string // patterns that failed to compile, dropped with a WARNING
}

var guardEvaluator *cel.GuardEvaluator

func init() {
	var err error
	guardEvaluator, err = cel.NewGuardEvaluator()
	if err != nil {
		// The guard environment is a fixed, code-controlled definition; a
		// failure here is a build defect, not a runtime condition.
		panic(fmt.Sprintf("policy: guard environment failed to build: %v", err))
	}
}

func compileOne(expr string, origin PatternOrigin, caseInsensitive bool, guard string) (CompiledPattern, error) {
	pattern := expr
	if caseInsensitive {
		pattern = "(?i)" + expr
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return CompiledPattern{}, fmt.Errorf("%w: pattern %q: %v", ErrPatternCompile, expr, err)
	}
	cp := CompiledPattern{Source: expr, Origin: origin, Regexp: re}
	if guard != "" {
		prg, err := guardEvaluator.Compile(guard)
		if err != nil {
			return CompiledPattern{}, fmt.Errorf("%w: guard for pattern %q: %v", ErrPatternCompile, expr, err)
		}
		cp.Guard = prg
	}
	return cp, nil
}

// CompileRuleSet builds a RuleSet from an AccessPolicy per spec.md §4.2.
// Builtin pattern compile failures are fatal (a code defect); failures to
// compile a user-supplied whitelist/blacklist pattern drop that pattern
// and are reported via DroppedUserPatterns for the caller to log as a
// WARNING, rather than failing the whole compile.
func CompileRuleSet(p AccessPolicy) (*RuleSet, error) {
	rs := &RuleSet{Level: p.Level}

	for _, rule := range alwaysDenied {
		cp, err := compileOne(rule.Expr, OriginAlwaysDenied, true, "")
		if err != nil {
			return nil, fmt.Errorf("builtin always-denied pattern failed to compile (code defect): %w", err)
		}
		cp.Category = rule.Category
		rs.AlwaysDenied = append(rs.AlwaysDenied, cp)
	}

	for _, expr := range manipulationIndicators {
		cp, err := compileOne(expr, OriginManipulation, true, "")
		if err != nil {
			return nil, fmt.Errorf("builtin manipulation pattern failed to compile (code defect): %w", err)
		}
		rs.ManipulationIndicators = append(rs.ManipulationIndicators, cp)
	}

	for _, expr := range expandPreset(p.Level) {
		cp, err := compileOne(expr, OriginPreset, true, "")
		if err != nil {
			return nil, fmt.Errorf("builtin preset pattern failed to compile (code defect): %w", err)
		}
		rs.PresetAllowed = append(rs.PresetAllowed, cp)
	}

	for _, raw := range p.Whitelist {
		cp, err := compileOne(raw.Expr, OriginWhitelist, true, raw.Guard)
		if err != nil {
			rs.DroppedUserPatterns = append(rs.DroppedUserPatterns, raw.Expr)
			continue
		}
		rs.Whitelist = append(rs.Whitelist, cp)
	}

	for _, raw := range p.Blacklist {
		cp, err := compileOne(raw.Expr, OriginBlacklist, true, raw.Guard)
		if err != nil {
			rs.DroppedUserPatterns = append(rs.DroppedUserPatterns, raw.Expr)
			continue
		}
		rs.Blacklist = append(rs.Blacklist, cp)
	}

	return rs, nil
}

// matches reports whether cp matches command, honoring an optional CEL
// guard narrowing (evaluated only once the regex itself has matched).
func (cp CompiledPattern) matches(command string, gctx cel.GuardContext) bool {
	if !cp.Regexp.MatchString(command) {
		return false
	}
	if cp.Guard == nil {
		return true
	}
	ok, err := guardEvaluator.Evaluate(cp.Guard, gctx)
	if err != nil {
		// A guard that fails to evaluate narrows to false rather than
		// silently widening the match.
		return false
	}
	return ok
}
