package policy

import "testing"

func TestCompileRuleSetBuiltinsAlwaysCompile(t *testing.T) {
	for _, lv := range []AccessLevel{LevelRestricted, LevelStandard, LevelElevated, LevelFullAccess, LevelWhitelist, LevelBlacklist} {
		p := AccessPolicy{Level: lv, MaxExecutionTimeSeconds: 60}
		rs, err := CompileRuleSet(p)
		if err != nil {
			t.Fatalf("level %s: unexpected error: %v", lv, err)
		}
		if len(rs.AlwaysDenied) == 0 {
			t.Errorf("level %s: expected always-denied patterns to be compiled", lv)
		}
		if len(rs.ManipulationIndicators) == 0 {
			t.Errorf("level %s: expected manipulation indicators to be compiled", lv)
		}
	}
}

func TestCompileRuleSetCaseInsensitive(t *testing.T) {
	rs, err := CompileRuleSet(AccessPolicy{Level: LevelRestricted, MaxExecutionTimeSeconds: 60})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	found := false
	for _, p := range rs.PresetAllowed {
		if p.Regexp.MatchString("CAT /etc/hosts") {
			found = true
			break
		}
	}
	if !found {
		t.Error("expected preset pattern to match uppercase command (universal case-insensitivity)")
	}
}

func TestCompileRuleSetDropsBadUserPattern(t *testing.T) {
	p := AccessPolicy{
		Level:                   LevelWhitelist,
		MaxExecutionTimeSeconds: 60,
		Whitelist: []RawPattern{
			{Expr: "^echo\\s+"},
			{Expr: "(unclosed"},
		},
	}
	rs, err := CompileRuleSet(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rs.Whitelist) != 1 {
		t.Fatalf("expected one compiled whitelist pattern, got %d", len(rs.Whitelist))
	}
	if len(rs.DroppedUserPatterns) != 1 || rs.DroppedUserPatterns[0] != "(unclosed" {
		t.Fatalf("expected the bad pattern to be dropped and reported, got %v", rs.DroppedUserPatterns)
	}
}

func TestCompileRuleSetWithGuard(t *testing.T) {
	p := AccessPolicy{
		Level:                   LevelWhitelist,
		MaxExecutionTimeSeconds: 60,
		Whitelist: []RawPattern{
			{Expr: "^echo\\s+", Guard: `risk_level != "critical"`},
		},
	}
	rs, err := CompileRuleSet(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rs.Whitelist) != 1 || rs.Whitelist[0].Guard == nil {
		t.Fatalf("expected one whitelist pattern with a compiled guard")
	}
}

func TestCompileRuleSetWithBadGuardIsDropped(t *testing.T) {
	p := AccessPolicy{
		Level:                   LevelWhitelist,
		MaxExecutionTimeSeconds: 60,
		Whitelist: []RawPattern{
			{Expr: "^echo\\s+", Guard: "not valid cel +++ ("},
		},
	}
	rs, err := CompileRuleSet(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rs.Whitelist) != 0 {
		t.Fatalf("expected the pattern to be dropped due to a bad guard")
	}
	if len(rs.DroppedUserPatterns) != 1 {
		t.Fatalf("expected the dropped pattern to be reported")
	}
}

func TestExpandPresetInheritanceOrder(t *testing.T) {
	patterns := expandPreset(LevelElevated)
	if len(patterns) == 0 {
		t.Fatal("expected elevated preset to expand to a non-empty pattern list")
	}
	// Elevated-specific patterns must come before inherited standard/restricted ones.
	if patterns[0] != presetElevated.patterns[0] {
		t.Errorf("expected elevated's own patterns first, got %q", patterns[0])
	}
}

func TestExpandPresetUnknownLevelReturnsNil(t *testing.T) {
	if patterns := expandPreset(LevelWhitelist); patterns != nil {
		t.Errorf("expected whitelist (a non-inheriting mode) to expand to nil, got %v", patterns)
	}
}
