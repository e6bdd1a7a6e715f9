package cmd

import (
	"context"
	"testing"

	"github.com/G-TechSD/ganesha-ai/internal/adapter/outbound/memory"
	"github.com/G-TechSD/ganesha-ai/internal/domain/policy"
)

func TestConfigCmd_SubcommandsRegistered(t *testing.T) {
	want := []string{"show", "set-level", "test", "preset", "reset"}
	got := make(map[string]bool)
	for _, c := range configCmd.Commands() {
		got[c.Name()] = true
	}
	for _, name := range want {
		if !got[name] {
			t.Errorf("config subcommand %q not registered", name)
		}
	}
}

func TestConfigCmd_RegisteredWithRoot(t *testing.T) {
	for _, c := range rootCmd.Commands() {
		if c.Name() == "config" {
			return
		}
	}
	t.Error("config command not registered with rootCmd")
}

func TestConfigWhitelistAndBlacklist_RequireActionAndPattern(t *testing.T) {
	if err := configWhitelistCmd.Args(configWhitelistCmd, []string{"add"}); err == nil {
		t.Error("whitelist with one arg should fail validation")
	}
	if err := configWhitelistCmd.Args(configWhitelistCmd, []string{"add", "^ls\\b"}); err != nil {
		t.Errorf("whitelist with two args should pass validation, got %v", err)
	}
}

func whitelistField(p *policy.AccessPolicy) *[]policy.RawPattern { return &p.Whitelist }

func TestMutatePattern_RejectsUnknownAction(t *testing.T) {
	store := memory.NewPolicyStore()
	if _, err := mutatePattern(context.Background(), store, whitelistField, "frobnicate", "^ls\\b"); err == nil {
		t.Error("mutatePattern with unknown action should return an error")
	}
}

func TestMutatePattern_RejectsUncompilablePattern(t *testing.T) {
	store := memory.NewPolicyStore()
	if _, err := mutatePattern(context.Background(), store, whitelistField, "add", "ls("); err == nil {
		t.Error("mutatePattern with an invalid regex should return an error")
	}
}

func TestMutatePattern_AddThenRemoveRoundTrips(t *testing.T) {
	ctx := context.Background()
	store := memory.NewPolicyStore()
	if err := store.Save(ctx, policy.AccessPolicy{Level: policy.LevelWhitelist, MaxExecutionTimeSeconds: 60}); err != nil {
		t.Fatalf("seed policy: %v", err)
	}

	verb, err := mutatePattern(ctx, store, whitelistField, "add", `^ls\b`)
	if err != nil {
		t.Fatalf("add pattern: %v", err)
	}
	if verb != "added" {
		t.Errorf("verb = %q, want %q", verb, "added")
	}

	p, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load policy: %v", err)
	}
	if len(p.Whitelist) != 1 || p.Whitelist[0].Expr != `^ls\b` {
		t.Fatalf("whitelist after add = %+v", p.Whitelist)
	}

	verb, err = mutatePattern(ctx, store, whitelistField, "remove", `^ls\b`)
	if err != nil {
		t.Fatalf("remove pattern: %v", err)
	}
	if verb != "removed" {
		t.Errorf("verb = %q, want %q", verb, "removed")
	}

	p, err = store.Load(ctx)
	if err != nil {
		t.Fatalf("load policy: %v", err)
	}
	if len(p.Whitelist) != 0 {
		t.Errorf("whitelist after remove = %+v, want empty", p.Whitelist)
	}
}
