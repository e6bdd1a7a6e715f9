package policystore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/G-TechSD/ganesha-ai/internal/domain/policy"
)

func TestFileStoreLoadDefaultsWhenMissing(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(filepath.Join(dir, "system.yaml"), filepath.Join(dir, "user.yaml"))

	p, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Level != policy.LevelStandard {
		t.Errorf("expected default STANDARD level, got %v", p.Level)
	}
}

func TestFileStoreSaveThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore("", filepath.Join(dir, "user.yaml"))

	want := policy.AccessPolicy{
		Level:                   policy.LevelElevated,
		MaxExecutionTimeSeconds: 30,
		Whitelist:               []policy.RawPattern{{Expr: "^echo\\s+"}},
	}
	if err := s.Save(context.Background(), want); err != nil {
		t.Fatalf("unexpected save error: %v", err)
	}

	got, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if got.Level != want.Level || got.MaxExecutionTimeSeconds != want.MaxExecutionTimeSeconds {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, want)
	}
}

func TestFileStoreSystemPathTakesPrecedence(t *testing.T) {
	dir := t.TempDir()
	systemPath := filepath.Join(dir, "system.yaml")
	userPath := filepath.Join(dir, "user.yaml")

	systemStore := NewFileStore(systemPath, "")
	if err := systemStore.Save(context.Background(), policy.AccessPolicy{Level: policy.LevelFullAccess, MaxExecutionTimeSeconds: 10}); err != nil {
		t.Fatalf("unexpected error saving system policy: %v", err)
	}
	userStore := NewFileStore("", userPath)
	if err := userStore.Save(context.Background(), policy.AccessPolicy{Level: policy.LevelRestricted, MaxExecutionTimeSeconds: 10}); err != nil {
		t.Fatalf("unexpected error saving user policy: %v", err)
	}

	s := NewFileStore(systemPath, userPath)
	got, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Level != policy.LevelFullAccess {
		t.Errorf("expected system policy to take precedence, got %v", got.Level)
	}
}

func TestFileStoreSaveRejectsInvalidPolicy(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore("", filepath.Join(dir, "user.yaml"))
	err := s.Save(context.Background(), policy.AccessPolicy{Level: "bogus", MaxExecutionTimeSeconds: 10})
	if err == nil {
		t.Fatal("expected invalid policy to be rejected")
	}
}

func TestFileStoreSaveLeavesNoTempFileBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "user.yaml")
	s := NewFileStore("", path)
	if err := s.Save(context.Background(), policy.DefaultPolicy()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "user.yaml" {
		t.Errorf("expected only the final policy file to remain, got %v", entries)
	}
}
