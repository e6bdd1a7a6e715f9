// Package policystore implements the Policy Store (C1): loading and
// atomically persisting the AccessPolicy, per spec.md §4.1.
package policystore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/G-TechSD/ganesha-ai/internal/domain/policy"
)

// Store is implemented by both the file adapter here and the in-memory
// test double in internal/adapter/outbound/memory.
type Store interface {
	Load(ctx context.Context) (policy.AccessPolicy, error)
	Save(ctx context.Context, p policy.AccessPolicy) error
}

// FileStore persists an AccessPolicy as YAML at a fixed path, per the
// canonical two-location search order: system path first, then the
// per-user path, first existing wins; if neither exists, Load returns
// policy.DefaultPolicy() (spec §4.1, §6.2).
type FileStore struct {
	systemPath string
	userPath   string
}

// NewFileStore builds a FileStore over the two canonical locations.
func NewFileStore(systemPath, userPath string) *FileStore {
	return &FileStore{systemPath: systemPath, userPath: userPath}
}

// Load reads whichever canonical path exists first (system, then user),
// falling back to the STANDARD default when neither does.
func (s *FileStore) Load(_ context.Context) (policy.AccessPolicy, error) {
	for _, path := range []string{s.systemPath, s.userPath} {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return policy.AccessPolicy{}, fmt.Errorf("%w: read %s: %v", policy.ErrPolicyLoad, path, err)
		}
		var p policy.AccessPolicy
		if err := yaml.Unmarshal(data, &p); err != nil {
			return policy.AccessPolicy{}, fmt.Errorf("%w: parse %s: %v", policy.ErrPolicyLoad, path, err)
		}
		if err := p.Validate(); err != nil {
			return policy.AccessPolicy{}, err
		}
		return p, nil
	}
	return policy.DefaultPolicy(), nil
}

// Save writes p to the user path (the config tool always writes the
// per-user location unless --system is given, in which case callers pass
// a FileStore whose userPath is the system path). The write is atomic:
// a temp file in the same directory, fsync, then rename, so a crash
// mid-write never leaves a truncated policy file (spec §4.1, correcting
// the naive overwrite in the prior implementation this was ported from).
func (s *FileStore) Save(_ context.Context, p policy.AccessPolicy) error {
	if err := p.Validate(); err != nil {
		return err
	}
	path := s.userPath
	if path == "" {
		path = s.systemPath
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("%w: create dir %s: %v", policy.ErrPolicyLoad, dir, err)
	}

	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("%w: marshal policy: %v", policy.ErrPolicyLoad, err)
	}

	tmp, err := os.CreateTemp(dir, ".privilege-*.yaml.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %v", policy.ErrPolicyLoad, err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: write temp file: %v", policy.ErrPolicyLoad, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: sync temp file: %v", policy.ErrPolicyLoad, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close temp file: %v", policy.ErrPolicyLoad, err)
	}
	if err := os.Chmod(tmpName, 0600); err != nil {
		return fmt.Errorf("%w: chmod temp file: %v", policy.ErrPolicyLoad, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%w: rename into place: %v", policy.ErrPolicyLoad, err)
	}
	return nil
}

var _ Store = (*FileStore)(nil)
