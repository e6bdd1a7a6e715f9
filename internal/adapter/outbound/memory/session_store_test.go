// Package memory provides in-memory implementations of outbound ports.
package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/G-TechSD/ganesha-ai/internal/domain/plan"
	"github.com/G-TechSD/ganesha-ai/internal/domain/session"
)

func TestSessionStoreSaveThenGet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewSessionStore()

	sess := session.New("install nginx")
	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	got, err := store.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.ID != sess.ID || got.Task != sess.Task {
		t.Errorf("Get() = %+v, want %+v", got, sess)
	}
}

func TestSessionStoreGetMissingReturnsNotFound(t *testing.T) {
	t.Parallel()

	store := NewSessionStore()
	_, err := store.Get(context.Background(), "nonexistent")
	if !errors.Is(err, session.ErrSessionNotFound) {
		t.Errorf("Get() error = %v, want ErrSessionNotFound", err)
	}
}

func TestSessionStoreReturnsCopyNotReference(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewSessionStore()

	sess := session.New("cleanup")
	sess.RecordExecution(plan.Action{ID: "a1", Command: "rm /tmp/x"}, session.ExecutionResult{Success: true})
	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	got1, err := store.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	got1.Task = "mutated"
	got1.ExecutedActions[0].Command = "mutated"

	got2, err := store.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got2.Task == "mutated" {
		t.Error("store returned reference instead of copy (Task was mutated)")
	}
	if got2.ExecutedActions[0].Command == "mutated" {
		t.Error("store returned reference instead of copy (ExecutedActions was mutated)")
	}
}

func TestSessionStoreList(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewSessionStore()

	s1 := session.New("task one")
	s2 := session.New("task two")
	_ = store.Save(ctx, s1)
	_ = store.Save(ctx, s2)

	ids, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("List() returned %d ids, want 2", len(ids))
	}
}

func TestSessionStoreConcurrentAccess(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewSessionStore()

	var wg sync.WaitGroup
	errCh := make(chan error, 200)

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess := session.New("concurrent task")
			if err := store.Save(ctx, sess); err != nil {
				errCh <- err
			}
		}()
	}
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.List(ctx); err != nil {
				errCh <- err
			}
		}()
	}

	wg.Wait()
	close(errCh)

	for err := range errCh {
		t.Errorf("concurrent access error: %v", err)
	}
}
