package service

import (
	"context"
	"errors"
	"testing"

	"github.com/G-TechSD/ganesha-ai/internal/domain/audit"
	"github.com/G-TechSD/ganesha-ai/internal/domain/policy"
)

type fakeAuditStore struct {
	events []audit.Event
	err    error
}

func (f *fakeAuditStore) Append(_ context.Context, events ...audit.Event) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, events...)
	return nil
}

func (f *fakeAuditStore) Close() error { return nil }

type fakeSystemLogger struct {
	emitted []audit.Event
	err     error
}

func (f *fakeSystemLogger) Emit(ev audit.Event) error {
	if f.err != nil {
		return f.err
	}
	f.emitted = append(f.emitted, ev)
	return nil
}

func TestAuditPipelineRecordDecisionWritesBothSinks(t *testing.T) {
	store := &fakeAuditStore{}
	sysLog := &fakeSystemLogger{}
	pipeline := NewAuditPipeline(store, sysLog, "testhost")

	decision := policy.Decision{Allowed: true, Risk: policy.RiskLow, Reason: "matched whitelist"}
	err := pipeline.RecordDecision(context.Background(), audit.CommandExecuted, "ls -la", decision, "sess-1")
	if err != nil {
		t.Fatalf("RecordDecision() error: %v", err)
	}

	if len(store.events) != 1 || len(sysLog.emitted) != 1 {
		t.Fatalf("expected one event in each sink, got store=%d syslog=%d", len(store.events), len(sysLog.emitted))
	}
	ev := store.events[0]
	if ev.SessionID != "sess-1" || ev.RiskLevel != "low" || ev.Allowed == nil || !*ev.Allowed {
		t.Errorf("unexpected event fields: %+v", ev)
	}
}

func TestAuditPipelineRecordReturnsErrorWhenStoreFails(t *testing.T) {
	store := &fakeAuditStore{err: errors.New("disk full")}
	sysLog := &fakeSystemLogger{}
	pipeline := NewAuditPipeline(store, sysLog, "testhost")

	err := pipeline.Record(context.Background(), audit.NewEvent(audit.CommandExecuted, "testhost", "ok"))
	if !errors.Is(err, audit.ErrAuditSink) {
		t.Errorf("Record() error = %v, want wrapping ErrAuditSink", err)
	}
	if len(sysLog.emitted) != 1 {
		t.Errorf("expected syslog to still receive the event, got %d", len(sysLog.emitted))
	}
}

func TestAuditPipelineRecordSucceedsWithNilSystemLogger(t *testing.T) {
	store := &fakeAuditStore{}
	pipeline := NewAuditPipeline(store, nil, "testhost")

	err := pipeline.Record(context.Background(), audit.NewEvent(audit.CommandExecuted, "testhost", "ok"))
	if err != nil {
		t.Fatalf("Record() error: %v", err)
	}
}
