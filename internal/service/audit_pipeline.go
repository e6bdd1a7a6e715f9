package service

import (
	"context"
	"fmt"
	"os"

	"github.com/G-TechSD/ganesha-ai/internal/domain/audit"
	"github.com/G-TechSD/ganesha-ai/internal/domain/policy"
)

// SystemLogger emits one event to the OS log (syslog/journald/file
// fallback). Satisfied by *syslogger.Logger.
type SystemLogger interface {
	Emit(ev audit.Event) error
}

// AuditPipeline connects an Access Controller's decisions to the System
// Logger and the Audit Log, synchronously: per spec §4.6, the audit line
// is written and fsynced before the caller's response is returned, so a
// decision is never acted on without a durable record of it.
type AuditPipeline struct {
	store      audit.Store
	sysLog     SystemLogger
	hostname   string
	queryIndex audit.Store
}

// NewAuditPipeline builds a pipeline writing to store and sysLog. If
// hostname is empty, os.Hostname() is used (falling back to "unknown").
// An optional queryIndex (the sqlite-backed derived index, when
// configured) is written best-effort: a failure there never fails the
// caller, since store remains the system of record.
func NewAuditPipeline(store audit.Store, sysLog SystemLogger, hostname string, queryIndex ...audit.Store) *AuditPipeline {
	if hostname == "" {
		if h, err := os.Hostname(); err == nil {
			hostname = h
		} else {
			hostname = "unknown"
		}
	}
	p := &AuditPipeline{store: store, sysLog: sysLog, hostname: hostname}
	if len(queryIndex) > 0 {
		p.queryIndex = queryIndex[0]
	}
	return p
}

// RecordDecision builds the audit event for an Access Controller
// decision on command and writes it through both sinks before returning.
// eventID is whatever the caller classified the decision's outcome as
// (CommandExecuted, Timeout, ExecutionFailed, CommandDenied,
// SelfInvocationBlocked, CriticalCommandBlocked, LogTamperingAttempt);
// callers with no associated Decision (daemon start/stop, a request
// that never reached one) should use RecordEvent instead.
func (p *AuditPipeline) RecordDecision(ctx context.Context, eventID audit.EventID, command string, decision policy.Decision, sessionID string) error {
	allowed := decision.Allowed
	ev := audit.NewEvent(eventID, p.hostname, decision.Reason).WithCommand(command)
	ev.RiskLevel = decision.Risk.String()
	ev.Allowed = &allowed
	ev.Reason = decision.Reason
	ev.SessionID = sessionID
	return p.Record(ctx, ev)
}

// RecordEvent writes a standalone event that has no associated Access
// Controller decision: daemon lifecycle transitions, or a request that
// failed before a decision could even be attempted.
func (p *AuditPipeline) RecordEvent(ctx context.Context, eventID audit.EventID, message string) error {
	return p.Record(ctx, audit.NewEvent(eventID, p.hostname, message))
}

// Record writes ev through the system logger and the durable audit
// store, in that order, returning the first error encountered from
// either. Both are attempted even if one fails, so a syslog outage never
// silently suppresses the tamper-evident audit trail, and vice versa.
func (p *AuditPipeline) Record(ctx context.Context, ev audit.Event) error {
	var sysErr, storeErr error
	if p.sysLog != nil {
		sysErr = p.sysLog.Emit(ev)
	}
	storeErr = p.store.Append(ctx, ev)

	if p.queryIndex != nil {
		// Best-effort: the derived index never gates the response, and a
		// failure here is not folded into ErrAuditSink.
		_ = p.queryIndex.Append(ctx, ev)
	}

	switch {
	case sysErr != nil && storeErr != nil:
		return fmt.Errorf("%w: syslog: %v, audit store: %v", audit.ErrAuditSink, sysErr, storeErr)
	case sysErr != nil:
		return fmt.Errorf("%w: syslog: %v", audit.ErrAuditSink, sysErr)
	case storeErr != nil:
		return fmt.Errorf("%w: audit store: %v", audit.ErrAuditSink, storeErr)
	default:
		return nil
	}
}
