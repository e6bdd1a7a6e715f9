package audit

import (
	"context"
	"errors"
	"time"
)

// ErrDateRangeExceeded is returned when a query's date range exceeds the
// maximum the query store supports.
var ErrDateRangeExceeded = errors.New("date range exceeds maximum of 7 days")

// ErrAuditSink is returned when a Store or System Logger sink fails to
// durably record an event (spec §7's AuditSinkError).
var ErrAuditSink = errors.New("audit sink error")

// Store is the Audit Log (C6): a single-writer, append-only sink for
// Events. Append must write and fsync one line per event before returning,
// per spec §4.6's ordering guarantee (a decision's audit line precedes the
// client ever seeing the response).
type Store interface {
	Append(ctx context.Context, events ...Event) error
	Close() error
}

// Filter specifies query parameters over an audit log, for the optional
// query index (SPEC_FULL.md §2 DOMAIN STACK, sqlite-backed).
type Filter struct {
	StartTime time.Time
	EndTime   time.Time
	SessionID string
	EventID   EventID
	Level     Level
	Limit     int
	Cursor    string
}

// Stats contains aggregated counts for a time range.
type Stats struct {
	TotalEvents int64
	ByLevel     map[Level]int64
	ByEventID   map[EventID]int64
	Denied      int64
	Allowed     int64
}

// QueryStore provides read access to the audit trail for the config tool's
// reporting and the (optional) sqlite-backed index. Query stores are
// derived/rebuildable from the authoritative JSONL log; a QueryStore is
// never the system of record.
type QueryStore interface {
	Query(ctx context.Context, filter Filter) ([]Event, string, error)
	QueryStats(ctx context.Context, start, end time.Time) (*Stats, error)
}
