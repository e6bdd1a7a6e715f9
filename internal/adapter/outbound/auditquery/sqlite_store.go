// Package auditquery provides a sqlite-backed derived index over the
// Audit Log (C6), implementing audit.QueryStore (SPEC_FULL.md §2 DOMAIN
// STACK). The JSONL file written by adapter/outbound/audit remains the
// authoritative, tamper-evident record; this index exists only to make
// the config tool's reporting queries fast, and is safe to delete and
// rebuild at any time.
package auditquery

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"github.com/G-TechSD/ganesha-ai/internal/domain/audit"
)

// Store is a sqlite-backed audit.QueryStore. It also implements
// audit.Store so it can be attached as an additional, best-effort sink
// alongside the JSONL file store: a write failure here never blocks or
// fails the caller.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the sqlite index at path and runs
// its migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open audit query index: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate audit query index: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS events (
		timestamp  DATETIME NOT NULL,
		source     TEXT NOT NULL,
		event_id   INTEGER NOT NULL,
		event_name TEXT NOT NULL,
		level      TEXT NOT NULL,
		hostname   TEXT NOT NULL,
		message    TEXT NOT NULL,
		user       TEXT,
		command    TEXT,
		risk_level TEXT,
		allowed    INTEGER,
		reason     TEXT,
		session_id TEXT,
		request_id TEXT,
		extra      TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp);
	CREATE INDEX IF NOT EXISTS idx_events_session_id ON events(session_id);
	CREATE INDEX IF NOT EXISTS idx_events_event_id ON events(event_id);
	CREATE INDEX IF NOT EXISTS idx_events_level ON events(level);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append inserts events into the index. Per spec §4.6's ordering
// guarantee the JSONL file store is the sink that must durably succeed
// before a caller's response goes out; Append here is additive and its
// caller (AuditPipeline, when configured with a query index) treats a
// failure as a degraded-mode warning, never a hard error.
func (s *Store) Append(ctx context.Context, events ...audit.Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events (timestamp, source, event_id, event_name, level, hostname,
			message, user, command, risk_level, allowed, reason, session_id, request_id, extra)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, ev := range events {
		var allowed any
		if ev.Allowed != nil {
			allowed = *ev.Allowed
		}
		var extra any
		if len(ev.Extra) > 0 {
			b, marshalErr := json.Marshal(ev.Extra)
			if marshalErr != nil {
				return marshalErr
			}
			extra = string(b)
		}
		if _, err := stmt.ExecContext(ctx, ev.Timestamp, ev.Source, int(ev.EventID), ev.EventName,
			string(ev.Level), ev.Hostname, ev.Message, ev.User, ev.Command, ev.RiskLevel,
			allowed, ev.Reason, ev.SessionID, ev.RequestID, extra); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Query returns events matching filter, most recent first, plus a
// cursor for the next page (the offset encoded as a decimal string; ""
// once exhausted). Per spec's query-index contract the caller is
// expected to bound StartTime/EndTime to at most 7 days.
func (s *Store) Query(ctx context.Context, filter audit.Filter) ([]audit.Event, string, error) {
	if !filter.StartTime.IsZero() && !filter.EndTime.IsZero() &&
		filter.EndTime.Sub(filter.StartTime) > 7*24*time.Hour {
		return nil, "", audit.ErrDateRangeExceeded
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := 0
	if filter.Cursor != "" {
		if o, err := strconv.Atoi(filter.Cursor); err == nil {
			offset = o
		}
	}

	query := `SELECT timestamp, source, event_id, event_name, level, hostname, message,
		user, command, risk_level, allowed, reason, session_id, request_id, extra
		FROM events WHERE 1=1`
	var args []any
	if !filter.StartTime.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, filter.StartTime)
	}
	if !filter.EndTime.IsZero() {
		query += " AND timestamp <= ?"
		args = append(args, filter.EndTime)
	}
	if filter.SessionID != "" {
		query += " AND session_id = ?"
		args = append(args, filter.SessionID)
	}
	if filter.EventID != 0 {
		query += " AND event_id = ?"
		args = append(args, int(filter.EventID))
	}
	if filter.Level != "" {
		query += " AND level = ?"
		args = append(args, string(filter.Level))
	}
	query += " ORDER BY timestamp DESC LIMIT ? OFFSET ?"
	args = append(args, limit+1, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var ev audit.Event
		var allowed sql.NullBool
		var extraJSON sql.NullString
		var eventID int
		if err := rows.Scan(&ev.Timestamp, &ev.Source, &eventID, &ev.EventName, &ev.Level,
			&ev.Hostname, &ev.Message, &ev.User, &ev.Command, &ev.RiskLevel, &allowed,
			&ev.Reason, &ev.SessionID, &ev.RequestID, &extraJSON); err != nil {
			return nil, "", err
		}
		ev.EventID = audit.EventID(eventID)
		if allowed.Valid {
			v := allowed.Bool
			ev.Allowed = &v
		}
		if extraJSON.Valid && extraJSON.String != "" {
			_ = json.Unmarshal([]byte(extraJSON.String), &ev.Extra)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	nextCursor := ""
	if len(events) > limit {
		events = events[:limit]
		nextCursor = strconv.Itoa(offset + limit)
	}
	return events, nextCursor, nil
}

// QueryStats aggregates event counts between start and end.
func (s *Store) QueryStats(ctx context.Context, start, end time.Time) (*audit.Stats, error) {
	stats := &audit.Stats{
		ByLevel:   make(map[audit.Level]int64),
		ByEventID: make(map[audit.EventID]int64),
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT level, event_id, allowed, COUNT(*) FROM events
		WHERE timestamp >= ? AND timestamp <= ?
		GROUP BY level, event_id, allowed`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var level string
		var eventID int
		var allowed sql.NullBool
		var count int64
		if err := rows.Scan(&level, &eventID, &allowed, &count); err != nil {
			return nil, err
		}
		stats.TotalEvents += count
		stats.ByLevel[audit.Level(level)] += count
		stats.ByEventID[audit.EventID(eventID)] += count
		if allowed.Valid {
			if allowed.Bool {
				stats.Allowed += count
			} else {
				stats.Denied += count
			}
		}
	}
	return stats, rows.Err()
}
