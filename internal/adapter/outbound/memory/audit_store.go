// Package memory provides in-memory implementations of outbound ports.
package memory

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/G-TechSD/ganesha-ai/internal/domain/audit"
)

const defaultRecentCap = 1000

// AuditStore implements audit.Store and audit.QueryStore writing events as
// JSON lines to a writer (stdout by default) and keeping a bounded
// in-memory ring buffer for queries. For tests; the daemon itself uses
// the file-backed adapter
// (internal/adapter/outbound/audit).
type AuditStore struct {
	encoder *json.Encoder
	writer  io.Writer
	mu      sync.Mutex
	recent  []audit.Event
	cap     int
}

func resolveCapacity(capacity ...int) int {
	if len(capacity) > 0 && capacity[0] > 0 {
		return capacity[0]
	}
	return defaultRecentCap
}

// NewAuditStore creates a new audit store writing to stdout. An optional
// capacity parameter sets the ring buffer size (default 1000).
func NewAuditStore(capacity ...int) *AuditStore {
	return NewAuditStoreWithWriter(os.Stdout, capacity...)
}

// NewAuditStoreWithWriter creates an audit store writing to the given
// writer. An optional capacity parameter sets the ring buffer size
// (default 1000).
func NewAuditStoreWithWriter(w io.Writer, capacity ...int) *AuditStore {
	cap := resolveCapacity(capacity...)
	return &AuditStore{
		encoder: json.NewEncoder(w),
		writer:  w,
		recent:  make([]audit.Event, 0, cap),
		cap:     cap,
	}
}

// Append stores events by writing them as JSON to the output and keeping
// them in the in-memory ring buffer.
func (s *AuditStore) Append(_ context.Context, events ...audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range events {
		if err := s.encoder.Encode(e); err != nil {
			return err
		}
		if len(s.recent) >= s.cap {
			copy(s.recent, s.recent[1:])
			s.recent[len(s.recent)-1] = e
		} else {
			s.recent = append(s.recent, e)
		}
	}
	return nil
}

// Close releases resources held by the underlying writer, if any.
func (s *AuditStore) Close() error {
	if f, ok := s.writer.(*os.File); ok && f != os.Stdout && f != os.Stderr {
		return f.Close()
	}
	return nil
}

// Recent returns the n most recent events, newest first.
func (s *AuditStore) Recent(n int) []audit.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := len(s.recent)
	if n > total {
		n = total
	}
	if n == 0 {
		return nil
	}
	result := make([]audit.Event, n)
	for i := 0; i < n; i++ {
		result[i] = s.recent[total-1-i]
	}
	return result
}

// Query retrieves events matching filter from the in-memory buffer,
// newest first. Pagination is not supported; the returned cursor is
// always empty.
func (s *AuditStore) Query(_ context.Context, filter audit.Filter) ([]audit.Event, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	var result []audit.Event
	for i := len(s.recent) - 1; i >= 0 && len(result) < limit; i-- {
		e := s.recent[i]
		if !filter.StartTime.IsZero() && e.Timestamp.Before(filter.StartTime) {
			continue
		}
		if !filter.EndTime.IsZero() && e.Timestamp.After(filter.EndTime) {
			continue
		}
		if filter.SessionID != "" && e.SessionID != filter.SessionID {
			continue
		}
		if filter.EventID != 0 && e.EventID != filter.EventID {
			continue
		}
		if filter.Level != "" && e.Level != filter.Level {
			continue
		}
		result = append(result, e)
	}
	return result, "", nil
}

// QueryStats summarizes events within [start, end].
func (s *AuditStore) QueryStats(_ context.Context, start, end time.Time) (*audit.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := &audit.Stats{
		ByLevel:   map[audit.Level]int64{},
		ByEventID: map[audit.EventID]int64{},
	}
	for _, e := range s.recent {
		if !start.IsZero() && e.Timestamp.Before(start) {
			continue
		}
		if !end.IsZero() && e.Timestamp.After(end) {
			continue
		}
		stats.TotalEvents++
		stats.ByLevel[e.Level]++
		stats.ByEventID[e.EventID]++
		if e.Allowed != nil {
			if *e.Allowed {
				stats.Allowed++
			} else {
				stats.Denied++
			}
		}
	}
	return stats, nil
}

var _ audit.Store = (*AuditStore)(nil)
var _ audit.QueryStore = (*AuditStore)(nil)
