// Package syslogger emits audit.Event records to the OS-level log
// (syslog LOCAL0 on Unix, a structured fallback elsewhere), falling back
// to a file when no OS log transport is reachable. No example repo in
// the corpus carries a syslog/journald client, so this is built directly
// against net.Dial("unixgram", ...) rather than a third-party package;
// see DESIGN.md for the justification.
package syslogger

import (
	"fmt"
	"io"
	"net"
	"os"
	"sync"

	"github.com/G-TechSD/ganesha-ai/internal/domain/audit"
)

const (
	// facilityLocal0 is syslog facility 16 (local0), left-shifted into
	// the priority value per RFC 3164.
	facilityLocal0 = 16 << 3
)

var levelSeverity = map[audit.Level]int{
	audit.LevelDebug:    7,
	audit.LevelInfo:     6,
	audit.LevelWarning:  4,
	audit.LevelError:    3,
	audit.LevelCritical: 2,
}

// Sink is a single OS-log transport. Logger fans an event out to every
// configured sink; a sink failing to write never blocks the others.
type Sink interface {
	Emit(ev audit.Event) error
	Close() error
}

// Logger emits events to all configured Sinks. The zero value has no
// sinks and Emit is a no-op; use New to wire real transports.
type Logger struct {
	mu    sync.Mutex
	sinks []Sink
}

// New returns a Logger over sinks, in the order they should be tried.
func New(sinks ...Sink) *Logger {
	return &Logger{sinks: sinks}
}

// Emit writes ev to every sink, collecting (not stopping on) errors.
func (l *Logger) Emit(ev audit.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var errs []error
	for _, s := range l.sinks {
		if err := s.Emit(ev); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %v", audit.ErrAuditSink, errs)
	}
	return nil
}

// Close closes every sink.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var errs []error
	for _, s := range l.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close sinks: %v", errs)
	}
	return nil
}

// UnixSyslogSink writes RFC-3164 formatted lines to a Unix datagram
// socket, the standard local transport for syslog (/dev/log) and the
// systemd-journald compatibility socket
// (/run/systemd/journal/syslog) alike.
type UnixSyslogSink struct {
	tag  string
	conn net.Conn
}

// DialUnixSyslog connects to a Unix datagram socket at path (typically
// "/dev/log"). tag identifies the emitting process in each line.
func DialUnixSyslog(path, tag string) (*UnixSyslogSink, error) {
	conn, err := net.Dial("unixgram", path)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", audit.ErrAuditSink, path, err)
	}
	return &UnixSyslogSink{tag: tag, conn: conn}, nil
}

// Emit writes ev as a single RFC-3164 line: "<PRI>tag: message key=value ...".
func (s *UnixSyslogSink) Emit(ev audit.Event) error {
	pri := facilityLocal0 | levelSeverity[ev.Level]
	line := fmt.Sprintf("<%d>%s: %s", pri, s.tag, formatLine(ev))
	_, err := s.conn.Write([]byte(line))
	if err != nil {
		return fmt.Errorf("%w: write syslog datagram: %v", audit.ErrAuditSink, err)
	}
	return nil
}

// Close releases the underlying socket.
func (s *UnixSyslogSink) Close() error {
	return s.conn.Close()
}

// FileSink appends formatted lines to a plain file, used when no OS log
// transport is reachable (spec §4.5's fallback requirement).
type FileSink struct {
	f io.WriteCloser
}

// NewFileSink opens path for appending, creating it if absent.
func NewFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", audit.ErrAuditSink, path, err)
	}
	return &FileSink{f: f}, nil
}

// Emit appends a formatted line terminated with a newline.
func (s *FileSink) Emit(ev audit.Event) error {
	_, err := fmt.Fprintf(s.f, "%s\n", formatLine(ev))
	if err != nil {
		return fmt.Errorf("%w: write log file: %v", audit.ErrAuditSink, err)
	}
	return nil
}

// Close closes the underlying file.
func (s *FileSink) Close() error {
	return s.f.Close()
}

func formatLine(ev audit.Event) string {
	line := fmt.Sprintf("%s [%s] %s hostname=%s", ev.Timestamp.Format("2006-01-02T15:04:05Z07:00"), ev.Level, ev.Message, ev.Hostname)
	if ev.User != "" {
		line += fmt.Sprintf(" user=%s", ev.User)
	}
	if ev.Command != "" {
		line += fmt.Sprintf(" command=%q", ev.SyslogCommand())
	}
	if ev.RiskLevel != "" {
		line += fmt.Sprintf(" risk_level=%s", ev.RiskLevel)
	}
	if ev.Allowed != nil {
		line += fmt.Sprintf(" allowed=%t", *ev.Allowed)
	}
	if ev.SessionID != "" {
		line += fmt.Sprintf(" session_id=%s", ev.SessionID)
	}
	return line
}
