package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/G-TechSD/ganesha-ai/internal/domain/audit"
	"github.com/G-TechSD/ganesha-ai/internal/domain/policy"
	"github.com/G-TechSD/ganesha-ai/pkg/wire"
)

func TestClampTimeout(t *testing.T) {
	cases := []struct {
		requested, max, want int
	}{
		{requested: 0, max: 300, want: 1},
		{requested: -5, max: 300, want: 1},
		{requested: 30, max: 300, want: 30},
		{requested: 9999, max: 300, want: 300},
		{requested: 300, max: 300, want: 300},
	}
	for _, c := range cases {
		if got := clampTimeout(c.requested, c.max); got != c.want {
			t.Errorf("clampTimeout(%d, %d) = %d, want %d", c.requested, c.max, got, c.want)
		}
	}
}

func TestResolveUserNameFallsBackToUnknown(t *testing.T) {
	if got := resolveUserName(-1); got != "unknown" {
		t.Errorf("resolveUserName(-1) = %q, want %q", got, "unknown")
	}
}

type fakeController struct {
	decision policy.Decision
}

func (f *fakeController) CheckWithContext(_, _, _ string, _ int) policy.Decision {
	return f.decision
}

type fakeExecutor struct {
	output   string
	exitCode int
	timedOut bool
	err      error
}

func (f *fakeExecutor) Run(_ context.Context, _, _ string, _ time.Duration, _ int) (string, int, bool, error) {
	return f.output, f.exitCode, f.timedOut, f.err
}

type fakeRecorder struct {
	calls       int
	eventCalls  int
	lastEventID audit.EventID
}

func (f *fakeRecorder) RecordDecision(_ context.Context, eventID audit.EventID, _ string, _ policy.Decision, _ string) error {
	f.calls++
	f.lastEventID = eventID
	return nil
}

func (f *fakeRecorder) RecordEvent(_ context.Context, eventID audit.EventID, _ string) error {
	f.eventCalls++
	f.lastEventID = eventID
	return nil
}

func TestClassifyDenyEvent(t *testing.T) {
	cases := []struct {
		name string
		d    policy.Decision
		want audit.EventID
	}{
		{"generic blacklist deny", policy.Decision{MatchedRuleOrigin: policy.OriginBlacklist}, audit.CommandDenied},
		{"self invocation", policy.Decision{MatchedRuleOrigin: policy.OriginAlwaysDenied, DenyCategory: policy.DenyCategorySelfInvocation}, audit.SelfInvocationBlocked},
		{"log tampering", policy.Decision{MatchedRuleOrigin: policy.OriginAlwaysDenied, DenyCategory: policy.DenyCategoryLogTampering}, audit.LogTamperingAttempt},
		{"critical", policy.Decision{MatchedRuleOrigin: policy.OriginAlwaysDenied, DenyCategory: policy.DenyCategoryCritical}, audit.CriticalCommandBlocked},
		{"uncategorized always-denied", policy.Decision{MatchedRuleOrigin: policy.OriginAlwaysDenied}, audit.CommandDenied},
	}
	for _, c := range cases {
		if got := classifyDenyEvent(c.d); got != c.want {
			t.Errorf("%s: classifyDenyEvent() = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestServeAllowedCommandRoundTrips(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "daemon.sock")
	controller := &fakeController{decision: policy.Decision{Allowed: true, Risk: policy.RiskLow, Reason: "matched whitelist"}}
	executor := &fakeExecutor{output: "hello\n", exitCode: 0}
	recorder := &fakeRecorder{}

	d := New(Config{
		SocketPath:              sockPath,
		SocketGroup:             "nonexistent-test-group",
		ReadCapBytes:            65536,
		ReadTimeout:             5 * time.Second,
		DrainWindow:             time.Second,
		MaxExecutionTimeSeconds: 60,
		MaxOutputBytes:          1 << 20,
	}, controller, executor, recorder, log.New(os.Stderr, "", 0))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Serve(ctx) }()

	waitForSocket(t, sockPath)

	conn, err := net.Dial("unix", sockPath)
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	req := wire.CommandRequest{Command: "echo hello", WorkingDir: "/tmp", TimeoutSeconds: 10, RequestID: "req-1"}
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		t.Fatalf("encode request: %v", err)
	}

	var resp wire.CommandResponse
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	_ = conn.Close()

	if !resp.Success || resp.Output != "hello\n" || resp.RequestID != "req-1" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if recorder.calls != 1 {
		t.Errorf("audit recorder called %d times, want 1", recorder.calls)
	}
	if recorder.lastEventID != audit.CommandExecuted {
		t.Errorf("audit event = %v, want CommandExecuted", recorder.lastEventID)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Serve() error: %v", err)
	}
}

func TestServeTimedOutCommandRecordsTimeoutEvent(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "daemon.sock")
	controller := &fakeController{decision: policy.Decision{Allowed: true, Risk: policy.RiskMedium, Reason: "allowed by preset"}}
	executor := &fakeExecutor{timedOut: true}
	recorder := &fakeRecorder{}

	d := New(Config{
		SocketPath: sockPath, SocketGroup: "nonexistent-test-group",
		ReadCapBytes: 65536, ReadTimeout: 5 * time.Second, DrainWindow: time.Second,
		MaxExecutionTimeSeconds: 60, MaxOutputBytes: 1 << 20,
	}, controller, executor, recorder, log.New(os.Stderr, "", 0))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Serve(ctx) }()
	defer cancel()

	waitForSocket(t, sockPath)

	conn, err := net.Dial("unix", sockPath)
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	req := wire.CommandRequest{Command: "sleep 999", WorkingDir: "/tmp", TimeoutSeconds: 1, RequestID: "req-3"}
	_ = json.NewEncoder(conn).Encode(req)

	var resp wire.CommandResponse
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	_ = conn.Close()

	if resp.Success {
		t.Error("Success = true, want false for a timed-out command")
	}
	if recorder.lastEventID != audit.Timeout {
		t.Errorf("audit event = %v, want Timeout", recorder.lastEventID)
	}

	cancel()
	<-done
}

func TestServeDeniedCommandNeverExecutes(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "daemon.sock")
	controller := &fakeController{decision: policy.Decision{Allowed: false, Risk: policy.RiskCritical, Reason: "matched always-denied pattern"}}
	executor := &fakeExecutor{err: errors.New("must not be called")}
	recorder := &fakeRecorder{}

	d := New(Config{
		SocketPath: sockPath, SocketGroup: "nonexistent-test-group",
		ReadCapBytes: 65536, ReadTimeout: 5 * time.Second, DrainWindow: time.Second,
		MaxExecutionTimeSeconds: 60, MaxOutputBytes: 1 << 20,
	}, controller, executor, recorder, log.New(os.Stderr, "", 0))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Serve(ctx) }()
	defer cancel()

	waitForSocket(t, sockPath)

	conn, err := net.Dial("unix", sockPath)
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	req := wire.CommandRequest{Command: "rm -rf /", WorkingDir: "/tmp", TimeoutSeconds: 10, RequestID: "req-2"}
	_ = json.NewEncoder(conn).Encode(req)

	var resp wire.CommandResponse
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	_ = conn.Close()

	if resp.Success {
		t.Error("Success = true, want false for denied command")
	}
	if resp.ExitCode != -1 {
		t.Errorf("ExitCode = %d, want -1 (not executed)", resp.ExitCode)
	}

	cancel()
	<-done
}

func waitForSocket(t *testing.T, path string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(path); err == nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("socket %s was never created", path)
}
