// Package privclient implements the Privileged Client (C8): the
// front-end's gateway to privileged execution. It either round-trips a
// command to the Privileged Daemon over its local socket, or — when the
// daemon is unreachable — runs the command in the current process with
// a locally loaded policy, never relaxing ALWAYS_DENIED or the
// Manipulation Detector in that fallback (spec.md §4.7).
package privclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/G-TechSD/ganesha-ai/internal/domain/manipulation"
	"github.com/G-TechSD/ganesha-ai/internal/domain/policy"
	"github.com/G-TechSD/ganesha-ai/pkg/wire"
)

// Result wraps a wire.CommandResponse with the trust-mode marker spec
// §4.7 requires: callers must be able to tell whether a result came
// from the privileged daemon or the unprivileged direct-execution
// fallback.
type Result struct {
	wire.CommandResponse
	UsedDaemon bool
}

// Executor runs an approved command locally. Satisfied by
// *executor.ShellExecutor — the same interface the daemon itself uses,
// so ExecuteDirect and the daemon's handleConnection share one
// execution strategy.
type Executor interface {
	Run(ctx context.Context, command, workingDir string, timeout time.Duration, maxOutputBytes int) (output string, exitCode int, timedOut bool, err error)
}

// AccessController is the subset of service.AccessController the direct
// fallback consults for its own, unprivileged-process policy check.
type AccessController interface {
	Check(command string) policy.Decision
}

// Client connects callers to the daemon's socket, falling back to
// local execution when the socket can't be reached.
type Client struct {
	SocketPath     string
	DialTimeout    time.Duration
	Controller     AccessController
	Detector       *manipulation.Detector
	Executor       Executor
	MaxOutputBytes int
}

// New builds a Client. controller, detector, and executor back the
// ExecuteDirect fallback path only; Execute never touches them.
func New(socketPath string, controller AccessController, detector *manipulation.Detector, executor Executor, maxOutputBytes int) *Client {
	return &Client{
		SocketPath:     socketPath,
		DialTimeout:    2 * time.Second,
		Controller:     controller,
		Detector:       detector,
		Executor:       executor,
		MaxOutputBytes: maxOutputBytes,
	}
}

// IsDaemonAvailable reports whether the daemon's socket exists and
// accepts a connection right now. It does not send a request.
func (c *Client) IsDaemonAvailable(ctx context.Context) bool {
	d := net.Dialer{Timeout: c.DialTimeout}
	conn, err := d.DialContext(ctx, "unix", c.SocketPath)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// Execute round-trips command to the daemon over its socket. Callers
// should fall back to ExecuteDirect themselves on error — Execute does
// not fall back on its own, so a caller can distinguish "daemon
// reachable but refused" from "daemon unreachable".
func (c *Client) Execute(ctx context.Context, command, workingDir string, timeout time.Duration) (Result, error) {
	d := net.Dialer{Timeout: c.DialTimeout}
	conn, err := d.DialContext(ctx, "unix", c.SocketPath)
	if err != nil {
		return Result{}, fmt.Errorf("dial daemon socket: %w", err)
	}
	defer func() { _ = conn.Close() }()

	req := wire.CommandRequest{
		Command:        command,
		WorkingDir:     workingDir,
		TimeoutSeconds: int(timeout.Seconds()),
		RequestID:      uuid.NewString(),
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(timeout + c.DialTimeout))
	}
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return Result{}, fmt.Errorf("send request: %w", err)
	}

	var resp wire.CommandResponse
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return Result{}, fmt.Errorf("read response: %w", err)
	}
	return Result{CommandResponse: resp, UsedDaemon: true}, nil
}

// ExecuteDirect runs command in the current process's privileges,
// without the daemon. It still enforces ALWAYS_DENIED (via Controller,
// whose RuleSet always carries the hardcoded deny patterns regardless
// of configured access level) and the Manipulation Detector on the
// command's explanation text, closing the gap spec §4.7 calls out in
// the system this was adapted from: a missing daemon removes privilege
// escalation, never the filters.
func (c *Client) ExecuteDirect(ctx context.Context, command, workingDir, explanation string, timeout time.Duration) (Result, error) {
	if c.Detector != nil && explanation != "" {
		if flagged, reason := c.Detector.Contains(explanation); flagged {
			return Result{
				CommandResponse: wire.CommandResponse{
					Success:   false,
					Error:     fmt.Sprintf("manipulation detected: %s", reason),
					ExitCode:  -1,
					RiskLevel: wire.RiskCritical,
				},
				UsedDaemon: false,
			}, nil
		}
	}

	decision := c.Controller.Check(command)
	if !decision.Allowed {
		return Result{
			CommandResponse: wire.CommandResponse{
				Success:   false,
				Error:     decision.Reason,
				ExitCode:  -1,
				RiskLevel: wire.RiskLevel(decision.Risk.String()),
			},
			UsedDaemon: false,
		}, nil
	}

	output, exitCode, timedOut, err := c.Executor.Run(ctx, command, workingDir, timeout, c.MaxOutputBytes)
	resp := wire.CommandResponse{
		Output:    output,
		ExitCode:  exitCode,
		RiskLevel: wire.RiskLevel(decision.Risk.String()),
	}
	switch {
	case timedOut:
		resp.Success = false
		resp.Error = "timeout"
	case err != nil:
		resp.Success = false
		resp.Error = err.Error()
	default:
		resp.Success = true
	}
	return Result{CommandResponse: resp, UsedDaemon: false}, nil
}

// Status reports whether the daemon is reachable right now. The
// "policy snapshot" half of spec §4.7's status() is served by the
// daemon's own decision data in each Execute response; Status here only
// answers liveness, matching IsDaemonAvailable but returning a named
// type for CLI/consumer use.
type Status struct {
	DaemonAvailable bool
	SocketPath      string
}

func (c *Client) Status(ctx context.Context) Status {
	return Status{DaemonAvailable: c.IsDaemonAvailable(ctx), SocketPath: c.SocketPath}
}
