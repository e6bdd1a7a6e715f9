// Package daemon implements the Privileged Daemon (C7): a root-owned
// process serving access decisions and executing approved commands over
// a local stream socket, authenticated solely by kernel-provided peer
// credentials (spec.md §4.6/§6.1).
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"os/user"
	"path/filepath"
	"sync"
	"time"

	"github.com/G-TechSD/ganesha-ai/internal/ctxkey"
	"github.com/G-TechSD/ganesha-ai/internal/domain/audit"
	"github.com/G-TechSD/ganesha-ai/internal/domain/policy"
	"github.com/G-TechSD/ganesha-ai/internal/domain/session"
	"github.com/G-TechSD/ganesha-ai/internal/telemetry"
	"github.com/G-TechSD/ganesha-ai/pkg/wire"
)

// AccessController is the subset of service.AccessController the daemon
// calls for its authoritative re-check of every incoming command.
type AccessController interface {
	CheckWithContext(command, workingDir, userName string, uid int) policy.Decision
}

// AuditRecorder is the subset of service.AuditPipeline the daemon uses
// to record a decision before the client ever sees the response, per
// spec §4.6's ordering guarantee.
type AuditRecorder interface {
	RecordDecision(ctx context.Context, eventID audit.EventID, command string, decision policy.Decision, sessionID string) error

	// RecordEvent records a standalone event with no associated access
	// decision: daemon start/stop, or a request that failed before a
	// decision could even be attempted (malformed body, bad peer creds).
	RecordEvent(ctx context.Context, eventID audit.EventID, message string) error
}

// Executor runs an approved command and returns its result. Satisfied
// by *executor.ShellExecutor (internal/adapter/outbound/executor).
type Executor interface {
	Run(ctx context.Context, command, workingDir string, timeout time.Duration, maxOutputBytes int) (output string, exitCode int, timedOut bool, err error)
}

// Config bundles the daemon's listen parameters (SPEC_FULL.md §1.3's
// DaemonConfig.Daemon section, passed through rather than re-imported
// to keep this package free of a config dependency).
type Config struct {
	SocketPath              string
	SocketGroup             string
	ReadCapBytes            int64
	ReadTimeout             time.Duration
	DrainWindow             time.Duration
	MaxExecutionTimeSeconds int
	MaxOutputBytes          int
}

// Daemon owns the listening socket and dispatches connections to the
// Access Controller and Executor.
type Daemon struct {
	cfg        Config
	controller AccessController
	executor   Executor
	audit      AuditRecorder
	logger     *log.Logger
	telemetry  *telemetry.Provider

	listener net.Listener

	wg      sync.WaitGroup
	mu      sync.Mutex
	closing bool
}

// Option customizes a Daemon built by New. Added so new optional
// collaborators (telemetry, and whatever follows it) don't force a
// signature change on every existing call site.
type Option func(*Daemon)

// WithTelemetry attaches an observability Provider. Without this
// option, Serve instruments with a disabled Provider whose span/metric
// calls are no-ops.
func WithTelemetry(p *telemetry.Provider) Option {
	return func(d *Daemon) { d.telemetry = p }
}

// New builds a Daemon. It does not bind the socket; call Serve for that.
func New(cfg Config, controller AccessController, executor Executor, recorder AuditRecorder, logger *log.Logger, opts ...Option) *Daemon {
	d := &Daemon{cfg: cfg, controller: controller, executor: executor, audit: recorder, logger: logger}
	for _, opt := range opts {
		opt(d)
	}
	if d.telemetry == nil {
		d.telemetry, _ = telemetry.NewProvider(telemetry.Config{})
	}
	return d
}

// Serve binds the socket, sets its ownership and permissions, and
// accepts connections until ctx is cancelled. On cancellation it stops
// accepting, waits up to cfg.DrainWindow for in-flight connections,
// then unlinks the socket (spec.md §4.6 step 6 / §9's shutdown
// sequence).
func (d *Daemon) Serve(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(d.cfg.SocketPath), 0o755); err != nil {
		return fmt.Errorf("create socket directory: %w", err)
	}
	if err := removeStaleSocket(d.cfg.SocketPath); err != nil {
		return fmt.Errorf("remove stale socket: %w", err)
	}

	ln, err := net.Listen("unix", d.cfg.SocketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", d.cfg.SocketPath, err)
	}
	d.listener = ln
	defer func() { _ = os.Remove(d.cfg.SocketPath) }()

	if err := setSocketOwnership(d.cfg.SocketPath, d.cfg.SocketGroup, d.logger); err != nil {
		d.logger.Printf("WARNING: socket ownership not applied: %v", err)
	}

	_ = d.audit.RecordEvent(context.Background(), audit.DaemonStart, "daemon listening on "+d.cfg.SocketPath)
	defer func() {
		_ = d.audit.RecordEvent(context.Background(), audit.DaemonStop, "daemon stopped")
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = d.telemetry.Shutdown(shutdownCtx)
	}()

	go func() {
		<-ctx.Done()
		d.mu.Lock()
		d.closing = true
		d.mu.Unlock()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			d.mu.Lock()
			closing := d.closing
			d.mu.Unlock()
			if closing {
				break
			}
			d.logger.Printf("accept error: %v", err)
			continue
		}
		d.wg.Add(1)
		go d.handleConnection(conn)
	}

	drained := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(d.cfg.DrainWindow):
		d.logger.Printf("WARNING: drain window exceeded, remaining connections are abandoned")
	}
	return nil
}

// handleConnection services exactly one request/response per
// connection, recovering from any panic so one bad connection cannot
// crash the daemon (SPEC_FULL.md §1.1's recover-and-log carryover from
// the teacher's argon2id panic safety).
func (d *Daemon) handleConnection(conn net.Conn) {
	defer d.wg.Done()
	defer func() { _ = conn.Close() }()
	defer func() {
		if r := recover(); r != nil {
			d.logger.Printf("ERROR: panic handling connection: %v", r)
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(d.cfg.ReadTimeout))

	spanCtx, span := d.telemetry.StartRequest(context.Background())
	var handlerErr error
	defer func() { d.telemetry.EndRequest(span, handlerErr) }()

	req, err := wire.ReadRequest(conn, d.cfg.ReadCapBytes)
	if err != nil {
		handlerErr = err
		_ = d.audit.RecordEvent(context.Background(), audit.InvalidRequest, "malformed request: "+err.Error())
		_ = wire.WriteResponse(conn, wire.CommandResponse{
			Success: false, Error: "invalid request", ExitCode: -1, RiskLevel: wire.RiskUnknown,
		})
		return
	}
	d.telemetry.SetRequestID(span, req.RequestID)

	uid, pid, err := peerCredentials(conn)
	if err != nil {
		handlerErr = err
		d.logger.Printf("ERROR: peer credential lookup failed: %v", err)
		_ = d.audit.RecordEvent(context.Background(), audit.AuthenticationFailed, "peer credential lookup failed: "+err.Error())
		_ = wire.WriteResponse(conn, wire.CommandResponse{
			Success: false, Error: "authentication failed", ExitCode: -1,
			RiskLevel: wire.RiskUnknown, RequestID: req.RequestID,
		})
		return
	}
	req.UID = uid
	req.PID = pid
	req.UserName = resolveUserName(uid)

	timeout := clampTimeout(req.TimeoutSeconds, d.cfg.MaxExecutionTimeSeconds)

	start := time.Now()
	decision := d.controller.CheckWithContext(req.Command, req.WorkingDir, req.UserName, req.UID)
	d.telemetry.RecordDecision(spanCtx, span, decision.Allowed, decision.Risk.String())

	ctx := ctxkey.WithRequestID(spanCtx, req.RequestID)
	sessionID := session.NewSessionID()

	if !decision.Allowed {
		_ = d.audit.RecordDecision(ctx, classifyDenyEvent(decision), req.Command, decision, sessionID)
		_ = wire.WriteResponse(conn, wire.CommandResponse{
			Success: false, Error: decision.Reason, ExitCode: -1,
			RiskLevel: wire.RiskLevel(decision.Risk.String()), RequestID: req.RequestID,
			ExecutionTimeMs: time.Since(start).Milliseconds(),
		})
		d.telemetry.ObserveCommandDuration("deny", time.Since(start).Seconds())
		return
	}

	output, exitCode, timedOut, runErr := d.executor.Run(ctx, req.Command, req.WorkingDir,
		time.Duration(timeout)*time.Second, d.cfg.MaxOutputBytes)

	resp := wire.CommandResponse{
		Output:          output,
		ExitCode:        exitCode,
		RiskLevel:       wire.RiskLevel(decision.Risk.String()),
		RequestID:       req.RequestID,
		ExecutionTimeMs: time.Since(start).Milliseconds(),
	}

	eventID := audit.CommandExecuted
	outcome := "allow"
	switch {
	case timedOut:
		resp.Success = false
		resp.Error = "timeout"
		eventID = audit.Timeout
		outcome = "timeout"
	case runErr != nil:
		resp.Success = false
		resp.Error = runErr.Error()
		eventID = audit.ExecutionFailed
		handlerErr = runErr
		outcome = "failed"
	default:
		resp.Success = true
	}
	_ = d.audit.RecordDecision(ctx, eventID, req.Command, decision, sessionID)
	d.telemetry.ObserveCommandDuration(outcome, time.Since(start).Seconds())
	_ = wire.WriteResponse(conn, resp)
}

// classifyDenyEvent maps a deny Decision to the audit event it should be
// recorded under (spec §6.4): a self-invocation or catastrophic-command
// match from the ALWAYS_DENIED step gets its own distinct critical event;
// anything else (blacklist, preset, whitelist miss) is a generic deny.
func classifyDenyEvent(d policy.Decision) audit.EventID {
	if d.MatchedRuleOrigin != policy.OriginAlwaysDenied {
		return audit.CommandDenied
	}
	switch d.DenyCategory {
	case policy.DenyCategorySelfInvocation:
		return audit.SelfInvocationBlocked
	case policy.DenyCategoryLogTampering:
		return audit.LogTamperingAttempt
	case policy.DenyCategoryCritical:
		return audit.CriticalCommandBlocked
	default:
		return audit.CommandDenied
	}
}

// clampTimeout bounds requested into [1, maxSeconds], per spec §4.6
// step 3. A non-positive request is treated as 1, never as "no limit".
func clampTimeout(requested, maxSeconds int) int {
	if requested < 1 {
		return 1
	}
	if requested > maxSeconds {
		return maxSeconds
	}
	return requested
}

// resolveUserName resolves uid to a user name, falling back to
// "unknown" per spec §4.6 step 1.
func resolveUserName(uid int) string {
	u, err := user.LookupId(fmt.Sprint(uid))
	if err != nil {
		return "unknown"
	}
	return u.Username
}

// removeStaleSocket unlinks path if a stale socket file is present.
func removeStaleSocket(path string) error {
	if _, err := os.Stat(path); err == nil {
		if err := os.Remove(path); err != nil {
			return err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
