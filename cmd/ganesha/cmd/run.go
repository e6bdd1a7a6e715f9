package cmd

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	auditstore "github.com/G-TechSD/ganesha-ai/internal/adapter/outbound/audit"
	"github.com/G-TechSD/ganesha-ai/internal/adapter/outbound/executor"
	"github.com/G-TechSD/ganesha-ai/internal/adapter/outbound/planner"
	"github.com/G-TechSD/ganesha-ai/internal/adapter/outbound/policystore"
	"github.com/G-TechSD/ganesha-ai/internal/adapter/outbound/privclient"
	"github.com/G-TechSD/ganesha-ai/internal/adapter/outbound/sessionstore"
	"github.com/G-TechSD/ganesha-ai/internal/config"
	"github.com/G-TechSD/ganesha-ai/internal/domain/audit"
	"github.com/G-TechSD/ganesha-ai/internal/domain/manipulation"
	"github.com/G-TechSD/ganesha-ai/internal/domain/plan"
	"github.com/G-TechSD/ganesha-ai/internal/domain/policy"
	"github.com/G-TechSD/ganesha-ai/internal/domain/session"
	"github.com/G-TechSD/ganesha-ai/internal/service"
)

var (
	runTimeout     int
	runAutoApprove bool
	runWorkingDir  string
	runNoAutoStart bool
)

var runCmd = &cobra.Command{
	Use:   "run <task>",
	Short: "Plan and execute a task through the Privileged Client",
	Long: `Run takes a single natural-language task, asks the configured Planner
Adapter (spec.md §4.9) for a candidate Plan, and executes its actions one
by one through the Privileged Client (spec.md §4.7): it tries the daemon
over its local socket, auto-starting it if unreachable, and falls back
to evaluating the access policy in-process when the daemon cannot be
reached at all.

The task, and every non-command field of a candidate Action, is scanned
by the Manipulation Detector before anything is offered for consent — a
positive match fails the session without contacting the daemon. Every
action's command is then evaluated by the Access Controller; an action
flagged requires_consent, or carrying a high risk_level under a policy
with require_approval_for_high_risk, is held for interactive approval
unless --auto-approve is set. --auto-approve is honored by this
front-end only: the daemon has no notion of consent, and always
re-evaluates the command against the access policy on its own.

Examples:
  ganesha run "clean up stale log files under /var/log/myapp"
  ganesha run --auto-approve "restart the nginx service"`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().IntVar(&runTimeout, "timeout", 60, "per-action timeout in seconds")
	runCmd.Flags().BoolVar(&runAutoApprove, "auto-approve", false, "skip interactive consent (the daemon still enforces the access policy regardless)")
	runCmd.Flags().StringVar(&runWorkingDir, "dir", "", "working directory for executed actions (default: current directory)")
	runCmd.Flags().BoolVar(&runNoAutoStart, "no-auto-start", false, "fail instead of starting the daemon when it is unreachable")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	task := args[0]

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Planner.Endpoint == "" {
		return fmt.Errorf("no planner configured: set planner.endpoint in the config file")
	}

	workingDir := runWorkingDir
	if workingDir == "" {
		if wd, err := os.Getwd(); err == nil {
			workingDir = wd
		}
	}

	accessPolicy, controller, detector, err := buildFallbackGuards(cfg)
	if err != nil {
		return fmt.Errorf("build fallback access controller: %w", err)
	}

	ctx := cmd.Context()
	sess := session.New(task)

	if found, indicator := detector.Contains(task); found {
		failSession(sess)
		saveSession(cfg, sess)
		recordManipulationDetected(cfg, fmt.Sprintf("task matched manipulation indicator %q", indicator))
		fmt.Fprintf(os.Stderr, "task rejected: matched manipulation indicator %q\n", indicator)
		os.Exit(2)
	}

	if err := sess.Transition(session.StatePlanning); err != nil {
		return fmt.Errorf("transition to planning: %w", err)
	}

	provider := planner.NewHTTPPlanner(cfg.Planner.Endpoint, plannerOptions(cfg)...)
	facts := plan.SystemFacts{OS: runtime.GOOS, Arch: runtime.GOARCH, CWD: workingDir}
	candidate, err := provider.Plan(ctx, facts, task, nil)
	if err != nil {
		failSession(sess)
		saveSession(cfg, sess)
		return fmt.Errorf("plan task: %w", err)
	}
	sess.Plan = &candidate

	approved, err := screenAndApprove(candidate, accessPolicy, controller, detector, runAutoApprove)
	if err != nil {
		failSession(sess)
		saveSession(cfg, sess)
		recordManipulationDetected(cfg, err.Error())
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if len(approved) == 0 {
		_ = sess.Transition(session.StateCancelled)
		saveSession(cfg, sess)
		fmt.Fprintln(os.Stderr, "No actions approved; nothing executed.")
		return nil
	}

	if err := sess.Transition(session.StateAwaitingConsent); err != nil {
		return fmt.Errorf("transition to awaiting_consent: %w", err)
	}
	if err := sess.Transition(session.StateExecuting); err != nil {
		return fmt.Errorf("transition to executing: %w", err)
	}

	timeout := time.Duration(runTimeout) * time.Second
	client := privclient.New(cfg.Daemon.SocketPath, controller, detector, executor.New(), cfg.Daemon.MaxOutputBytes)

	runCtx, cancel := context.WithTimeout(ctx, timeout*time.Duration(len(approved)+1))
	defer cancel()

	if !client.IsDaemonAvailable(runCtx) && !runNoAutoStart {
		if err := ensureDaemonRunning(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not auto-start daemon: %v\n", err)
		}
	}

	allSucceeded := true
	for _, action := range approved {
		result, execErr := executeAction(runCtx, client, action, workingDir, timeout)
		sess.RecordExecution(action, toExecutionResult(result, execErr))
		if execErr != nil {
			fmt.Fprintf(os.Stderr, "%s: ERROR: %v\n", action.Command, execErr)
			allSucceeded = false
			continue
		}
		fmt.Print(result.Output)
		if !result.Success {
			fmt.Fprintf(os.Stderr, "%s: %s\n", action.Command, result.Error)
			allSucceeded = false
		}
	}

	if allSucceeded {
		_ = sess.Transition(session.StateCompleted)
	} else {
		_ = sess.Transition(session.StateFailed)
	}
	saveSession(cfg, sess)

	if !allSucceeded {
		os.Exit(1)
	}
	return nil
}

// failSession transitions sess through planning (if not already there) to
// failed, tolerating a session that failed before planning started.
func failSession(sess *session.Session) {
	if sess.State == session.StatePending {
		_ = sess.Transition(session.StatePlanning)
	}
	_ = sess.Transition(session.StateFailed)
}

// screenAndApprove scans every non-command field of each candidate Action
// for manipulation indicators, evaluates its command via the Access
// Controller, and either auto-approves or interactively prompts,
// returning only the actions cleared to execute.
func screenAndApprove(p plan.Plan, pol policy.AccessPolicy, controller *service.AccessController, detector *manipulation.Detector, autoApprove bool) ([]plan.Action, error) {
	var approved []plan.Action
	for _, action := range p.Actions {
		for _, field := range []struct{ name, text string }{
			{"id", action.ID},
			{"type", string(action.Type)},
			{"explanation", action.Explanation},
			{"rollback_command", action.RollbackCommand},
		} {
			if found, indicator := detector.Contains(field.text); found {
				return nil, fmt.Errorf("action %s rejected: %s matched manipulation indicator %q", action.ID, field.name, indicator)
			}
		}

		decision := controller.Check(action.Command)
		if !decision.Allowed {
			fmt.Fprintf(os.Stderr, "DENIED %s: %s\n", action.Command, decision.Reason)
			continue
		}

		needsConsent := action.RequiresConsent || (decision.Risk == policy.RiskHigh && pol.RequireApprovalForHighRisk)
		if needsConsent && !autoApprove && !promptApproval(action) {
			fmt.Fprintf(os.Stderr, "SKIPPED (not approved): %s\n", action.Command)
			continue
		}

		approved = append(approved, action)
	}
	return approved, nil
}

// promptApproval asks the operator to approve a single action on stderr.
func promptApproval(action plan.Action) bool {
	fmt.Fprintf(os.Stderr, "\n[%s] %s\n  %s\nApprove? [y/N] ", action.RiskLevel, action.Command, action.Explanation)
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	line = strings.TrimSpace(line)
	return line == "y" || line == "Y"
}

// executeAction runs one approved action through the daemon if reachable,
// otherwise through the in-process direct-execution fallback.
func executeAction(ctx context.Context, client *privclient.Client, action plan.Action, workingDir string, timeout time.Duration) (privclient.Result, error) {
	if client.IsDaemonAvailable(ctx) {
		return client.Execute(ctx, action.Command, workingDir, timeout)
	}
	return client.ExecuteDirect(ctx, action.Command, workingDir, action.Explanation, timeout)
}

// toExecutionResult adapts a privclient.Result (or the error in its
// place) into the Session Recorder's ExecutionResult shape.
func toExecutionResult(result privclient.Result, err error) session.ExecutionResult {
	if err != nil {
		return session.ExecutionResult{Success: false, Error: err.Error(), ExitCode: -1}
	}
	return session.ExecutionResult{
		Success:         result.Success,
		Output:          result.Output,
		Error:           result.Error,
		ExitCode:        result.ExitCode,
		RiskLevel:       policy.ParseRiskLevel(string(result.RiskLevel)),
		ExecutionTimeMs: result.ExecutionTimeMs,
	}
}

// saveSession persists sess, logging rather than failing the command if
// the session store can't be opened or written — a task's execution
// result matters more to the caller than its own audit trail.
func saveSession(cfg *config.DaemonConfig, sess *session.Session) {
	store, err := sessionstore.NewFileStore(cfg.SessionDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not open session store: %v\n", err)
		return
	}
	if err := store.Save(context.Background(), sess); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not save session %s: %v\n", sess.ID, err)
	}
}

// recordManipulationDetected writes a MANIPULATION_DETECTED audit event
// for a task or action explanation the Manipulation Detector flagged
// before it ever reached the daemon (spec §4.4, scenario 5). Best
// effort, same tolerance as saveSession: a CLI invocation's exit code
// still reflects the rejection even if the audit sink can't be opened.
func recordManipulationDetected(cfg *config.DaemonConfig, message string) {
	auditFileStore, err := auditstore.NewFileStore(auditstore.FileStoreConfig{
		Dir:           filepath.Dir(cfg.Audit.Path),
		CacheSize:     cfg.Audit.BufferSize,
		RetentionDays: 7,
		MaxFileSizeMB: 100,
	}, slog.New(slog.NewTextHandler(os.Stderr, nil)))
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not open audit store: %v\n", err)
		return
	}
	defer auditFileStore.Close()

	pipeline := service.NewAuditPipeline(auditFileStore, nil, "")
	if err := pipeline.RecordEvent(context.Background(), audit.ManipulationDetected, message); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not record audit event: %v\n", err)
	}
}

// plannerOptions builds the HTTPPlanner options implied by cfg.Planner.
func plannerOptions(cfg *config.DaemonConfig) []planner.ProviderOption {
	var opts []planner.ProviderOption
	if cfg.Planner.AuthToken != "" {
		opts = append(opts, planner.WithRequestHeader("Authorization", "Bearer "+cfg.Planner.AuthToken))
	}
	return opts
}

// buildFallbackGuards loads the access policy and compiles the
// Manipulation Detector the direct-execution fallback uses, so
// ExecuteDirect is never weaker than the daemon's own checks.
func buildFallbackGuards(cfg *config.DaemonConfig) (policy.AccessPolicy, *service.AccessController, *manipulation.Detector, error) {
	store := policystore.NewFileStore(cfg.PolicyFile, cfg.PolicyFile)
	p, err := store.Load(context.Background())
	if err != nil {
		return policy.AccessPolicy{}, nil, nil, err
	}
	controller, err := service.NewAccessController(p, log.New(os.Stderr, "", log.LstdFlags))
	if err != nil {
		return policy.AccessPolicy{}, nil, nil, err
	}
	ruleSet, err := policy.CompileRuleSet(p)
	if err != nil {
		return policy.AccessPolicy{}, nil, nil, err
	}
	return p, controller, manipulation.New(ruleSet), nil
}

// ensureDaemonRunning spawns "ganesha start" as a detached background
// process and waits for its socket to appear, mirroring the teacher's
// own auto-start-on-first-use pattern.
func ensureDaemonRunning(cfg *config.DaemonConfig) error {
	selfExe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable path: %w", err)
	}

	child := exec.Command(selfExe, "start")
	if err := child.Start(); err != nil {
		return fmt.Errorf("spawn daemon: %w", err)
	}
	go func() { _ = child.Wait() }()

	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		if _, statErr := os.Stat(cfg.Daemon.SocketPath); statErr == nil {
			return nil
		}
		time.Sleep(200 * time.Millisecond)
	}
	return fmt.Errorf("daemon socket did not appear within 15s")
}

// readPIDFile reads a PID from the given file path. Returns 0 if unreadable.
func readPIDFile(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return pid
}
