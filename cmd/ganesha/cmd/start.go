package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/G-TechSD/ganesha-ai/internal/adapter/inbound/daemon"
	auditstore "github.com/G-TechSD/ganesha-ai/internal/adapter/outbound/audit"
	"github.com/G-TechSD/ganesha-ai/internal/adapter/outbound/auditquery"
	"github.com/G-TechSD/ganesha-ai/internal/adapter/outbound/executor"
	"github.com/G-TechSD/ganesha-ai/internal/adapter/outbound/pidlock"
	"github.com/G-TechSD/ganesha-ai/internal/adapter/outbound/policystore"
	"github.com/G-TechSD/ganesha-ai/internal/adapter/outbound/syslogger"
	"github.com/G-TechSD/ganesha-ai/internal/config"
	"github.com/G-TechSD/ganesha-ai/internal/service"
	"github.com/G-TechSD/ganesha-ai/internal/telemetry"
)

var startForeground bool

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the privileged daemon",
	Long: `Start boots the ganesha daemon: it loads the access policy, binds the
local socket, and begins serving access-control decisions and command
execution to Privileged Clients (spec.md §4.6).

The daemon takes an exclusive lock on its PID file, so only one
instance can run against a given --config at a time; a stale PID file
left by an unclean shutdown is detected and cleared automatically.

Examples:
  # Start in the foreground (logs to stderr, Ctrl+C to stop)
  ganesha start --foreground

  # Start as a background daemon
  ganesha start`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().BoolVar(&startForeground, "foreground", false, "run in the foreground instead of detaching")
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if !startForeground {
		return startDetached(cfg)
	}
	return runDaemonForeground(cfg)
}

// startDetached re-execs the current binary with "start --foreground",
// redirecting its output to a log file, and returns once the child has
// bound its socket (mirrored from the teacher's own auto-start polling
// pattern that used to live in run.go's ensureServerRunning).
func startDetached(cfg *config.DaemonConfig) error {
	selfExe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable path: %w", err)
	}

	logDir := filepath.Dir(cfg.SystemLog.FilePath)
	if logDir == "." || logDir == "" {
		logDir = filepath.Dir(cfg.Daemon.SocketPath)
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	logPath := filepath.Join(logDir, "daemon-start.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open daemon log %s: %w", logPath, err)
	}
	defer logFile.Close()

	childArgs := []string{"start", "--foreground"}
	if cfgFile != "" {
		childArgs = append(childArgs, "--config", cfgFile)
	}
	child := exec.Command(selfExe, childArgs...)
	child.Stdout = logFile
	child.Stderr = logFile

	if err := child.Start(); err != nil {
		return fmt.Errorf("start daemon process: %w", err)
	}

	fmt.Fprintf(os.Stderr, "ganesha daemon starting (pid %d, log %s)...\n", child.Process.Pid, logPath)

	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		if _, statErr := os.Stat(cfg.Daemon.SocketPath); statErr == nil {
			fmt.Fprintln(os.Stderr, "ganesha daemon is ready.")
			return nil
		}
		time.Sleep(200 * time.Millisecond)
	}
	return fmt.Errorf("daemon did not become ready within 15s (check %s)", logPath)
}

// runDaemonForeground wires every adapter and runs the daemon until a
// shutdown signal arrives, per spec.md §4.6/§9's boot and shutdown
// sequence.
func runDaemonForeground(cfg *config.DaemonConfig) error {
	logger := log.New(os.Stderr, "", log.LstdFlags)

	lock, err := pidlock.Acquire(cfg.Daemon.PIDFile)
	if err != nil {
		return fmt.Errorf("acquire daemon lock: %w", err)
	}
	defer func() { _ = lock.Release() }()

	policies := policystore.NewFileStore(cfg.PolicyFile, cfg.PolicyFile)
	accessPolicy, err := policies.Load(context.Background())
	if err != nil {
		return fmt.Errorf("load access policy: %w", err)
	}

	controller, err := service.NewAccessController(accessPolicy, logger)
	if err != nil {
		return fmt.Errorf("build access controller: %w", err)
	}

	auditFileStore, err := auditstore.NewFileStore(auditstore.FileStoreConfig{
		Dir:           filepath.Dir(cfg.Audit.Path),
		CacheSize:     cfg.Audit.BufferSize,
		RetentionDays: 7,
		MaxFileSizeMB: 100,
	}, slog.New(slog.NewTextHandler(os.Stderr, nil)))
	if err != nil {
		return fmt.Errorf("open audit store: %w", err)
	}

	sysLogger, err := buildSystemLogger(cfg)
	if err != nil {
		logger.Printf("WARNING: system logger degraded: %v", err)
	}

	var auditPipeline *service.AuditPipeline
	if cfg.Audit.QueryIndexPath != "" {
		queryIndex, qiErr := auditquery.Open(cfg.Audit.QueryIndexPath)
		if qiErr != nil {
			logger.Printf("WARNING: audit query index disabled: %v", qiErr)
			auditPipeline = service.NewAuditPipeline(auditFileStore, sysLogger, "")
		} else {
			auditPipeline = service.NewAuditPipeline(auditFileStore, sysLogger, "", queryIndex)
		}
	} else {
		auditPipeline = service.NewAuditPipeline(auditFileStore, sysLogger, "")
	}

	telemetryProvider, err := telemetry.NewProvider(telemetry.Config{
		Enabled:     cfg.Telemetry.Enabled,
		MetricsAddr: cfg.Telemetry.MetricsAddr,
	})
	if err != nil {
		logger.Printf("WARNING: telemetry disabled: %v", err)
		telemetryProvider, _ = telemetry.NewProvider(telemetry.Config{})
	}

	d := daemon.New(daemon.Config{
		SocketPath:              cfg.Daemon.SocketPath,
		SocketGroup:             cfg.Daemon.SocketGroup,
		ReadCapBytes:            int64(cfg.Daemon.ReadCapBytes),
		ReadTimeout:             time.Duration(cfg.Daemon.ReadTimeoutSeconds) * time.Second,
		DrainWindow:             time.Duration(cfg.Daemon.DrainWindowSeconds) * time.Second,
		MaxExecutionTimeSeconds: cfg.Daemon.MaxExecutionTimeSeconds,
		MaxOutputBytes:          cfg.Daemon.MaxOutputBytes,
	}, controller, executor.New(), auditPipeline, logger, daemon.WithTelemetry(telemetryProvider))

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, gracefulSignals()...)
	go func() {
		<-sigCh
		logger.Printf("shutdown signal received, draining connections")
		cancel()
	}()
	defer signal.Stop(sigCh)

	logger.Printf("ganesha daemon listening on %s", cfg.Daemon.SocketPath)
	return d.Serve(ctx)
}

// buildSystemLogger wires the syslog sink when enabled, falling back to
// the configured file sink otherwise (spec.md §4.5).
func buildSystemLogger(cfg *config.DaemonConfig) (*syslogger.Logger, error) {
	if cfg.SystemLog.Syslog.Enabled {
		sink, err := syslogger.DialUnixSyslog(cfg.SystemLog.Syslog.SocketPath, "ganesha")
		if err != nil {
			if cfg.SystemLog.FilePath != "" {
				if fileSink, fileErr := syslogger.NewFileSink(cfg.SystemLog.FilePath); fileErr == nil {
					return syslogger.New(fileSink), err
				}
			}
			return syslogger.New(), err
		}
		return syslogger.New(sink), nil
	}
	if cfg.SystemLog.FilePath == "" {
		return syslogger.New(), nil
	}
	sink, err := syslogger.NewFileSink(cfg.SystemLog.FilePath)
	if err != nil {
		return syslogger.New(), err
	}
	return syslogger.New(sink), nil
}
