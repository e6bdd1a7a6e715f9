package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/G-TechSD/ganesha-ai/internal/adapter/outbound/executor"
	"github.com/G-TechSD/ganesha-ai/internal/adapter/outbound/privclient"
	"github.com/G-TechSD/ganesha-ai/internal/adapter/outbound/sessionstore"
	"github.com/G-TechSD/ganesha-ai/internal/config"
)

var rollbackDryRun bool

var rollbackCmd = &cobra.Command{
	Use:   "rollback [session-id]",
	Short: "Revert a session's recorded actions",
	Long: `Rollback computes the reverse of a session's executed, reversible
actions (session.Session.RollbackActions, spec.md §4.8) and runs each one
through the same privileged path as the original execution, in the
opposite order the actions originally ran.

Actions that were not marked reversible, or that carry no rollback
command, are skipped: there is nothing safe to run for them.

The session id is optional; omitting it, or passing the literal "last",
rolls back the most recently started session (spec.md §6.5).

Examples:
  # Preview what would be reverted
  ganesha rollback session_20260731T120000_0 --dry-run

  # Revert the most recent session
  ganesha rollback last`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRollback,
}

func init() {
	rollbackCmd.Flags().BoolVar(&rollbackDryRun, "dry-run", false, "print the rollback commands without running them")
	rootCmd.AddCommand(rollbackCmd)
}

func runRollback(cmd *cobra.Command, args []string) error {
	sessionID := "last"
	if len(args) == 1 {
		sessionID = args[0]
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	store, err := sessionstore.NewFileStore(cfg.SessionDir)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}

	ctx := context.Background()

	if sessionID == "last" {
		sessionID, err = mostRecentSessionID(ctx, store)
		if err != nil {
			return err
		}
	}

	sess, err := store.Get(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load session %s: %w", sessionID, err)
	}

	rollback, err := sess.RollbackActions()
	if err != nil {
		return fmt.Errorf("compute rollback actions: %w", err)
	}
	if len(rollback) == 0 {
		fmt.Fprintln(os.Stderr, "Nothing to roll back: no reversible actions were executed.")
		return nil
	}

	if rollbackDryRun {
		fmt.Fprintf(os.Stderr, "Would run %d rollback action(s):\n", len(rollback))
		for _, a := range rollback {
			fmt.Fprintf(os.Stderr, "  - %s\n", a.Command)
		}
		return nil
	}

	_, controller, detector, err := buildFallbackGuards(cfg)
	if err != nil {
		return fmt.Errorf("build fallback access controller: %w", err)
	}
	client := privclient.New(cfg.Daemon.SocketPath, controller, detector, executor.New(), cfg.Daemon.MaxOutputBytes)

	var failures int
	for _, a := range rollback {
		fmt.Fprintf(os.Stderr, "Rolling back: %s\n", a.Command)
		result, err := executeRollbackAction(ctx, client, a.Command)
		if err != nil || !result.Success {
			failures++
			if err != nil {
				fmt.Fprintf(os.Stderr, "  ERROR: %v\n", err)
			} else {
				fmt.Fprintf(os.Stderr, "  FAILED: %s\n", result.Error)
			}
			continue
		}
		fmt.Fprintf(os.Stderr, "  OK\n")
	}

	if failures > 0 {
		return fmt.Errorf("%d rollback action(s) failed", failures)
	}
	fmt.Fprintln(os.Stderr, "Rollback complete.")
	return nil
}

// mostRecentSessionID returns the lexically greatest session id, relying
// on NewSessionID's timestamp-derived, monotonically increasing form.
func mostRecentSessionID(ctx context.Context, store *sessionstore.FileStore) (string, error) {
	ids, err := store.List(ctx)
	if err != nil {
		return "", fmt.Errorf("list sessions: %w", err)
	}
	if len(ids) == 0 {
		return "", fmt.Errorf("no sessions recorded yet")
	}
	sort.Strings(ids)
	return ids[len(ids)-1], nil
}

func executeRollbackAction(ctx context.Context, client *privclient.Client, command string) (privclient.Result, error) {
	timeout := 60 * time.Second
	if client.IsDaemonAvailable(ctx) {
		return client.Execute(ctx, command, "", timeout)
	}
	return client.ExecuteDirect(ctx, command, "", "rollback of a previously executed action", timeout)
}
