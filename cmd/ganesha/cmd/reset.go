package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/G-TechSD/ganesha-ai/internal/config"
	"github.com/G-TechSD/ganesha-ai/internal/domain/auth"
)

var (
	resetIncludeAudit bool
	resetForce        bool
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove persistent state (audit log, sessions, policy)",
	Long: `Reset removes ganesha's persistent state files: the session recorder's
directory, the policy file, and the daemon's PID/socket remnants.

By default the audit log is left untouched, since it is meant to be a
durable, tamper-evident record even across a reset. Pass --include-audit
to remove it too.

If a confirmation passphrase is configured (DaemonConfig.
confirmation_passphrase_hash), reset prompts for it before proceeding
regardless of --force.

Optional flags:
  --include-audit   Also remove the audit log
  --force           Skip the removal confirmation prompt (the
                     passphrase prompt, if configured, is never skipped)

Examples:
  # Reset state only (interactive confirmation)
  ganesha reset

  # Reset everything without the removal prompt
  ganesha reset --include-audit --force`,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolVar(&resetIncludeAudit, "include-audit", false, "also remove the audit log")
	resetCmd.Flags().BoolVar(&resetForce, "force", false, "skip the removal confirmation prompt")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfigForReset()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cfg.ConfirmationPassphraseHash != "" {
		if err := confirmPassphrase(cfg.ConfirmationPassphraseHash); err != nil {
			return err
		}
	}

	type target struct {
		path string
		desc string
	}
	targets := []target{
		{cfg.PolicyFile, "policy file"},
		{cfg.SessionDir, "session directory"},
		{cfg.Daemon.PIDFile, "daemon PID file"},
		{cfg.Daemon.SocketPath, "daemon socket"},
	}
	if resetIncludeAudit {
		targets = append(targets, target{cfg.Audit.Path, "audit log"})
	}

	var existing []target
	for _, t := range targets {
		if t.path == "" {
			continue
		}
		if _, err := os.Stat(t.path); err == nil {
			existing = append(existing, t)
		}
	}

	if len(existing) == 0 {
		fmt.Fprintln(os.Stderr, "Nothing to reset — no state files found.")
		return nil
	}

	fmt.Fprintln(os.Stderr, "The following will be removed:")
	for _, t := range existing {
		fmt.Fprintf(os.Stderr, "  - %s (%s)\n", t.path, t.desc)
	}

	if !resetForce {
		fmt.Fprint(os.Stderr, "\nProceed? [y/N] ")
		var answer string
		fmt.Scanln(&answer) //nolint:errcheck // interactive prompt, error irrelevant
		if answer != "y" && answer != "Y" {
			fmt.Fprintln(os.Stderr, "Aborted.")
			return nil
		}
	}

	var errCount int
	for _, t := range existing {
		if err := os.RemoveAll(t.path); err != nil {
			fmt.Fprintf(os.Stderr, "  ERROR removing %s: %v\n", t.path, err)
			errCount++
		} else {
			fmt.Fprintf(os.Stderr, "  Removed %s\n", t.path)
		}
	}

	if errCount > 0 {
		return fmt.Errorf("%d file(s) could not be removed", errCount)
	}

	fmt.Fprintln(os.Stderr, "\nReset complete. ganesha will start fresh on next launch.")
	return nil
}

// confirmPassphrase prompts for the confirmation passphrase on stderr
// and verifies it against storedHash.
func confirmPassphrase(storedHash string) error {
	fmt.Fprint(os.Stderr, "Confirmation passphrase: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return fmt.Errorf("read passphrase: %w", err)
	}
	if err := auth.VerifyPassphrase(strings.TrimRight(line, "\r\n"), storedHash); err != nil {
		return fmt.Errorf("passphrase verification failed: %w", err)
	}
	return nil
}

// loadConfigForReset attempts to load config without strict validation,
// so reset still works against a partially invalid config.
func loadConfigForReset() (*config.DaemonConfig, error) {
	cfg, err := config.LoadConfigRaw()
	if err != nil {
		return &config.DaemonConfig{}, err
	}
	return cfg, nil
}
