// Package cmd provides the CLI commands for ganesha.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/G-TechSD/ganesha-ai/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "ganesha",
	Short: "ganesha - access-controlled privileged command execution",
	Long: `ganesha mediates privileged command execution for AI coding agents: a
root-owned daemon checks every command against a configurable access
policy before it runs, records a tamper-evident audit trail, and keeps
a session log that can be rolled back.

Quick start:
  1. Create a config file: ganesha.yaml (set planner.endpoint)
  2. Start the daemon: ganesha start
  3. Run a task through it: ganesha run "clean up stale log files"

Configuration:
  Config is loaded from ganesha.yaml in the current directory,
  $HOME/.ganesha/, or /etc/ganesha/.

  Environment variables override config values with the GANESHA_ prefix.
  Example: GANESHA_DAEMON_SOCKET_PATH=/run/ganesha/daemon.sock

Commands:
  start        Start the privileged daemon
  stop         Stop the running daemon
  run          Plan and execute a task through the daemon (or direct fallback)
  config       Inspect and edit the access policy
  rollback     Revert a session's recorded actions
  reset        Remove persistent state (audit log, sessions, policy)
  hash-passphrase  Generate an Argon2id hash for the confirmation passphrase
  version      Print version information`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./ganesha.yaml)")
}

func initConfig() {
	config.InitViper(cfgFile)
}
