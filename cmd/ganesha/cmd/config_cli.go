package cmd

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/G-TechSD/ganesha-ai/internal/adapter/outbound/policystore"
	"github.com/G-TechSD/ganesha-ai/internal/config"
	"github.com/G-TechSD/ganesha-ai/internal/domain/policy"
	"github.com/G-TechSD/ganesha-ai/internal/service"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and edit the access policy",
	Long: `Config reads and edits the AccessPolicy that the daemon's Access
Controller evaluates every command against (spec.md §3).

Subcommands:
  show                    Print the current policy
  set-level <level>       Switch to one of the six preset levels
  whitelist add|remove    Add or remove a whitelist pattern (whitelist level)
  blacklist add|remove    Add or remove a blacklist pattern (blacklist level)
  test <command>          Show the decision a command would receive
  preset                  Interactive menu for set-level
  reset                   Restore the STANDARD default policy`,
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetLevelCmd, configWhitelistCmd, configBlacklistCmd, configTestCmd, configPresetCmd, configResetCmd)
	rootCmd.AddCommand(configCmd)
}

func openPolicyStore(cfg *config.DaemonConfig) *policystore.FileStore {
	return policystore.NewFileStore(cfg.PolicyFile, cfg.PolicyFile)
}

func loadDaemonConfig() (*config.DaemonConfig, error) {
	return config.LoadConfig()
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current access policy",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadDaemonConfig()
		if err != nil {
			return err
		}
		p, err := openPolicyStore(cfg).Load(context.Background())
		if err != nil {
			return fmt.Errorf("load policy: %w", err)
		}
		fmt.Printf("level: %s\n", p.Level)
		fmt.Printf("require_approval_for_high_risk: %t\n", p.RequireApprovalForHighRisk)
		fmt.Printf("audit_all_commands: %t\n", p.AuditAllCommands)
		fmt.Printf("max_execution_time_seconds: %d\n", p.MaxExecutionTimeSeconds)
		fmt.Printf("whitelist patterns: %d\n", len(p.Whitelist))
		for _, pat := range p.Whitelist {
			fmt.Printf("  - %s\n", describePattern(pat))
		}
		fmt.Printf("blacklist patterns: %d\n", len(p.Blacklist))
		for _, pat := range p.Blacklist {
			fmt.Printf("  - %s\n", describePattern(pat))
		}
		return nil
	},
}

func describePattern(p policy.RawPattern) string {
	if p.Guard == "" {
		return p.Expr
	}
	return fmt.Sprintf("%s (guard: %s)", p.Expr, p.Guard)
}

var configSetLevelSystem bool

var configSetLevelCmd = &cobra.Command{
	Use:   "set-level <level>",
	Short: "Switch the access level",
	Long: `Set-level switches the policy to one of: restricted, standard, elevated,
full_access, whitelist, blacklist.

Switching to full_access with --system requires the configured
confirmation passphrase, since it disables nearly all access control.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		level := policy.AccessLevel(args[0])
		if !level.IsValid() {
			return fmt.Errorf("invalid level %q, must be one of %v", args[0], policy.ValidLevels)
		}

		cfg, err := loadDaemonConfig()
		if err != nil {
			return err
		}

		if level == policy.LevelFullAccess && configSetLevelSystem && cfg.ConfirmationPassphraseHash != "" {
			if err := confirmPassphrase(cfg.ConfirmationPassphraseHash); err != nil {
				return err
			}
		}

		store := openPolicyStore(cfg)
		ctx := context.Background()
		p, err := store.Load(ctx)
		if err != nil {
			return fmt.Errorf("load policy: %w", err)
		}
		p.Level = level
		if err := p.Validate(); err != nil {
			return fmt.Errorf("validate updated policy: %w", err)
		}
		if err := store.Save(ctx, p); err != nil {
			return fmt.Errorf("save policy: %w", err)
		}
		fmt.Printf("Access level set to %s.\n", level)
		return nil
	},
}

func init() {
	configSetLevelCmd.Flags().BoolVar(&configSetLevelSystem, "system", false, "apply system-wide (requires confirmation passphrase if configured)")
}

var configWhitelistCmd = &cobra.Command{
	Use:   "whitelist add|remove <pattern>",
	Short: "Add or remove a whitelist pattern",
	Args:  cobra.ExactArgs(2),
	RunE:  configPatternMutator(func(p *policy.AccessPolicy) *[]policy.RawPattern { return &p.Whitelist }),
}

var configBlacklistCmd = &cobra.Command{
	Use:   "blacklist add|remove <pattern>",
	Short: "Add or remove a blacklist pattern",
	Args:  cobra.ExactArgs(2),
	RunE:  configPatternMutator(func(p *policy.AccessPolicy) *[]policy.RawPattern { return &p.Blacklist }),
}

// configPatternMutator builds a RunE closure that adds or removes a
// pattern from whichever field of AccessPolicy field selects.
func configPatternMutator(field func(*policy.AccessPolicy) *[]policy.RawPattern) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadDaemonConfig()
		if err != nil {
			return err
		}
		verb, err := mutatePattern(context.Background(), openPolicyStore(cfg), field, args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("Pattern %s: %s\n", verb, args[1])
		return nil
	}
}

// mutatePattern adds or removes pattern from the AccessPolicy field field
// selects, verifying the pattern compiles before it is persisted
// (spec.md §4.2's compile-at-load invariant must hold for every pattern
// the store ever writes). Returns "added"/"removed" on success.
func mutatePattern(ctx context.Context, store policystore.Store, field func(*policy.AccessPolicy) *[]policy.RawPattern, action, pattern string) (string, error) {
	if action != "add" && action != "remove" {
		return "", fmt.Errorf("first argument must be \"add\" or \"remove\", got %q", action)
	}

	p, err := store.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("load policy: %w", err)
	}

	list := field(&p)
	switch action {
	case "add":
		candidate := policy.AccessPolicy{Level: p.Level, Whitelist: []policy.RawPattern{{Expr: pattern}}}
		rs, err := policy.CompileRuleSet(candidate)
		if err != nil {
			return "", fmt.Errorf("pattern %q does not compile: %w", pattern, err)
		}
		if len(rs.DroppedUserPatterns) > 0 {
			return "", fmt.Errorf("pattern %q does not compile", pattern)
		}
		*list = append(*list, policy.RawPattern{Expr: pattern})
	case "remove":
		filtered := (*list)[:0]
		for _, existing := range *list {
			if existing.Expr != pattern {
				filtered = append(filtered, existing)
			}
		}
		*list = filtered
	}

	if err := p.Validate(); err != nil {
		return "", fmt.Errorf("validate updated policy: %w", err)
	}
	if err := store.Save(ctx, p); err != nil {
		return "", fmt.Errorf("save policy: %w", err)
	}
	if action == "add" {
		return "added", nil
	}
	return "removed", nil
}

var configTestCmd = &cobra.Command{
	Use:   "test <command>",
	Short: "Show the decision a command would receive",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		command := strings.Join(args, " ")

		cfg, err := loadDaemonConfig()
		if err != nil {
			return err
		}
		p, err := openPolicyStore(cfg).Load(context.Background())
		if err != nil {
			return fmt.Errorf("load policy: %w", err)
		}
		controller, err := service.NewAccessController(p, log.New(os.Stderr, "", log.LstdFlags))
		if err != nil {
			return fmt.Errorf("build access controller: %w", err)
		}
		decision := controller.Check(command)

		fmt.Printf("command:  %s\n", command)
		fmt.Printf("allowed:  %t\n", decision.Allowed)
		fmt.Printf("risk:     %s\n", decision.Risk)
		fmt.Printf("reason:   %s\n", decision.Reason)
		if decision.MatchedRuleOrigin != "" {
			fmt.Printf("matched:  %s\n", decision.MatchedRuleOrigin)
		}
		return nil
	},
}

var configPresetNonInteractive string

var presetMenu = []policy.AccessLevel{
	policy.LevelRestricted, policy.LevelStandard, policy.LevelElevated,
	policy.LevelFullAccess, policy.LevelWhitelist, policy.LevelBlacklist,
}

var configPresetCmd = &cobra.Command{
	Use:   "preset",
	Short: "Interactive menu to pick an access level",
	Long: `Preset shows the same numbered menu the original confirmation tool
offered: 1) restricted 2) standard 3) elevated 4) full_access
5) whitelist 6) blacklist, and applies the chosen level via set-level.

Use --non-interactive <level> to skip the prompt in scripts.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var level policy.AccessLevel
		if configPresetNonInteractive != "" {
			level = policy.AccessLevel(configPresetNonInteractive)
		} else {
			fmt.Println("Select an access level:")
			for i, lv := range presetMenu {
				fmt.Printf("  %d) %s\n", i+1, lv)
			}
			fmt.Print("> ")
			line, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil {
				return fmt.Errorf("read selection: %w", err)
			}
			choice, err := strconv.Atoi(strings.TrimSpace(line))
			if err != nil || choice < 1 || choice > len(presetMenu) {
				return fmt.Errorf("invalid selection %q", strings.TrimSpace(line))
			}
			level = presetMenu[choice-1]
		}
		if !level.IsValid() {
			return fmt.Errorf("invalid level %q", level)
		}
		return configSetLevelCmd.RunE(configSetLevelCmd, []string{string(level)})
	},
}

func init() {
	configPresetCmd.Flags().StringVar(&configPresetNonInteractive, "non-interactive", "", "apply a level without prompting")
}

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the STANDARD default policy",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadDaemonConfig()
		if err != nil {
			return err
		}
		if cfg.ConfirmationPassphraseHash != "" {
			if err := confirmPassphrase(cfg.ConfirmationPassphraseHash); err != nil {
				return err
			}
		}
		store := openPolicyStore(cfg)
		if err := store.Save(context.Background(), policy.DefaultPolicy()); err != nil {
			return fmt.Errorf("save default policy: %w", err)
		}
		fmt.Println("Policy reset to STANDARD default.")
		return nil
	},
}
