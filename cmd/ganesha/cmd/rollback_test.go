package cmd

import "testing"

func TestRollbackCmd_Registered(t *testing.T) {
	for _, c := range rootCmd.Commands() {
		if c.Name() == "rollback" {
			return
		}
	}
	t.Error("rollback command not registered with rootCmd")
}

func TestRollbackCmd_AcceptsZeroOrOneArg(t *testing.T) {
	if err := rollbackCmd.Args(rollbackCmd, nil); err != nil {
		t.Errorf("rollback with no args (defaults to last) should pass validation, got %v", err)
	}
	if err := rollbackCmd.Args(rollbackCmd, []string{"session_a"}); err != nil {
		t.Errorf("rollback with one arg should pass validation, got %v", err)
	}
	if err := rollbackCmd.Args(rollbackCmd, []string{"session_a", "session_b"}); err == nil {
		t.Error("rollback with two args should fail validation")
	}
}

func TestRollbackCmd_DryRunFlagDefault(t *testing.T) {
	flag := rollbackCmd.Flags().Lookup("dry-run")
	if flag == nil {
		t.Fatal("dry-run flag not registered")
	}
	if flag.DefValue != "false" {
		t.Errorf("dry-run default = %q, want %q", flag.DefValue, "false")
	}
}
