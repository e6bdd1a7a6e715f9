package cmd

import "testing"

func TestResetCmd_Registered(t *testing.T) {
	for _, c := range rootCmd.Commands() {
		if c.Name() == "reset" {
			return
		}
	}
	t.Error("reset command not registered with rootCmd")
}

func TestResetCmd_FlagDefaults(t *testing.T) {
	includeAudit, err := resetCmd.Flags().GetBool("include-audit")
	if err != nil {
		t.Fatalf("get include-audit flag: %v", err)
	}
	if includeAudit {
		t.Error("include-audit default = true, want false")
	}

	force, err := resetCmd.Flags().GetBool("force")
	if err != nil {
		t.Fatalf("get force flag: %v", err)
	}
	if force {
		t.Error("force default = true, want false")
	}
}

func TestLoadConfigForReset_NeverFailsFatally(t *testing.T) {
	cfg, _ := loadConfigForReset()
	if cfg == nil {
		t.Fatal("loadConfigForReset() returned nil config")
	}
}
