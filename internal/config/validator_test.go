package config

import (
	"strings"
	"testing"
)

// minimalValidConfig returns a minimal valid DaemonConfig for testing.
func minimalValidConfig() *DaemonConfig {
	cfg := &DaemonConfig{}
	cfg.SetDefaults()
	return cfg
}

func TestValidate_ValidConfig(t *testing.T) {
	t.Parallel()

	cfg := minimalValidConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}
}

func TestValidate_RejectsDrainWindowExceedingMaxExecutionTime(t *testing.T) {
	t.Parallel()

	cfg := minimalValidConfig()
	cfg.Daemon.MaxExecutionTimeSeconds = 30
	cfg.Daemon.DrainWindowSeconds = 60

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want error for drain window exceeding max execution time")
	}
	if !strings.Contains(err.Error(), "drain_window_seconds") {
		t.Errorf("error = %v, want mention of drain_window_seconds", err)
	}
}

func TestValidate_RejectsReadCapBelowMinimum(t *testing.T) {
	t.Parallel()

	cfg := minimalValidConfig()
	cfg.Daemon.ReadCapBytes = 1024

	if err := cfg.Validate(); err == nil {
		t.Error("Validate() = nil, want error for read_cap_bytes below 65536")
	}
}

func TestValidate_RejectsReadTimeoutBelowMinimum(t *testing.T) {
	t.Parallel()

	cfg := minimalValidConfig()
	cfg.Daemon.ReadTimeoutSeconds = 5

	if err := cfg.Validate(); err == nil {
		t.Error("Validate() = nil, want error for read_timeout_seconds below 30")
	}
}
