package config

import "testing"

func TestDaemonConfig_SetDefaults(t *testing.T) {
	t.Parallel()

	var cfg DaemonConfig
	cfg.SetDefaults()

	if cfg.Daemon.SocketPath != "/run/ganesha/daemon.sock" {
		t.Errorf("SocketPath = %q, want %q", cfg.Daemon.SocketPath, "/run/ganesha/daemon.sock")
	}
	if cfg.Daemon.PIDFile != "/run/ganesha/daemon.pid" {
		t.Errorf("PIDFile = %q, want %q", cfg.Daemon.PIDFile, "/run/ganesha/daemon.pid")
	}
	if cfg.Daemon.SocketGroup != "ganesha" {
		t.Errorf("SocketGroup = %q, want %q", cfg.Daemon.SocketGroup, "ganesha")
	}
	if cfg.Daemon.MaxExecutionTimeSeconds != 300 {
		t.Errorf("MaxExecutionTimeSeconds = %d, want 300", cfg.Daemon.MaxExecutionTimeSeconds)
	}
	if cfg.Daemon.ReadCapBytes != 65536 {
		t.Errorf("ReadCapBytes = %d, want 65536", cfg.Daemon.ReadCapBytes)
	}
	if cfg.Daemon.ReadTimeoutSeconds != 30 {
		t.Errorf("ReadTimeoutSeconds = %d, want 30", cfg.Daemon.ReadTimeoutSeconds)
	}
	if cfg.Audit.Path != "/var/log/ganesha/audit.log" {
		t.Errorf("Audit.Path = %q, want %q", cfg.Audit.Path, "/var/log/ganesha/audit.log")
	}
	if cfg.SessionDir != "/var/lib/ganesha/sessions" {
		t.Errorf("SessionDir = %q, want %q", cfg.SessionDir, "/var/lib/ganesha/sessions")
	}
}

func TestDaemonConfig_SetDefaultsDerivesPIDFileFromCustomSocket(t *testing.T) {
	t.Parallel()

	cfg := DaemonConfig{Daemon: DaemonSection{SocketPath: "/custom/dir/ganesha.sock"}}
	cfg.SetDefaults()

	if cfg.Daemon.PIDFile != "/custom/dir/daemon.pid" {
		t.Errorf("PIDFile = %q, want %q", cfg.Daemon.PIDFile, "/custom/dir/daemon.pid")
	}
}

func TestDaemonConfig_SetDefaultsLeavesExplicitValues(t *testing.T) {
	t.Parallel()

	cfg := DaemonConfig{Daemon: DaemonSection{MaxExecutionTimeSeconds: 60}}
	cfg.SetDefaults()

	if cfg.Daemon.MaxExecutionTimeSeconds != 60 {
		t.Errorf("MaxExecutionTimeSeconds = %d, want 60 (explicit value preserved)", cfg.Daemon.MaxExecutionTimeSeconds)
	}
}

func TestDaemonConfig_SetDefaultsPrefersSyslogOverFileWhenEnabled(t *testing.T) {
	t.Parallel()

	cfg := DaemonConfig{SystemLog: SystemLogConfig{Syslog: SyslogSinkConfig{Enabled: true}}}
	cfg.SetDefaults()

	if cfg.SystemLog.FilePath != "" {
		t.Errorf("FilePath = %q, want empty when syslog sink is enabled", cfg.SystemLog.FilePath)
	}
	if cfg.SystemLog.Syslog.SocketPath != "/dev/log" {
		t.Errorf("Syslog.SocketPath = %q, want %q", cfg.SystemLog.Syslog.SocketPath, "/dev/log")
	}
}
