// Package config provides the daemon's operational configuration: socket
// and PID file locations, execution limits, drain window, and the
// optional confirmation-passphrase hash for destructive config
// operations. It is distinct from the Policy Store (internal/adapter/
// outbound/policystore), which persists the AccessPolicy itself as its
// own YAML file.
package config

// DaemonConfig is the top-level operational configuration for the
// ganesha daemon and CLI.
type DaemonConfig struct {
	// Daemon configures the privileged daemon's socket, PID file, and
	// execution limits.
	Daemon DaemonSection `yaml:"daemon" mapstructure:"daemon"`

	// Audit configures the audit log's on-disk location and in-memory
	// recent-events buffer.
	Audit AuditConfig `yaml:"audit" mapstructure:"audit"`

	// SystemLog configures the System Logger's sinks (syslog/file). There
	// is no separate journald sink.
	SystemLog SystemLogConfig `yaml:"system_log" mapstructure:"system_log"`

	// PolicyFile is the path to the AccessPolicy YAML file. The daemon and
	// the CLI hand this one path to the Policy Store as both its system
	// and its per-user location, so no other location is searched. When
	// empty, no policy file is read (the STANDARD default applies) and
	// saving a policy fails.
	PolicyFile string `yaml:"policy_file" mapstructure:"policy_file"`

	// SessionDir is the directory the Session Recorder's file store
	// writes one JSON file per session into.
	SessionDir string `yaml:"session_dir" mapstructure:"session_dir"`

	// ConfirmationPassphraseHash is the Argon2id PHC-format hash of the
	// optional confirmation passphrase gating destructive config
	// operations (config reset, set-level full_access --system). Empty
	// means no confirmation is required.
	ConfirmationPassphraseHash string `yaml:"confirmation_passphrase_hash" mapstructure:"confirmation_passphrase_hash"`

	// DevMode enables verbose diagnostic logging.
	DevMode bool `yaml:"dev_mode" mapstructure:"dev_mode"`

	// Planner configures the Planner Adapter's HTTP reference provider.
	// Empty Endpoint means no provider is configured; "ganesha run"
	// then fails fast rather than silently falling back to anything.
	Planner PlannerConfig `yaml:"planner" mapstructure:"planner"`

	// Telemetry configures the daemon's optional stdout-exported
	// tracing/metrics and prometheus debug listener (SPEC_FULL.md §2).
	// Off by default; never affects access-control behavior.
	Telemetry TelemetryConfig `yaml:"telemetry" mapstructure:"telemetry"`
}

// TelemetryConfig controls the daemon's observability surface.
type TelemetryConfig struct {
	// Enabled turns on otel stdout tracing/metrics spans and the
	// prometheus /metrics listener. Defaults to false.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// MetricsAddr is the loopback address the prometheus handler binds
	// to when Enabled. Defaults to "127.0.0.1:9090".
	MetricsAddr string `yaml:"metrics_addr" mapstructure:"metrics_addr"`
}

// PlannerConfig configures the HTTP reference Planner Adapter provider
// (internal/adapter/outbound/planner.HTTPPlanner). spec.md treats "LLM
// providers" as an external collaborator contract rather than a vendor
// SDK, so this is deliberately generic: one endpoint plus an optional
// bearer token, not a provider-specific credential shape.
type PlannerConfig struct {
	// Endpoint is the URL the HTTP reference provider POSTs task/system
	// facts to and expects a JSON plan back from.
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`

	// AuthToken, if set, is sent as "Authorization: Bearer <token>" on
	// every request to Endpoint.
	AuthToken string `yaml:"auth_token" mapstructure:"auth_token"`
}

// DaemonSection configures the privileged daemon's transport and
// execution limits.
type DaemonSection struct {
	// SocketPath is the fixed filesystem path of the daemon's local
	// stream socket. Defaults to "/run/ganesha/daemon.sock".
	SocketPath string `yaml:"socket_path" mapstructure:"socket_path" validate:"omitempty"`

	// PIDFile is the sibling PID file path, leaf "daemon.pid". Defaults
	// to the socket's directory with that leaf.
	PIDFile string `yaml:"pid_file" mapstructure:"pid_file"`

	// SocketGroup is the group given ownership of the socket (mode
	// 0660). Defaults to "ganesha". If the group does not exist on the
	// host, ownership stays root-only and a WARNING is logged.
	SocketGroup string `yaml:"socket_group" mapstructure:"socket_group"`

	// MaxExecutionTimeSeconds bounds any client-supplied timeout; the
	// daemon clamps every request's timeout_seconds into [1, this].
	// Defaults to 300.
	MaxExecutionTimeSeconds int `yaml:"max_execution_time_seconds" mapstructure:"max_execution_time_seconds" validate:"omitempty,min=1"`

	// ReadCapBytes is the per-connection read cap. Defaults to 65536
	// (64 KiB), the spec's stated minimum.
	ReadCapBytes int `yaml:"read_cap_bytes" mapstructure:"read_cap_bytes" validate:"omitempty,min=65536"`

	// ReadTimeoutSeconds is the overall per-connection read timeout.
	// Defaults to 30, the spec's stated minimum.
	ReadTimeoutSeconds int `yaml:"read_timeout_seconds" mapstructure:"read_timeout_seconds" validate:"omitempty,min=30"`

	// DrainWindowSeconds bounds how long graceful shutdown waits for
	// in-flight connections to finish. Connections still running when it
	// expires are abandoned with a WARNING; the daemon does not signal
	// their children's process groups. Defaults to 10.
	DrainWindowSeconds int `yaml:"drain_window_seconds" mapstructure:"drain_window_seconds" validate:"omitempty,min=0"`

	// MaxOutputBytes caps collected stdout+stderr per command. Defaults
	// to 1048576 (1 MiB).
	MaxOutputBytes int `yaml:"max_output_bytes" mapstructure:"max_output_bytes" validate:"omitempty,min=1"`
}

// AuditConfig configures the Audit Log's (C6) on-disk file and the
// in-memory ring buffer used for the config tool's recent-events view.
type AuditConfig struct {
	// Path locates the audit log: its directory receives the daily
	// append-only JSONL files (audit-YYYY-MM-DD.log); the file name itself
	// is not used. Defaults to "/var/log/ganesha/audit.log".
	Path string `yaml:"path" mapstructure:"path" validate:"omitempty"`

	// BufferSize is the number of recent events kept in memory for the
	// config tool's reporting view. Defaults to 1000.
	BufferSize int `yaml:"buffer_size" mapstructure:"buffer_size" validate:"omitempty,min=1"`

	// QueryIndexPath is the optional sqlite-backed query index path
	// (SPEC_FULL.md DOMAIN STACK). Empty disables the index; the JSONL
	// log is then the only audit record.
	QueryIndexPath string `yaml:"query_index_path" mapstructure:"query_index_path"`
}

// SystemLogConfig configures the System Logger's (C5) sinks.
type SystemLogConfig struct {
	// Syslog enables the unixgram syslog sink (RFC-3164, LOCAL0
	// facility) at the given socket path. Defaults to
	// "/dev/log" when Enabled and SocketPath is empty.
	Syslog SyslogSinkConfig `yaml:"syslog" mapstructure:"syslog"`

	// FilePath is the fallback file sink path, used in addition to (or
	// instead of) syslog. Defaults to
	// "/var/log/ganesha/system.log" if both sinks are otherwise unconfigured.
	FilePath string `yaml:"file_path" mapstructure:"file_path"`
}

// SyslogSinkConfig configures the unixgram syslog sink.
type SyslogSinkConfig struct {
	Enabled    bool   `yaml:"enabled" mapstructure:"enabled"`
	SocketPath string `yaml:"socket_path" mapstructure:"socket_path"`
}

// SetDefaults applies sensible default values to unset fields.
func (c *DaemonConfig) SetDefaults() {
	if c.Daemon.SocketPath == "" {
		c.Daemon.SocketPath = "/run/ganesha/daemon.sock"
	}
	if c.Daemon.PIDFile == "" {
		c.Daemon.PIDFile = socketSiblingPath(c.Daemon.SocketPath, "daemon.pid")
	}
	if c.Daemon.SocketGroup == "" {
		c.Daemon.SocketGroup = "ganesha"
	}
	if c.Daemon.MaxExecutionTimeSeconds == 0 {
		c.Daemon.MaxExecutionTimeSeconds = 300
	}
	if c.Daemon.ReadCapBytes == 0 {
		c.Daemon.ReadCapBytes = 65536
	}
	if c.Daemon.ReadTimeoutSeconds == 0 {
		c.Daemon.ReadTimeoutSeconds = 30
	}
	if c.Daemon.DrainWindowSeconds == 0 {
		c.Daemon.DrainWindowSeconds = 10
	}
	if c.Daemon.MaxOutputBytes == 0 {
		c.Daemon.MaxOutputBytes = 1 << 20
	}

	if c.Audit.Path == "" {
		c.Audit.Path = "/var/log/ganesha/audit.log"
	}
	if c.Audit.BufferSize == 0 {
		c.Audit.BufferSize = 1000
	}

	if c.SystemLog.Syslog.SocketPath == "" {
		c.SystemLog.Syslog.SocketPath = "/dev/log"
	}
	if c.SystemLog.FilePath == "" && !c.SystemLog.Syslog.Enabled {
		c.SystemLog.FilePath = "/var/log/ganesha/system.log"
	}

	if c.SessionDir == "" {
		c.SessionDir = "/var/lib/ganesha/sessions"
	}

	if c.Telemetry.MetricsAddr == "" {
		c.Telemetry.MetricsAddr = "127.0.0.1:9090"
	}
}

// socketSiblingPath returns leaf placed alongside socketPath's directory.
func socketSiblingPath(socketPath, leaf string) string {
	dir := socketPath
	for i := len(dir) - 1; i >= 0; i-- {
		if dir[i] == '/' {
			return dir[:i+1] + leaf
		}
	}
	return leaf
}
