// Package config provides configuration loading for the ganesha daemon.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// InitViper initializes Viper with the configuration file and environment
// variables. If configFile is empty, it searches the current directory,
// $HOME/.ganesha/, then /etc/ganesha/ for ganesha.yaml/.yml (SPEC_FULL.md
// §1.3). The search requires an explicit YAML extension to avoid matching
// the binary itself, which Viper's built-in SetConfigName would match
// (same base name, no extension).
func InitViper(configFile string) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else if found := findConfigFile(); found != "" {
		viper.SetConfigFile(found)
	} else {
		// No config file found in any standard location. Set name/type
		// without search paths so ReadInConfig returns
		// ConfigFileNotFoundError (handled gracefully by callers).
		viper.SetConfigName("ganesha")
		viper.SetConfigType("yaml")
	}

	// Environment variable support: GANESHA_DAEMON_SOCKET_PATH
	viper.SetEnvPrefix("GANESHA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	bindNestedEnvKeys()
}

// findConfigFile searches current directory, $HOME/.ganesha/, then
// /etc/ganesha/ for ganesha.yaml or ganesha.yml.
func findConfigFile() string {
	home, _ := os.UserHomeDir()
	paths := []string{
		".",
		filepath.Join(home, ".ganesha"),
		"/etc/ganesha",
	}
	return findConfigFileInPaths(paths)
}

// findConfigFileInPaths searches the given directories for ganesha.yaml
// or .yml. Returns the full path of the first match, or empty string if
// none found.
func findConfigFileInPaths(paths []string) string {
	for _, dir := range paths {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, "ganesha"+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// bindNestedEnvKeys binds the daemon.*, audit.* and system_log.* keys
// and the top-level keys for environment variable override support;
// planner.* and telemetry.* keys are not bound here.
func bindNestedEnvKeys() {
	_ = viper.BindEnv("daemon.socket_path")
	_ = viper.BindEnv("daemon.pid_file")
	_ = viper.BindEnv("daemon.socket_group")
	_ = viper.BindEnv("daemon.max_execution_time_seconds")
	_ = viper.BindEnv("daemon.read_cap_bytes")
	_ = viper.BindEnv("daemon.read_timeout_seconds")
	_ = viper.BindEnv("daemon.drain_window_seconds")
	_ = viper.BindEnv("daemon.max_output_bytes")

	_ = viper.BindEnv("audit.path")
	_ = viper.BindEnv("audit.buffer_size")
	_ = viper.BindEnv("audit.query_index_path")

	_ = viper.BindEnv("system_log.syslog.enabled")
	_ = viper.BindEnv("system_log.syslog.socket_path")
	_ = viper.BindEnv("system_log.file_path")

	_ = viper.BindEnv("policy_file")
	_ = viper.BindEnv("session_dir")
	_ = viper.BindEnv("confirmation_passphrase_hash")
	_ = viper.BindEnv("dev_mode")
}

// LoadConfig reads the configuration file, applies environment
// overrides, sets defaults, and returns the DaemonConfig.
func LoadConfig() (*DaemonConfig, error) {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - continue with env vars only.
	}

	var cfg DaemonConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigRaw reads the configuration file and applies defaults, but
// does not validate. Use this when CLI flags may still override fields
// before validation.
func LoadConfigRaw() (*DaemonConfig, error) {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg DaemonConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.SetDefaults()
	return &cfg, nil
}

// ConfigFileUsed returns the path to the configuration file that was
// loaded. Returns an empty string if no config file was found (env vars
// only mode).
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}
