package config

import (
	"strings"

	"github.com/marmos91/sftpbox/pkg/adapter/sftp"
	"github.com/marmos91/sftpbox/pkg/auth"
	"github.com/marmos91/sftpbox/pkg/controlplane/api"
	"github.com/marmos91/sftpbox/pkg/controlplane/store"
)

// Default ports of the auxiliary HTTP servers.
const (
	DefaultMetricsPort = 9090
	DefaultAPIPort     = 8080
)

// ApplyDefaults sets default values for any unspecified configuration fields.
// Zero values are replaced; explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyShutdownTimeoutDefaults(cfg)
	applySandboxDefaults(&cfg.Sandbox)
	applyServerDefaults(&cfg.Server)
	applyAuthDefaults(&cfg.Auth)
	applyDatabaseDefaults(&cfg.Database)
	applyMetricsDefaults(&cfg.Metrics)
	applyControlPlaneDefaults(&cfg.ControlPlane)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
	applyProfilingDefaults(&cfg.Profiling)
}

func applyProfilingDefaults(cfg *ProfilingConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}
	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{
			"cpu",
			"alloc_objects",
			"alloc_space",
			"inuse_objects",
			"inuse_space",
			"goroutines",
		}
	}
}

func applyShutdownTimeoutDefaults(cfg *Config) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = sftp.DefaultShutdownTimeout
	}
}

func applySandboxDefaults(cfg *sftp.SandboxConfig) {
	cfg.ApplyDefaults()
}

// applyServerDefaults fills the listener settings. The rejection delays
// are only defaulted through GetDefaultConfig: an explicit 0s in a file
// disables them.
func applyServerDefaults(cfg *sftp.ServerConfig) {
	if cfg.BindAddress == "" {
		cfg.BindAddress = "0.0.0.0"
	}
	if cfg.Port == 0 {
		cfg.Port = sftp.DefaultPort
	}
	if cfg.MaxAuthTries == 0 {
		cfg.MaxAuthTries = sftp.DefaultMaxAuthTries
	}
	if cfg.MetricsLogInterval == 0 {
		cfg.MetricsLogInterval = sftp.DefaultMetricsLogInterval
	}
	cfg.ApplyDefaults()
}

func applyAuthDefaults(cfg *auth.Config) {
	cfg.Token.ApplyDefaults()
}

func applyDatabaseDefaults(cfg *store.Config) {
	cfg.ApplyDefaults()
}

// applyMetricsDefaults sets the port only when metrics are enabled.
func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = DefaultMetricsPort
	}
}

func applyControlPlaneDefaults(cfg *api.APIConfig) {
	if cfg.Port == 0 {
		cfg.Port = DefaultAPIPort
	}
	cfg.ApplyDefaults()
}

// GetDefaultConfig returns a Config with all default values applied.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Server: sftp.ServerConfig{
			AuthRejectionDelay:        sftp.DefaultAuthRejectionDelay,
			AuthRejectionDelayInitial: sftp.DefaultAuthRejectionDelayInitial,
		},
		Database: store.Config{
			Type: store.DatabaseTypeSQLite,
		},
		ControlPlane: api.APIConfig{
			Enabled: true,
		},
		Metrics: MetricsConfig{
			Port: DefaultMetricsPort,
		},
		Telemetry: TelemetryConfig{
			Insecure: true,
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
