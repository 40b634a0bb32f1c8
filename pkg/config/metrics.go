package config

import (
	"github.com/marmos91/sftpbox/pkg/metrics"
	prommetrics "github.com/marmos91/sftpbox/pkg/metrics/prometheus"
)

// MetricsResult holds what InitializeMetrics created. Both fields are nil
// when metrics are disabled.
type MetricsResult struct {
	Server *prommetrics.Server
	SFTP   metrics.SFTPMetrics
}

// InitializeMetrics creates the registry, the SFTP collectors and the
// metrics HTTP server when cfg.Metrics.Enabled is set. Call it once.
func InitializeMetrics(cfg *Config) MetricsResult {
	if !cfg.Metrics.Enabled {
		return MetricsResult{}
	}

	reg := metrics.InitRegistry()
	return MetricsResult{
		Server: prommetrics.NewServer(cfg.Metrics.Port, reg),
		SFTP:   prommetrics.NewSFTPMetrics(),
	}
}
