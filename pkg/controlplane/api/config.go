package api

import "time"

// APIConfig configures the control-plane HTTP server.
//
// The API is read-only: it exposes health probes and the list of active
// SSH connections. It binds to loopback by default.
type APIConfig struct {
	// Enabled starts the API server alongside the SFTP listener.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// BindAddress is the interface the API listens on.
	// Default: 127.0.0.1
	BindAddress string `mapstructure:"bind_address" yaml:"bind_address"`

	// Port is the HTTP port for the API endpoints.
	// Default: 8080
	Port int `mapstructure:"port" validate:"omitempty,min=0,max=65535" yaml:"port"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 10s
	ReadTimeout time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the response.
	// Default: 10s
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next request
	// when keep-alives are enabled.
	// Default: 60s
	IdleTimeout time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
}

// ApplyDefaults fills in zero values. Port is left alone so that 0 can
// request an ephemeral port.
func (c *APIConfig) ApplyDefaults() {
	if c.BindAddress == "" {
		c.BindAddress = "127.0.0.1"
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60 * time.Second
	}
}
