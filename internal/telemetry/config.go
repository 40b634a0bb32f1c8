package telemetry

import (
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const (
	// DefaultServiceName names the service in traces and profiles.
	DefaultServiceName = "sftpbox"

	// DefaultEndpoint is the local OTLP/gRPC collector.
	DefaultEndpoint = "localhost:4317"
)

// Config selects where SFTP traces are exported. The zero value disables
// tracing.
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string

	// Endpoint is the OTLP/gRPC collector, host:port.
	Endpoint string

	// Insecure dials the collector without TLS.
	Insecure bool

	// SampleRate is the fraction of SFTP sessions traced, 0 to 1. Request
	// spans inherit the decision of their session span.
	SampleRate float64
}

// DefaultConfig returns a disabled configuration pointing at a local
// collector.
func DefaultConfig() Config {
	return Config{
		ServiceName:    DefaultServiceName,
		ServiceVersion: "dev",
		Endpoint:       DefaultEndpoint,
		Insecure:       true,
		SampleRate:     1.0,
	}
}

func (c Config) withDefaults() Config {
	if c.ServiceName == "" {
		c.ServiceName = DefaultServiceName
	}
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	return c
}

// sampler decides per root span, so a session is traced whole or not at all.
func (c Config) sampler() sdktrace.Sampler {
	var root sdktrace.Sampler
	switch {
	case c.SampleRate >= 1:
		root = sdktrace.AlwaysSample()
	case c.SampleRate <= 0:
		root = sdktrace.NeverSample()
	default:
		root = sdktrace.TraceIDRatioBased(c.SampleRate)
	}
	return sdktrace.ParentBased(root)
}
