// Package health holds the body of the control-plane health probes as the
// CLI decodes it.
package health

// Response is the envelope returned by /health and /health/ready.
type Response struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Data      Data   `json:"data"`
	Error     string `json:"error,omitempty"`
}

// Data carries the probe details. Liveness fills the service fields,
// readiness the database fields.
type Data struct {
	Service   string `json:"service,omitempty"`
	StartedAt string `json:"started_at,omitempty"`
	Uptime    string `json:"uptime,omitempty"`
	UptimeSec int64  `json:"uptime_sec,omitempty"`
	Database  string `json:"database,omitempty"`
	Latency   string `json:"latency,omitempty"`
}

// Healthy reports whether the probe passed.
func (r *Response) Healthy() bool {
	return r.Status == "healthy"
}
