// Package prometheus provides the Prometheus-backed implementations of the
// interfaces in pkg/metrics.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/sftpbox/pkg/metrics"
)

// sftpMetrics is the Prometheus implementation of metrics.SFTPMetrics.
type sftpMetrics struct {
	requestsTotal     *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	requestsInFlight  *prometheus.GaugeVec
	bytesTransferred  *prometheus.CounterVec
	sessionsActive    prometheus.Gauge
	sessionsTotal     *prometheus.CounterVec
	authAttempts      *prometheus.CounterVec
	activeConnections prometheus.Gauge
	connectionsTotal  *prometheus.CounterVec
}

// NewSFTPMetrics creates a new Prometheus-backed SFTPMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewSFTPMetrics() metrics.SFTPMetrics {
	if !metrics.IsEnabled() {
		return nil
	}
	return newSFTPMetrics(metrics.GetRegistry())
}

func newSFTPMetrics(reg prometheus.Registerer) *sftpMetrics {
	return &sftpMetrics{
		requestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "sftpbox_sftp_requests_total",
				Help: "Total number of SFTP requests by operation and reply status",
			},
			[]string{"operation", "status"},
		),
		requestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "sftpbox_sftp_request_duration_milliseconds",
				Help: "Duration of SFTP requests in milliseconds",
				Buckets: []float64{
					0.05, // 50us - handle lookups, close
					0.1,
					0.5,
					1, // 1ms - stat, small reads
					5,
					10,
					50,
					100, // 100ms - large directory listings
					500,
					1000,
				},
			},
			[]string{"operation"},
		),
		requestsInFlight: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sftpbox_sftp_requests_in_flight",
				Help: "SFTP requests currently being processed",
			},
			[]string{"operation"},
		),
		bytesTransferred: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "sftpbox_sftp_bytes_total",
				Help: "Payload bytes transferred by READ and WRITE",
			},
			[]string{"direction"}, // "read", "write"
		),
		sessionsActive: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "sftpbox_sftp_sessions_active",
				Help: "SFTP subsystem sessions currently running",
			},
		),
		sessionsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "sftpbox_sftp_sessions_total",
				Help: "Finished SFTP sessions by end reason",
			},
			[]string{"reason"}, // "eof", "error", "shutdown"
		),
		authAttempts: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "sftpbox_ssh_auth_attempts_total",
				Help: "SSH authentication attempts by method and result",
			},
			[]string{"method", "result"},
		),
		activeConnections: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "sftpbox_ssh_connections_active",
				Help: "SSH connections currently open",
			},
		),
		connectionsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "sftpbox_ssh_connections_total",
				Help: "SSH connection lifecycle events",
			},
			[]string{"event"}, // "accepted", "closed", "force_closed"
		),
	}
}

func (m *sftpMetrics) RecordRequest(operation string, duration time.Duration, status string) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(operation, status).Inc()
	m.requestDuration.WithLabelValues(operation).Observe(duration.Seconds() * 1000)
}

func (m *sftpMetrics) RecordRequestStart(operation string) {
	if m == nil {
		return
	}
	m.requestsInFlight.WithLabelValues(operation).Inc()
}

func (m *sftpMetrics) RecordRequestEnd(operation string) {
	if m == nil {
		return
	}
	m.requestsInFlight.WithLabelValues(operation).Dec()
}

func (m *sftpMetrics) RecordBytesTransferred(direction string, bytes uint64) {
	if m == nil || bytes == 0 {
		return
	}
	m.bytesTransferred.WithLabelValues(direction).Add(float64(bytes))
}

func (m *sftpMetrics) RecordSessionStarted() {
	if m == nil {
		return
	}
	m.sessionsActive.Inc()
}

func (m *sftpMetrics) RecordSessionEnded(reason string) {
	if m == nil {
		return
	}
	m.sessionsActive.Dec()
	m.sessionsTotal.WithLabelValues(reason).Inc()
}

func (m *sftpMetrics) RecordAuthAttempt(method string, result string) {
	if m == nil {
		return
	}
	m.authAttempts.WithLabelValues(method, result).Inc()
}

func (m *sftpMetrics) SetActiveConnections(count int32) {
	if m == nil {
		return
	}
	m.activeConnections.Set(float64(count))
}

func (m *sftpMetrics) RecordConnectionAccepted() {
	if m == nil {
		return
	}
	m.connectionsTotal.WithLabelValues("accepted").Inc()
}

func (m *sftpMetrics) RecordConnectionClosed() {
	if m == nil {
		return
	}
	m.connectionsTotal.WithLabelValues("closed").Inc()
}

func (m *sftpMetrics) RecordConnectionForceClosed() {
	if m == nil {
		return
	}
	m.connectionsTotal.WithLabelValues("force_closed").Inc()
}
