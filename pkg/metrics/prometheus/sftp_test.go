package prometheus

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/sftpbox/pkg/metrics"
)

func TestNewSFTPMetricsDisabled(t *testing.T) {
	metrics.ResetRegistry()
	assert.Nil(t, NewSFTPMetrics())
}

func TestSFTPMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newSFTPMetrics(reg)

	m.RecordRequestStart("READ")
	m.RecordRequest("READ", 2*time.Millisecond, "OK")
	m.RecordRequest("READ", time.Millisecond, "EOF")
	m.RecordRequestEnd("READ")
	m.RecordBytesTransferred("read", 4096)
	m.RecordBytesTransferred("write", 0)
	m.RecordSessionStarted()
	m.RecordSessionStarted()
	m.RecordSessionEnded("eof")
	m.RecordAuthAttempt("password", "reject")
	m.RecordConnectionAccepted()
	m.SetActiveConnections(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("READ", "OK")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("READ", "EOF")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.requestsInFlight.WithLabelValues("READ")))
	assert.Equal(t, 4096.0, testutil.ToFloat64(m.bytesTransferred.WithLabelValues("read")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.bytesTransferred.WithLabelValues("write")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionsActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionsTotal.WithLabelValues("eof")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.authAttempts.WithLabelValues("password", "reject")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.activeConnections))
}

func TestNilSFTPMetricsIsSafe(t *testing.T) {
	var m *sftpMetrics
	assert.NotPanics(t, func() {
		m.RecordRequest("OPEN", time.Millisecond, "OK")
		m.RecordSessionEnded("error")
		m.RecordConnectionForceClosed()
	})
}

func TestServerExposesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newSFTPMetrics(reg)
	m.RecordAuthAttempt("publickey", "accept")

	srv := httptest.NewServer(NewServer(0, reg).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `sftpbox_ssh_auth_attempts_total{method="publickey",result="accept"} 1`)
}
