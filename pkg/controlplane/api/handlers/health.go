package handlers

import (
	"context"
	"net/http"
	"time"
)

// HealthCheckTimeout bounds the database ping of the readiness probe.
const HealthCheckTimeout = 5 * time.Second

// Pinger is satisfied by the credential store.
type Pinger interface {
	Healthcheck(ctx context.Context) error
}

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	pinger    Pinger
	startTime time.Time
}

// NewHealthHandler creates a health handler. A nil pinger means the server
// runs without a credential database and is always ready.
func NewHealthHandler(pinger Pinger) *HealthHandler {
	return &HealthHandler{
		pinger:    pinger,
		startTime: time.Now(),
	}
}

// Liveness handles GET /health.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(h.startTime)
	writeJSON(w, http.StatusOK, healthyResponse(map[string]any{
		"service":    "sftpbox",
		"started_at": h.startTime.UTC().Format(time.RFC3339),
		"uptime":     uptime.Round(time.Second).String(),
		"uptime_sec": int64(uptime.Seconds()),
	}))
}

// Readiness handles GET /health/ready. It returns 503 when the credential
// database does not answer.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.pinger == nil {
		writeJSON(w, http.StatusOK, healthyResponse(map[string]any{"database": "none"}))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), HealthCheckTimeout)
	defer cancel()

	start := time.Now()
	if err := h.pinger.Healthcheck(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("database: "+err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, healthyResponse(map[string]any{
		"database": "healthy",
		"latency":  time.Since(start).String(),
	}))
}
