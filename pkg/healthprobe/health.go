package healthprobe

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

// ActiveMarketsProbe reports a market count for the health responses.
// internal/app wires it to internal/marketlock.Registry.Size: the number of
// markets that have had a strategy lock interned since start. Locks are
// never removed, so the count is not the number of markets locked right now.
type ActiveMarketsProbe func() int

// HealthChecker provides health and readiness checks.
type HealthChecker struct {
	startTime    time.Time
	ready        atomic.Bool
	activeMarkets ActiveMarketsProbe
}

// New creates a new HealthChecker.
func New() *HealthChecker {
	return &HealthChecker{
		startTime: time.Now(),
	}
}

// SetReady marks the application as ready to serve traffic.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// SetActiveMarketsProbe wires the function the readiness/health handlers
// call to fill ActiveMarkets (see ActiveMarketsProbe). A nil probe (the
// zero value) omits ActiveMarkets from the response.
func (h *HealthChecker) SetActiveMarketsProbe(probe ActiveMarketsProbe) {
	h.activeMarkets = probe
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status        string `json:"status"`
	Uptime        string `json:"uptime"`
	Message       string `json:"message,omitempty"`
	ActiveMarkets *int   `json:"active_markets,omitempty"`
}

func (h *HealthChecker) activeMarketsPtr() *int {
	if h.activeMarkets == nil {
		return nil
	}
	n := h.activeMarkets()
	return &n
}

// Health returns an HTTP handler for liveness checks.
// Always returns 200 OK if the application is running.
func (h *HealthChecker) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := time.Since(h.startTime)
		resp := HealthResponse{
			Status:        "healthy",
			Uptime:        uptime.String(),
			ActiveMarkets: h.activeMarketsPtr(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// Ready returns an HTTP handler for readiness checks.
// Returns 200 OK if ready, 503 Service Unavailable if not.
func (h *HealthChecker) Ready() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.ready.Load() {
			resp := HealthResponse{
				Status:  "not_ready",
				Message: "application is starting",
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(resp)
			return
		}

		uptime := time.Since(h.startTime)
		resp := HealthResponse{
			Status:        "ready",
			Uptime:        uptime.String(),
			ActiveMarkets: h.activeMarketsPtr(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
