package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// HealthStatus represents the health status of the service
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// CheckFunc probes one dependency and returns nil when it is healthy
type CheckFunc func(ctx context.Context) error

// HealthChecker manages named health checks for the service
type HealthChecker struct {
	mu     sync.RWMutex
	checks map[string]CheckFunc
}

// NewHealthChecker creates a new HealthChecker
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		checks: make(map[string]CheckFunc),
	}
}

// Register adds a named check. Registering the same name replaces the check.
func (h *HealthChecker) Register(name string, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// Check performs all registered checks and returns the status
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	h.mu.RLock()
	checks := make(map[string]CheckFunc, len(h.checks))
	for name, check := range h.checks {
		checks[name] = check
	}
	h.mu.RUnlock()

	results := make(map[string]string)
	overallStatus := "healthy"

	for name, check := range checks {
		checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := check(checkCtx)
		cancel()

		if err != nil {
			results[name] = "unhealthy: " + err.Error()
			overallStatus = "unhealthy"
		} else {
			results[name] = "healthy"
		}
	}

	return HealthStatus{
		Status:    overallStatus,
		Timestamp: time.Now(),
		Checks:    results,
	}
}

// HealthHandler returns an HTTP handler for health checks
func (h *HealthChecker) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := h.Check(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if status.Status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		json.NewEncoder(w).Encode(status)
	}
}
