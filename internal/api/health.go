package api

import (
	"net/http"
	"time"

	"github.com/tohum-ai/tohum/internal/api/respond"
)

// HealthHandler reports aggregated service readiness.
type HealthHandler struct {
	isHealthy func() bool
}

// NewHealthHandler takes the aggregated readiness probe, typically
// ServiceHealthChecker.IsHealthy.
func NewHealthHandler(isHealthy func() bool) *HealthHandler {
	if isHealthy == nil {
		isHealthy = func() bool { return false }
	}
	return &HealthHandler{isHealthy: isHealthy}
}

// CheckHealth handles GET /api/health.
// Always returns 200; the body reports healthy/unhealthy. A non-200 status
// indicates handler failure only.
func (h *HealthHandler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	status := "unhealthy"
	if h.isHealthy() {
		status = "healthy"
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
