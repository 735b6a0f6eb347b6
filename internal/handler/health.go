package handler

import (
	"net/http"

	"github.com/surveypesa/backend/internal/repository"
)

// HealthHandler handles the health check endpoint.
type HealthHandler struct {
	store repository.Store
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(store repository.Store) *HealthHandler {
	return &HealthHandler{store: store}
}

// Check handles GET /health.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status": "ok",
	}

	if err := h.store.Ping(r.Context()); err != nil {
		status["store"] = "error"
		status["status"] = "degraded"
	} else {
		status["store"] = "ok"
	}

	code := http.StatusOK
	if status["status"] == "degraded" {
		code = http.StatusServiceUnavailable
	}

	JSON(w, code, status)
}
