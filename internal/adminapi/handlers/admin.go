package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/mrivas/taskpool/internal/logger"
	"github.com/mrivas/taskpool/internal/pool"
)

// AdminHandler serves pool and worker introspection endpoints.
type AdminHandler struct {
	pool *pool.Pool
}

// NewAdminHandler builds an AdminHandler over p.
func NewAdminHandler(p *pool.Pool) *AdminHandler {
	return &AdminHandler{pool: p}
}

// HealthCheck handles GET /admin/health.
func (h *AdminHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"pool":   h.pool.UID(),
	})
}

// Status handles GET /admin/status.
func (h *AdminHandler) Status(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"pool":             h.pool.UID(),
		"status":           h.pool.Status().String(),
		"ongoing":          len(h.pool.Ongoing()),
		"workers_requests": h.pool.WorkersRequests(),
	})
}

// ListWorkers handles GET /admin/workers.
func (h *AdminHandler) ListWorkers(w http.ResponseWriter, r *http.Request) {
	statuses := h.pool.WorkerStatuses()
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"workers": statuses,
		"count":   len(statuses),
	})
}

func (h *AdminHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error().Err(err).Msg("failed to encode JSON response")
	}
}
