// Package handlers implements the admin HTTP surface's request handlers,
// adapted from the teacher's internal/api/handlers package onto the task
// pool's own submit/status/list operations.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mrivas/taskpool/internal/logger"
	"github.com/mrivas/taskpool/internal/pool"
	"github.com/mrivas/taskpool/internal/task"
)

// Factory builds a task.Task of the named kind from a submitted payload.
// The caller (cmd/poolctl) registers one factory per demo task kind.
type Factory func(uid, kind string, payload map[string]interface{}) (task.Task, error)

// TaskHandler serves task submission and status lookups.
type TaskHandler struct {
	pool    *pool.Pool
	factory Factory
}

// NewTaskHandler builds a TaskHandler over p using factory to materialize
// submitted requests.
func NewTaskHandler(p *pool.Pool, factory Factory) *TaskHandler {
	return &TaskHandler{pool: p, factory: factory}
}

// CreateTaskRequest is the submission body for POST /api/v1/tasks.
type CreateTaskRequest struct {
	Kind    string                 `json:"kind"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// TaskStatusResponse is the response shape for a task's current status.
type TaskStatusResponse struct {
	UID     string `json:"uid"`
	Target  string `json:"target"`
	Done    bool   `json:"done"`
	Status  bool   `json:"status,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Value   any    `json:"value,omitempty"`
}

// Create handles POST /api/v1/tasks.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Kind == "" {
		h.respondError(w, http.StatusBadRequest, "kind is required")
		return
	}

	uid := task.NewUID()
	t, err := h.factory(uid, req.Kind, req.Payload)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.pool.Add(t, uid); err != nil {
		logger.Error().Err(err).Str("task_uid", uid).Msg("failed to submit task")
		h.respondError(w, http.StatusInternalServerError, "failed to submit task")
		return
	}

	logger.Info().Str("task_uid", uid).Str("kind", req.Kind).Msg("task submitted")
	h.respondJSON(w, http.StatusAccepted, TaskStatusResponse{UID: uid, Target: t.Target()})
}

// Get handles GET /api/v1/tasks/{uid}.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")
	if uid == "" {
		h.respondError(w, http.StatusBadRequest, "uid is required")
		return
	}

	result, done := h.pool.Result(uid)
	if !done {
		h.respondJSON(w, http.StatusOK, TaskStatusResponse{UID: uid, Done: false})
		return
	}

	h.respondJSON(w, http.StatusOK, TaskStatusResponse{
		UID:    uid,
		Target: result.Task.Target(),
		Done:   true,
		Status: result.Status,
		Reason: result.Reason,
		Value:  result.Value,
	})
}

// ListResponse summarizes the pool's in-flight and completed tasks.
type ListResponse struct {
	Ongoing []string                   `json:"ongoing"`
	Results map[string]TaskStatusResponse `json:"results"`
}

// List handles GET /api/v1/tasks.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	results := make(map[string]TaskStatusResponse, len(h.pool.Results()))
	for uid, result := range h.pool.Results() {
		results[uid] = TaskStatusResponse{
			UID:    uid,
			Target: result.Task.Target(),
			Done:   true,
			Status: result.Status,
			Reason: result.Reason,
			Value:  result.Value,
		}
	}

	h.respondJSON(w, http.StatusOK, ListResponse{
		Ongoing: h.pool.Ongoing(),
		Results: results,
	})
}

func (h *TaskHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error().Err(err).Msg("failed to encode JSON response")
	}
}

func (h *TaskHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": http.StatusText(status), "message": message})
}
