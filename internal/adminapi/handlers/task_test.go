package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrivas/taskpool/internal/pool"
	"github.com/mrivas/taskpool/internal/task"
)

func echoFactory(uid, kind string, payload map[string]interface{}) (task.Task, error) {
	return task.NewFunc(uid, kind, func(ctx context.Context) (any, error) {
		return payload, nil
	}), nil
}

func newTestTaskHandler() *TaskHandler {
	p := pool.New(pool.Config{Name: "admin-test", Size: 0}, nil, nil)
	return NewTaskHandler(p, echoFactory)
}

func TestTaskHandler_Create_InvalidJSON(t *testing.T) {
	h := newTestTaskHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks", bytes.NewBufferString("not json"))
	w := httptest.NewRecorder()

	h.Create(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTaskHandler_Create_MissingKind(t *testing.T) {
	h := newTestTaskHandler()

	body, _ := json.Marshal(CreateTaskRequest{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks", bytes.NewReader(body))
	w := httptest.NewRecorder()

	h.Create(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTaskHandler_Create_Accepted(t *testing.T) {
	h := newTestTaskHandler()

	body, _ := json.Marshal(CreateTaskRequest{Kind: "echo", Payload: map[string]interface{}{"n": float64(1)}})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks", bytes.NewReader(body))
	w := httptest.NewRecorder()

	h.Create(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)

	var resp TaskStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.UID)
	assert.Equal(t, "echo", resp.Target)
}

func TestTaskHandler_Get_NotDoneYet(t *testing.T) {
	h := newTestTaskHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks/missing", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("uid", "missing")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	w := httptest.NewRecorder()

	h.Get(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp TaskStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Done)
}
