package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrivas/taskpool/internal/pool"
)

func TestAdminHandler_HealthCheck(t *testing.T) {
	p := pool.New(pool.Config{Name: "health-test"}, nil, nil)
	h := NewAdminHandler(p)

	req := httptest.NewRequest(http.MethodGet, "/admin/health", nil)
	w := httptest.NewRecorder()
	h.HealthCheck(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminHandler_Status(t *testing.T) {
	p := pool.New(pool.Config{Name: "status-test"}, nil, nil)
	h := NewAdminHandler(p)

	req := httptest.NewRequest(http.MethodGet, "/admin/status", nil)
	w := httptest.NewRecorder()
	h.Status(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "initial", body["status"])
}

func TestAdminHandler_ListWorkers_EmptyBeforeStart(t *testing.T) {
	p := pool.New(pool.Config{Name: "workers-test"}, nil, nil)
	h := NewAdminHandler(p)

	req := httptest.NewRequest(http.MethodGet, "/admin/workers", nil)
	w := httptest.NewRecorder()
	h.ListWorkers(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, float64(0), body["count"])
}
