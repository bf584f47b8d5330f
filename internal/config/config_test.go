package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	originalDir, _ := os.Getwd()
	tmpDir := t.TempDir()
	os.Chdir(tmpDir)
	defer os.Chdir(originalDir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "default", cfg.Pool.Name)
	assert.Equal(t, 4, cfg.Pool.Size)
	assert.Equal(t, time.Duration(0), cfg.Pool.WorkerHeartbeat)
	assert.Equal(t, 1800*time.Second, cfg.Pool.HeartbeatInitWindow)
	assert.Equal(t, 300*time.Second, cfg.Pool.WorkerInactivityThreshold)
	assert.Equal(t, 3, cfg.Pool.HeartbeatsMissLimit)
	assert.Equal(t, 3, cfg.Pool.TaskRetriesLimit)
	assert.Equal(t, 5*time.Second, cfg.Pool.MaxActiveLoopSleep)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8090, cfg.Server.Port)

	assert.False(t, cfg.Auth.Enabled)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_EnvOverride(t *testing.T) {
	originalDir, _ := os.Getwd()
	tmpDir := t.TempDir()
	os.Chdir(tmpDir)
	defer os.Chdir(originalDir)

	os.Setenv("TASKPOOL_POOL_SIZE", "8")
	defer os.Unsetenv("TASKPOOL_POOL_SIZE")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Pool.Size)
}
