package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", cfg.Listen)
	assert.Equal(t, "python:3.13-slim", cfg.Image)
	assert.Equal(t, 1, cfg.PoolSize)
	assert.Equal(t, 60, cfg.SessionTimeoutSeconds)
	assert.Equal(t, 5, cfg.SweepIntervalSeconds)
	assert.Equal(t, 0.5, cfg.Limits.CPULimit)
	assert.Equal(t, "128m", cfg.Limits.MemLimit)
	assert.Equal(t, "none", cfg.Limits.NetworkMode)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kapsel.yaml")
	data := `
listen: "0.0.0.0:9090"
image: "python:3.12-slim"
pool_size: 4
session_timeout_seconds: 120
limits:
  cpu_limit: 2.0
  mem_limit: "512m"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9090", cfg.Listen)
	assert.Equal(t, "python:3.12-slim", cfg.Image)
	assert.Equal(t, 4, cfg.PoolSize)
	assert.Equal(t, 120, cfg.SessionTimeoutSeconds)
	assert.Equal(t, 2.0, cfg.Limits.CPULimit)
	assert.Equal(t, "512m", cfg.Limits.MemLimit)
	// Unset fields keep defaults.
	assert.Equal(t, 5, cfg.SweepIntervalSeconds)
	assert.Equal(t, 128, cfg.Limits.PidsLimit)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "python:3.13-slim", cfg.Image)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("KAPSEL_LISTEN", "127.0.0.1:7777")
	t.Setenv("KAPSEL_POOL_SIZE", "3")
	t.Setenv("KAPSEL_MEM_LIMIT", "256m")
	t.Setenv("KAPSEL_NETWORK_MODE", "bridge")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:7777", cfg.Listen)
	assert.Equal(t, 3, cfg.PoolSize)
	assert.Equal(t, "256m", cfg.Limits.MemLimit)
	assert.Equal(t, "bridge", cfg.Limits.NetworkMode)
}

func TestLoad_InvalidMemLimit(t *testing.T) {
	t.Setenv("KAPSEL_MEM_LIMIT", "lots")

	_, err := Load("")
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kapsel.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [broken"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestMemBytes(t *testing.T) {
	l := Limits{MemLimit: "128m"}
	n, err := l.MemBytes()
	require.NoError(t, err)
	assert.Equal(t, int64(128*1024*1024), n)
}
