package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "release", cfg.Server.Mode)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Tracing.Enabled)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, 4, cfg.Engine.Workers)

	eng := cfg.EngineConfig()
	assert.Len(t, eng.Validators, 3)
	assert.Equal(t, 1000, eng.MaxPublishCount)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := chdirTemp(t)
	path := filepath.Join(dir, "probgen.yaml")
	err := os.WriteFile(path, []byte(`
server:
  addr: ":9090"
  mode: debug
engine:
  workers: 8
  eval_timeout: 250ms
rate_limit:
  max_requests: 10
  window: 30s
`), 0o644)
	require.NoError(t, err)

	t.Setenv("PROBGEN_SERVER_ADDR", ":7070")
	t.Setenv("PROBGEN_ENGINE_MAX_PUBLISH_COUNT", "50")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Server.Addr, "env overrides file")
	assert.Equal(t, "debug", cfg.Server.Mode)
	assert.Equal(t, 8, cfg.Engine.Workers)
	assert.Equal(t, 50, cfg.Engine.MaxPublishCount)
	assert.Equal(t, 10, cfg.RateLimit.MaxRequests)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Window)

	eng := cfg.EngineConfig()
	assert.Equal(t, 250*time.Millisecond, eng.EvalTimeout)
	assert.Equal(t, 8, eng.Workers)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	dir := chdirTemp(t)
	_, err := Load(filepath.Join(dir, "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	chdirTemp(t)
	base, err := Load("")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"bad mode", func(c *Config) { c.Server.Mode = "prod" }},
		{"no workers", func(c *Config) { c.Engine.Workers = 0 }},
		{"no option attempts", func(c *Config) { c.Engine.MaxOptionAttempts = 0 }},
		{"rate without window", func(c *Config) { c.RateLimit.Window = 0 }},
		{"tracing without endpoint", func(c *Config) {
			c.Tracing.Enabled = true
			c.Tracing.CollectorEndpoint = ""
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := *base
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
