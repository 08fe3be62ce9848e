package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "http://localhost:5000/api", cfg.APIBaseURL)
	assert.Equal(t, 10*time.Second, cfg.APITimeout)
	assert.Equal(t, "agency_token", cfg.SessionCookie)
	assert.Equal(t, "/login", cfg.LoginPath)
	assert.Equal(t, "/dashboard", cfg.BasePath)
	assert.Equal(t, 5*time.Minute, cfg.ChartCacheTTL)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.True(t, cfg.ActivityEnabled)
	assert.Empty(t, cfg.ManifestPath)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("API_BASE_URL", "https://api.agency.test/v1/")
	t.Setenv("API_TIMEOUT", "3s")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("ACTIVITY_ENABLED", "false")
	t.Setenv("ECHARTS_ASSETS_HOST", "https://cdn.example.com/echarts/")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "https://api.agency.test/v1", cfg.APIBaseURL)
	assert.Equal(t, 3*time.Second, cfg.APITimeout)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.False(t, cfg.ActivityEnabled)
	assert.Equal(t, "https://cdn.example.com/echarts/", cfg.EChartsAssetsHost)
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dashboard.yaml")
	require.NoError(t, os.WriteFile(path, []byte("PORT: \"7070\"\nBASE_PATH: /portal\n"), 0o600))
	t.Setenv("BASE_PATH", "/app")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, "/app", cfg.BasePath)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string][2]string{
		"timeout":  {"API_TIMEOUT", "soon"},
		"zero":     {"API_TIMEOUT", "0s"},
		"ttl":      {"CHART_CACHE_TTL", "forever"},
		"level":    {"LOG_LEVEL", "loud"},
		"base url": {"API_BASE_URL", " "},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(env[0], env[1])
			if _, err := Load(""); err == nil {
				t.Fatalf("expected %s=%q to be rejected", env[0], env[1])
			}
		})
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{Port: "8080", APIBaseURL: "http://api", APITimeout: time.Second, SessionCookie: "agency_token"}
	require.NoError(t, cfg.Validate())

	cfg.APIBaseURL = ""
	cfg.APITimeout = -time.Second
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API_BASE_URL")
	assert.Contains(t, err.Error(), "API_TIMEOUT")
}
