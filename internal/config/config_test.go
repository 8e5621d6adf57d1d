package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Empty(t, cfg.Store.DatabaseURL)
	assert.Equal(t, int32(10), cfg.Store.Pool.MaxConns)
	assert.Equal(t, "nominatim", cfg.Geocode.Provider)
	assert.Equal(t, "geodir/1.0", cfg.Geocode.UserAgent)
	assert.Equal(t, "ro", cfg.Geocode.CountryCodes)
	assert.Equal(t, 10*time.Second, cfg.Geocode.Timeout())
	assert.Equal(t, 2, cfg.Geocode.Retries)
	assert.False(t, cfg.Geocode.CacheEnabled)
	assert.True(t, cfg.Enrich.Async)
	assert.Equal(t, 256, cfg.Enrich.QueueSize)
	assert.Equal(t, 500*time.Millisecond, cfg.Enrich.MinInterval())
	assert.Equal(t, time.Minute, cfg.Enrich.BreakerReset())
	assert.Equal(t, "romanian", cfg.Search.Language)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.False(t, cfg.Server.AdminEnabled)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.CORSOrigins)
	assert.InDelta(t, 0.01, cfg.Server.ProposalRPS, 0.0001)
	assert.Equal(t, "restrict", cfg.Categories.DeletePolicy)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
geocode:
  provider: google
  api_key: abc
enrich:
  async: false
  min_interval_ms: 1000
server:
  port: 9090
  admin_enabled: true
  cors_origins:
    - https://harta.example.ro
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "google", cfg.Geocode.Provider)
	assert.Equal(t, "abc", cfg.Geocode.APIKey)
	assert.False(t, cfg.Enrich.Async)
	assert.Equal(t, time.Second, cfg.Enrich.MinInterval())
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.Server.AdminEnabled)
	assert.Equal(t, []string{"https://harta.example.ro"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Defaults still apply for unset values
	assert.Equal(t, 256, cfg.Enrich.QueueSize)
	assert.NoError(t, cfg.Validate())
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  database_url: postgres://file/geodir
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("GEODIR_STORE_DATABASE_URL", "postgres://env/geodir")
	t.Setenv("GEODIR_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres://env/geodir", cfg.Store.DatabaseURL)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("GEODIR_SERVER_PORT", "3000")
	t.Setenv("GEODIR_GEOCODE_API_KEY", "secret")
	t.Setenv("GEODIR_CATEGORIES_DELETE_POLICY", "nullify")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "secret", cfg.Geocode.APIKey)
	assert.Equal(t, "nullify", cfg.Categories.DeletePolicy)
}

func TestLoadMalformedFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server: [port"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		cfg.Geocode.Provider = "nominatim"
		cfg.Categories.DeletePolicy = "restrict"
		cfg.Server.Port = 8080
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"google without key", func(c *Config) { c.Geocode.Provider = "google" }, "api_key is required"},
		{"google with key", func(c *Config) { c.Geocode.Provider = "google"; c.Geocode.APIKey = "k" }, ""},
		{"unknown provider", func(c *Config) { c.Geocode.Provider = "here" }, "unknown geocode.provider"},
		{"unknown policy", func(c *Config) { c.Categories.DeletePolicy = "orphan" }, "unknown categories.delete_policy"},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "out of range"},
		{"negative interval", func(c *Config) { c.Enrich.MinIntervalMs = -1 }, "must not be negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
