package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := LoadConfig()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 30*time.Minute, cfg.Cache.PublishedTTL)
	assert.Equal(t, time.Minute, cfg.Cache.PrivateTTL)
	assert.Equal(t, 250*time.Millisecond, cfg.Cache.BackendTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Cache.HTTPMaxAge)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("CACHE_PUBLISHED_TTL", "2h")
	t.Setenv("CACHE_ENABLED", "false")
	t.Setenv("DB_MAX_CONNS", "25")

	cfg := LoadConfig()

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 2*time.Hour, cfg.Cache.PublishedTTL)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, 25, cfg.Database.MaxConns)
}

func TestLoadConfig_MalformedEnvFallsBackToDefault(t *testing.T) {
	t.Setenv("CACHE_PUBLISHED_TTL", "soon")
	t.Setenv("DB_PORT", "not-a-number")

	cfg := LoadConfig()

	assert.Equal(t, 30*time.Minute, cfg.Cache.PublishedTTL)
	assert.Equal(t, 5432, cfg.Database.Port)
}

func TestConfig_Validate(t *testing.T) {
	valid := LoadConfig()
	require.NoError(t, valid.Validate())

	t.Run("missing database host", func(t *testing.T) {
		cfg := LoadConfig()
		cfg.Database.Host = ""
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "DB_HOST")
	})

	t.Run("missing database name", func(t *testing.T) {
		cfg := LoadConfig()
		cfg.Database.Database = ""
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "DB_NAME")
	})

	t.Run("private TTL above published TTL", func(t *testing.T) {
		cfg := LoadConfig()
		cfg.Cache.PrivateTTL = time.Hour
		cfg.Cache.PublishedTTL = time.Minute
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "CACHE_PRIVATE_TTL")
	})
}

func writePolicyFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache-policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCachePolicy(t *testing.T) {
	path := writePolicyFile(t, `
published_ttl: 1h
private_ttl: 30s
backend_timeout: 100ms
http:
  max_age: 10m
  stale_while_revalidate: 2m
`)

	policy, err := LoadCachePolicy(path)
	require.NoError(t, err)

	cfg := LoadConfig()
	require.NoError(t, cfg.ApplyCachePolicy(policy))

	assert.Equal(t, time.Hour, cfg.Cache.PublishedTTL)
	assert.Equal(t, 30*time.Second, cfg.Cache.PrivateTTL)
	assert.Equal(t, 100*time.Millisecond, cfg.Cache.BackendTimeout)
	assert.Equal(t, 10*time.Minute, cfg.Cache.HTTPMaxAge)
	assert.Equal(t, 2*time.Minute, cfg.Cache.HTTPStaleWhileRevalidate)
}

func TestApplyCachePolicy_PartialOverlay(t *testing.T) {
	path := writePolicyFile(t, "published_ttl: 45m\n")

	policy, err := LoadCachePolicy(path)
	require.NoError(t, err)

	cfg := LoadConfig()
	require.NoError(t, cfg.ApplyCachePolicy(policy))

	// Only the set field changes; the rest keeps the env baseline
	assert.Equal(t, 45*time.Minute, cfg.Cache.PublishedTTL)
	assert.Equal(t, time.Minute, cfg.Cache.PrivateTTL)
	assert.Equal(t, 250*time.Millisecond, cfg.Cache.BackendTimeout)
}

func TestApplyCachePolicy_MalformedDuration(t *testing.T) {
	path := writePolicyFile(t, "published_ttl: forever\n")

	policy, err := LoadCachePolicy(path)
	require.NoError(t, err)

	cfg := LoadConfig()
	err = cfg.ApplyCachePolicy(policy)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "published_ttl")
}

func TestLoadCachePolicy_Errors(t *testing.T) {
	_, err := LoadCachePolicy("/nonexistent/policy.yaml")
	assert.Error(t, err)

	path := writePolicyFile(t, "published_ttl: [not, a, scalar\n")
	_, err = LoadCachePolicy(path)
	assert.Error(t, err)
}

func TestApplyCachePolicy_NilPolicy(t *testing.T) {
	cfg := LoadConfig()
	require.NoError(t, cfg.ApplyCachePolicy(nil))
	assert.Equal(t, 30*time.Minute, cfg.Cache.PublishedTTL)
}
