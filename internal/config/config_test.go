package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigHasSaneRetryAndTimeouts(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, BackoffExponential, cfg.Retry.Backoff)
	assert.Equal(t, JitterFull, cfg.Retry.Jitter)
	assert.Equal(t, 30*time.Second, cfg.Timeout.Request)
	assert.True(t, cfg.FollowRedirects)
	assert.Equal(t, 5, cfg.MaxRedirects)
}

func TestNewReadsEnvOverrides(t *testing.T) {
	t.Setenv("RECKER_BASE_URL", "https://api.example.com")
	t.Setenv("RECKER_RETRY_MAX_ATTEMPTS", "7")
	t.Setenv("RECKER_FOLLOW_REDIRECTS", "false")
	t.Setenv("RECKER_CACHE_ENABLED", "true")
	t.Setenv("RECKER_CACHE_STRATEGY", "ttl")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", cfg.BaseURL)
	assert.Equal(t, 7, cfg.Retry.MaxAttempts)
	assert.False(t, cfg.FollowRedirects)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, CacheTTL, cfg.Cache.Strategy)
}

func TestNewRejectsNegativeRetryAttempts(t *testing.T) {
	t.Setenv("RECKER_RETRY_MAX_ATTEMPTS", "-1")
	_, err := New()
	assert.Error(t, err)
}

func TestLoadFromFileOverlaysYAMLProfile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.yaml")
	content := "base_url: https://staging.example.com\nretry:\n  max_attempts: 5\n  backoff: fixed\ncache:\n  enabled: true\n  strategy: stale-while-revalidate\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "https://staging.example.com", cfg.BaseURL)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, BackoffFixed, cfg.Retry.Backoff)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, CacheSWR, cfg.Cache.Strategy)
}

func TestLoadFromFileMissingFileErrors(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/profile.yaml")
	assert.Error(t, err)
}
