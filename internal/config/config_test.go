package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 20, cfg.Scraper.MaxPages)
	assert.Equal(t, 30000, cfg.Scraper.TimeoutMs)
	assert.Equal(t, 500, cfg.Keywords.Max)
	assert.Equal(t, 10, cfg.Keywords.MinSearchVolume)
	assert.Equal(t, 10, cfg.RateLimit.MaxRequests)
	assert.Equal(t, 24, cfg.Jobs.TTLHours)
	assert.False(t, cfg.Server.TrustProxy)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("server:\n  port: 9090\nscraper:\n  max_pages: 5\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Scraper.MaxPages)
	// Untouched keys keep their defaults.
	assert.Equal(t, 500, cfg.Keywords.Max)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	bad := cfg
	bad.Scraper.MaxPages = 101
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.MetricsService.URL = ""
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.RateLimit.MaxRequests = 0
	assert.Error(t, bad.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/does/not/exist.yaml")
	assert.Error(t, err)
}
