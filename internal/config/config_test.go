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
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "./badger_data", cfg.BadgerDBPath)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "http", cfg.ScraperEngine)
	assert.Equal(t, 15*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 5*time.Second, cfg.RedirectTimeout)
	assert.Equal(t, 20*time.Second, cfg.ClassifyTimeout)
	assert.Equal(t, "Shared from iPhone", cfg.ShareDefaultNote)
	assert.Equal(t, 10, cfg.ShareRateBurst)
	assert.Empty(t, cfg.TelegramBotToken)
	assert.Empty(t, cfg.AnthropicAPIKey)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := "BADGERDB_PATH: /var/lib/parasight\nSCRAPER_ENGINE: rod\nFETCH_TIMEOUT: 30s\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))

	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("FETCH_TIMEOUT", "45s")
	t.Setenv("SHARE_RATE_LIMIT", "0.5")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/parasight", cfg.BadgerDBPath)
	assert.Equal(t, "rod", cfg.ScraperEngine)
	assert.Equal(t, 45*time.Second, cfg.FetchTimeout, "env overrides file")
	assert.Equal(t, "sk-test", cfg.AnthropicAPIKey)
	assert.InDelta(t, 0.5, cfg.ShareRateLimit, 1e-9)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Setenv("SCRAPER_ENGINE", "curl")
	_, err := LoadConfig(t.TempDir())
	assert.ErrorContains(t, err, "SCRAPER_ENGINE")
}

func TestLoadConfig_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("BADGERDB_PATH: [unclosed"), 0o600))
	_, err := LoadConfig(dir)
	assert.ErrorContains(t, err, "error reading config file")
}
