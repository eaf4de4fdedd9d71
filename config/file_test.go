package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every variable Load reads for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		ConfigPathEnv, "DATABASE_URL", "LISTEN_ADDR", "ITEMS_PER_PAGE",
		"SCRAPER_TIMEOUT", "SCRAPER_MAX_RETRIES", "SCRAPER_DELAY", "SCRAPER_MAX_ARTICLES",
		"SCRAPER_RENDER_TIMEOUT", "SCRAPER_USER_AGENT", "CHROME_PATH",
		"PROXY_ENABLED", "PROXY_HTTP", "PROXY_HTTPS", "SCHEDULER_ENABLED", "SCHEDULER_INTERVAL",
		"EXPORT_FOLDER", "MAX_EXPORT_RECORDS", "LOG_LEVEL", "LOG_FILE",
		"SENTIMENT_ENABLED", "OPENAI_API_KEY", "OPENAI_MODEL",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// TestLoad_NoFile verifies defaults are used when no file exists
func TestLoad_NoFile(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

// TestLoad_ConfigFile verifies YAML values override defaults
func TestLoad_ConfigFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, t.TempDir(), "config.yaml", `database_url: "sqlite:///data/news.db"
listen_addr: ":8080"
scraper:
  timeout: 45s
  delay: 500ms
proxy:
  enabled: true
  http: "http://proxy:3128"
scheduler:
  enabled: true
  interval: 30m
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "data/news.db", cfg.DatabasePath())
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 45*time.Second, cfg.Scraper.Timeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Scraper.Delay)
	assert.Equal(t, 3, cfg.Scraper.MaxRetries, "unset fields keep defaults")
	assert.True(t, cfg.Proxy.Enabled)
	assert.Equal(t, "http://proxy:3128", cfg.Proxy.HTTP)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, 30*time.Minute, cfg.Scheduler.Interval)
}

// TestLoad_DefaultPath verifies the file under the home directory is read
func TestLoad_DefaultPath(t *testing.T) {
	clearEnv(t)
	home := os.Getenv("HOME")
	dir := filepath.Join(home, ".newsscraper")
	require.NoError(t, os.MkdirAll(dir, 0o700))
	writeFile(t, dir, "config.yaml", "items_per_page: 50\n")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.ItemsPerPage)
}

// TestLoad_EnvOverridesFile verifies environment variables win over the file
func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, t.TempDir(), "config.yaml", "listen_addr: \":8080\"\nitems_per_page: 50\n")
	t.Setenv(ConfigPathEnv, path)
	t.Setenv("LISTEN_ADDR", ":9090")
	t.Setenv("SCRAPER_TIMEOUT", "10")
	t.Setenv("SCRAPER_DELAY", "1.5")
	t.Setenv("SCHEDULER_INTERVAL", "2m")
	t.Setenv("SENTIMENT_ENABLED", "false")
	t.Setenv("MAX_EXPORT_RECORDS", "not-a-number")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, 50, cfg.ItemsPerPage)
	assert.Equal(t, 10*time.Second, cfg.Scraper.Timeout)
	assert.Equal(t, 1500*time.Millisecond, cfg.Scraper.Delay)
	assert.Equal(t, 2*time.Minute, cfg.Scheduler.Interval)
	assert.False(t, cfg.Sentiment.Enabled)
	assert.Equal(t, 10000, cfg.Export.MaxRecords, "unparsable values are ignored")
}

// TestLoad_DotEnv verifies .env files are read without overriding the environment
func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	writeFile(t, ".", ".env", "LOG_LEVEL=debug\nEXPORT_FOLDER=out\n")
	t.Setenv("EXPORT_FOLDER", "mine")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "mine", cfg.Export.Folder)
}

// TestLoad_InvalidYAML verifies parse errors are reported
func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, t.TempDir(), "config.yaml", "scraper:\n  - not a mapping\n")

	cfg, err := Load(path)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

// TestLoad_InvalidValues verifies the loaded configuration is validated
func TestLoad_InvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("SCRAPER_TIMEOUT", "0")

	_, err := Load("")
	assert.ErrorContains(t, err, "scraper timeout must be positive")
}
