package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// applyEnv overrides cfg with the environment variables that are set.
func applyEnv(cfg *Config) {
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.ListenAddr = getEnv("LISTEN_ADDR", cfg.ListenAddr)
	cfg.ItemsPerPage = getEnvInt("ITEMS_PER_PAGE", cfg.ItemsPerPage)

	cfg.Scraper.Timeout = getEnvSeconds("SCRAPER_TIMEOUT", cfg.Scraper.Timeout)
	cfg.Scraper.MaxRetries = getEnvInt("SCRAPER_MAX_RETRIES", cfg.Scraper.MaxRetries)
	cfg.Scraper.Delay = getEnvSeconds("SCRAPER_DELAY", cfg.Scraper.Delay)
	cfg.Scraper.MaxArticles = getEnvInt("SCRAPER_MAX_ARTICLES", cfg.Scraper.MaxArticles)
	cfg.Scraper.RenderTimeout = getEnvSeconds("SCRAPER_RENDER_TIMEOUT", cfg.Scraper.RenderTimeout)
	cfg.Scraper.UserAgent = getEnv("SCRAPER_USER_AGENT", cfg.Scraper.UserAgent)
	cfg.Scraper.ChromePath = getEnv("CHROME_PATH", cfg.Scraper.ChromePath)

	cfg.Proxy.Enabled = getEnvBool("PROXY_ENABLED", cfg.Proxy.Enabled)
	cfg.Proxy.HTTP = getEnv("PROXY_HTTP", cfg.Proxy.HTTP)
	cfg.Proxy.HTTPS = getEnv("PROXY_HTTPS", cfg.Proxy.HTTPS)

	cfg.Scheduler.Enabled = getEnvBool("SCHEDULER_ENABLED", cfg.Scheduler.Enabled)
	cfg.Scheduler.Interval = getEnvSeconds("SCHEDULER_INTERVAL", cfg.Scheduler.Interval)

	cfg.Export.Folder = getEnv("EXPORT_FOLDER", cfg.Export.Folder)
	cfg.Export.MaxRecords = getEnvInt("MAX_EXPORT_RECORDS", cfg.Export.MaxRecords)

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.File = getEnv("LOG_FILE", cfg.Log.File)

	cfg.Sentiment.Enabled = getEnvBool("SENTIMENT_ENABLED", cfg.Sentiment.Enabled)
	cfg.Sentiment.OpenAIAPIKey = getEnv("OPENAI_API_KEY", cfg.Sentiment.OpenAIAPIKey)
	cfg.Sentiment.OpenAIModel = getEnv("OPENAI_MODEL", cfg.Sentiment.OpenAIModel)
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt parses an int from environment variable or returns default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvBool parses a bool from environment variable or returns default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvSeconds parses a duration given either as a number of seconds
// ("30", "1.5") or as a Go duration ("30s", "2m").
func getEnvSeconds(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	if seconds, err := strconv.ParseFloat(value, 64); err == nil {
		return time.Duration(seconds * float64(time.Second))
	}
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}
	return defaultValue
}
