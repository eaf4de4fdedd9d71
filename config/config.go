// Package config loads the application configuration from an optional YAML
// file, a .env file and the environment, and stores the preferences users
// can change at runtime.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pevans/newsscraper/discovery"
)

// Config is the application configuration.
type Config struct {
	DatabaseURL  string          `yaml:"database_url"`
	ListenAddr   string          `yaml:"listen_addr"`
	ItemsPerPage int             `yaml:"items_per_page"`
	Scraper      ScraperConfig   `yaml:"scraper"`
	Proxy        ProxyConfig     `yaml:"proxy"`
	Scheduler    SchedulerConfig `yaml:"scheduler"`
	Export       ExportConfig    `yaml:"export"`
	Log          LogConfig       `yaml:"log"`
	Sentiment    SentimentConfig `yaml:"sentiment"`
}

// ScraperConfig tunes the scraping engine.
type ScraperConfig struct {
	Timeout       time.Duration `yaml:"timeout"`
	MaxRetries    int           `yaml:"max_retries"`
	Delay         time.Duration `yaml:"delay"`
	MaxArticles   int           `yaml:"max_articles"`
	RenderTimeout time.Duration `yaml:"render_timeout"`
	UserAgent     string        `yaml:"user_agent"`
	ChromePath    string        `yaml:"chrome_path"`
}

// ProxyConfig is the proxy used for websites without their own.
type ProxyConfig struct {
	Enabled bool   `yaml:"enabled"`
	HTTP    string `yaml:"http"`
	HTTPS   string `yaml:"https"`
}

// SchedulerConfig controls background scraping.
type SchedulerConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

// ExportConfig controls article exports.
type ExportConfig struct {
	Folder     string `yaml:"folder"`
	MaxRecords int    `yaml:"max_records"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// SentimentConfig controls sentiment scoring.
type SentimentConfig struct {
	Enabled      bool   `yaml:"enabled"`
	OpenAIAPIKey string `yaml:"openai_api_key"`
	OpenAIModel  string `yaml:"openai_model"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		DatabaseURL:  "news_scraper.db",
		ListenAddr:   ":5000",
		ItemsPerPage: 20,
		Scraper: ScraperConfig{
			Timeout:       30 * time.Second,
			MaxRetries:    3,
			Delay:         time.Second,
			MaxArticles:   discovery.DefaultMaxArticles,
			RenderTimeout: 30 * time.Second,
			UserAgent:     discovery.DefaultUserAgent,
		},
		Scheduler: SchedulerConfig{
			Interval: time.Hour,
		},
		Export: ExportConfig{
			Folder:     "exports",
			MaxRecords: 10000,
		},
		Log: LogConfig{
			Level: "info",
		},
		Sentiment: SentimentConfig{
			Enabled:     true,
			OpenAIModel: "gpt-3.5-turbo",
		},
	}
}

// DatabasePath returns the SQLite file named by DatabaseURL, which may be
// given either as a plain path or as a sqlite:/// URL.
func (c *Config) DatabasePath() string {
	path := c.DatabaseURL
	for _, prefix := range []string{"sqlite:///", "sqlite://", "sqlite:"} {
		if strings.HasPrefix(path, prefix) {
			return strings.TrimPrefix(path, prefix)
		}
	}
	return path
}

// GlobalProxy returns the proxy applied to websites without their own, or
// the zero Proxy when proxying is disabled.
func (c *Config) GlobalProxy() discovery.Proxy {
	if !c.Proxy.Enabled {
		return discovery.Proxy{}
	}
	return discovery.Proxy{HTTP: c.Proxy.HTTP, HTTPS: c.Proxy.HTTPS}
}

// EngineOptions returns the scraping engine options of the configuration.
func (c *Config) EngineOptions() discovery.Options {
	opts := discovery.DefaultOptions()
	opts.Timeout = c.Scraper.Timeout
	opts.MaxRetries = c.Scraper.MaxRetries
	opts.Delay = c.Scraper.Delay
	opts.MaxArticles = c.Scraper.MaxArticles
	opts.RenderTimeout = c.Scraper.RenderTimeout
	opts.ChromePath = c.Scraper.ChromePath
	opts.Proxy = c.GlobalProxy()
	opts.SentimentEnabled = c.Sentiment.Enabled
	if c.Scraper.UserAgent != "" {
		opts.UserAgent = c.Scraper.UserAgent
	}
	return opts
}

// Validate checks the configuration for values the application cannot run
// with.
func (c *Config) Validate() error {
	var errs []error
	if c.DatabasePath() == "" {
		errs = append(errs, errors.New("database_url is required"))
	}
	if c.ListenAddr == "" {
		errs = append(errs, errors.New("listen_addr is required"))
	}
	if c.ItemsPerPage <= 0 {
		errs = append(errs, errors.New("items_per_page must be positive"))
	}
	if c.Scraper.Timeout <= 0 {
		errs = append(errs, errors.New("scraper timeout must be positive"))
	}
	if c.Scraper.MaxRetries < 0 {
		errs = append(errs, errors.New("scraper max_retries must not be negative"))
	}
	if c.Scraper.Delay < 0 {
		errs = append(errs, errors.New("scraper delay must not be negative"))
	}
	if c.Scraper.MaxArticles <= 0 {
		errs = append(errs, errors.New("scraper max_articles must be positive"))
	}
	if c.Scraper.RenderTimeout <= 0 {
		errs = append(errs, errors.New("scraper render_timeout must be positive"))
	}
	if c.Scheduler.Interval <= 0 {
		errs = append(errs, errors.New("scheduler interval must be positive"))
	}
	if c.Export.MaxRecords <= 0 {
		errs = append(errs, errors.New("export max_records must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
