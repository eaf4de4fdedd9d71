package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/pevans/newsscraper/articles"
	"github.com/pevans/newsscraper/config"
	"github.com/pevans/newsscraper/discovery"
	"github.com/pevans/newsscraper/logging"
	"github.com/pevans/newsscraper/schedules"
	"github.com/pevans/newsscraper/scrapelog"
	"github.com/pevans/newsscraper/sentiment"
	"github.com/pevans/newsscraper/web"
	"github.com/pevans/newsscraper/websites"
	"github.com/rs/zerolog/log"
)

// app holds the stores and services shared by every command.
type app struct {
	cfg       *config.Config
	websites  *websites.Store
	articles  *articles.Store
	logs      *scrapelog.Store
	schedules *schedules.Store
	settings  *config.SettingsStore
	engine    *discovery.Engine
	manager   *schedules.Manager
	siteAPI   *websites.APIServer

	closers []io.Closer
}

// openApp opens every store on the configured database and builds the
// scraping engine and schedule manager on top of them.
func openApp(cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}
	dbPath := cfg.DatabasePath()

	var err error
	if a.websites, err = websites.NewStore(dbPath); err != nil {
		return nil, a.fail(fmt.Errorf("failed to open website store: %w", err))
	}
	a.closers = append(a.closers, a.websites)

	if a.articles, err = articles.NewStore(dbPath); err != nil {
		return nil, a.fail(fmt.Errorf("failed to open article store: %w", err))
	}
	a.closers = append(a.closers, a.articles)

	if a.logs, err = scrapelog.NewStore(dbPath); err != nil {
		return nil, a.fail(fmt.Errorf("failed to open scrape log store: %w", err))
	}
	a.closers = append(a.closers, a.logs)

	if a.schedules, err = schedules.NewStore(dbPath); err != nil {
		return nil, a.fail(fmt.Errorf("failed to open schedule store: %w", err))
	}
	a.closers = append(a.closers, a.schedules)

	defaults := config.Settings{
		DefaultScrapeInterval: websites.DefaultScrapeInterval,
		ItemsPerPage:          cfg.ItemsPerPage,
	}
	if a.settings, err = config.NewSettingsStore(dbPath, defaults); err != nil {
		return nil, a.fail(fmt.Errorf("failed to open settings store: %w", err))
	}
	a.closers = append(a.closers, a.settings)

	a.engine = discovery.NewEngine(a.websites, a.articles, a.logs, analyzers(cfg), cfg.EngineOptions())
	a.manager = schedules.NewManager(a.schedules, a.engine, schedules.Options{
		GlobalInterval: globalInterval(cfg),
		Logger:         logging.CronLogger{Logger: log.Logger},
	})
	a.siteAPI = websites.NewAPIServer(a.websites, &web.SiteHooks{
		Manager:  a.manager,
		Articles: a.articles,
		Logs:     a.logs,
	})
	return a, nil
}

// analyzers returns the sentiment registry. The OpenAI method is only
// available when an API key is configured; otherwise websites asking for it
// get keyword scoring.
func analyzers(cfg *config.Config) *sentiment.Registry {
	registry := sentiment.NewRegistry()
	if cfg.Sentiment.OpenAIAPIKey != "" {
		registry.Register(websites.SentimentOpenAI, sentiment.NewOpenAI(cfg.Sentiment.OpenAIAPIKey, cfg.Sentiment.OpenAIModel))
	}
	return registry
}

func globalInterval(cfg *config.Config) time.Duration {
	if !cfg.Scheduler.Enabled {
		return 0
	}
	return cfg.Scheduler.Interval
}

func (a *app) fail(err error) error {
	return errors.Join(err, a.Close())
}

// Close closes every opened store.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
