package config

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/pevans/newsscraper/articles"
	"github.com/pevans/newsscraper/dbutil"
	"github.com/pevans/newsscraper/websites"
)

var ErrInvalidSettings = errors.New("invalid settings")

const (
	keyDefaultScrapeInterval = "default_scrape_interval"
	keyItemsPerPage          = "items_per_page"
)

// Settings are the preferences users can change while the application
// runs.
type Settings struct {
	DefaultScrapeInterval int `json:"default_scrape_interval"`
	ItemsPerPage          int `json:"items_per_page"`
}

// SettingsUpdate represents fields that can be changed. Nil fields are
// left alone.
type SettingsUpdate struct {
	DefaultScrapeInterval *int `json:"default_scrape_interval"`
	ItemsPerPage          *int `json:"items_per_page"`
}

// Validate checks the values of an update.
func (u SettingsUpdate) Validate() error {
	if u.DefaultScrapeInterval != nil && *u.DefaultScrapeInterval < websites.MinScrapeInterval {
		return fmt.Errorf("%w: default_scrape_interval must be at least %d seconds", ErrInvalidSettings, websites.MinScrapeInterval)
	}
	if u.ItemsPerPage != nil && (*u.ItemsPerPage < 1 || *u.ItemsPerPage > articles.MaxPerPage) {
		return fmt.Errorf("%w: items_per_page must be between 1 and %d", ErrInvalidSettings, articles.MaxPerPage)
	}
	return nil
}

// SettingsStore manages settings using SQLite. Keys that were never set
// read as the defaults given to NewSettingsStore.
type SettingsStore struct {
	db       *sql.DB
	defaults Settings
}

const settingsSchema = `
CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// NewSettingsStore creates a new settings store with the given database
// path.
func NewSettingsStore(dbPath string, defaults Settings) (*SettingsStore, error) {
	db, err := dbutil.Open(dbPath, settingsSchema)
	if err != nil {
		return nil, err
	}
	return &SettingsStore{db: db, defaults: defaults}, nil
}

// Close closes the database connection.
func (s *SettingsStore) Close() error {
	return s.db.Close()
}

// Get retrieves the current settings.
func (s *SettingsStore) Get() (*Settings, error) {
	settings := s.defaults

	rows, err := s.db.Query("SELECT key, value FROM settings")
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			continue
		}
		switch key {
		case keyDefaultScrapeInterval:
			settings.DefaultScrapeInterval = n
		case keyItemsPerPage:
			settings.ItemsPerPage = n
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}

	return &settings, nil
}

// Update validates and stores the fields set in update, and returns the
// resulting settings.
func (s *SettingsStore) Update(update SettingsUpdate) (*Settings, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	values := map[string]*int{
		keyDefaultScrapeInterval: update.DefaultScrapeInterval,
		keyItemsPerPage:          update.ItemsPerPage,
	}
	for key, value := range values {
		if value == nil {
			continue
		}
		_, err := tx.Exec("INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)", key, strconv.Itoa(*value))
		if err != nil {
			return nil, fmt.Errorf("failed to update settings: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}

	return s.Get()
}
