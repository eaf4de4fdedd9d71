package websites

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pevans/newsscraper/dbutil"
	"github.com/pevans/newsscraper/scraper"
)

// Custom errors for website operations
var (
	ErrWebsiteNotFound = errors.New("website not found")
	ErrDuplicateURL    = errors.New("website with this URL already exists")
	ErrInvalidWebsite  = errors.New("invalid website")
)

// Sentiment methods a website may select.
const (
	SentimentKeyword = "keyword"
	SentimentOpenAI  = "openai"
)

const (
	DefaultCategory       = "General"
	DefaultScrapeInterval = 3600
	MinScrapeInterval     = 60
)

// Store manages registered websites using SQLite.
type Store struct {
	db *sql.DB
}

// Website is a news site registered for scraping.
type Website struct {
	ID              uuid.UUID         `json:"id"`
	Name            string            `json:"name"`
	URL             string            `json:"url"`
	Category        string            `json:"category"`
	Selectors       scraper.Selectors `json:"selectors"`
	RenderJS        bool              `json:"render_js"`
	Active          bool              `json:"is_active"`
	ProxyEnabled    bool              `json:"proxy_enabled"`
	ProxyHTTP       string            `json:"proxy_http,omitempty"`
	ProxyHTTPS      string            `json:"proxy_https,omitempty"`
	SentimentMethod string            `json:"sentiment_method"`
	AutoScrape      bool              `json:"auto_scrape_enabled"`
	ScrapeInterval  int               `json:"scrape_interval"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// New returns a website with the default configuration filled in.
func New(name, siteURL string) *Website {
	return &Website{
		Name:            name,
		URL:             siteURL,
		Category:        DefaultCategory,
		Selectors:       scraper.DefaultSelectors(),
		Active:          true,
		SentimentMethod: SentimentKeyword,
		ScrapeInterval:  DefaultScrapeInterval,
	}
}

// Interval returns the scrape interval as a duration.
func (w *Website) Interval() time.Duration {
	return time.Duration(w.ScrapeInterval) * time.Second
}

// Validate checks required fields and normalises optional ones.
func (w *Website) Validate() error {
	w.Name = strings.TrimSpace(w.Name)
	w.URL = strings.TrimSpace(w.URL)

	if w.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidWebsite)
	}
	if err := validateHTTPURL(w.URL); err != nil {
		return fmt.Errorf("%w: url %v", ErrInvalidWebsite, err)
	}
	if w.ProxyEnabled {
		for _, p := range []string{w.ProxyHTTP, w.ProxyHTTPS} {
			if p == "" {
				continue
			}
			if _, err := url.Parse(p); err != nil {
				return fmt.Errorf("%w: proxy %q is not a valid URL", ErrInvalidWebsite, p)
			}
		}
	}

	if w.Category == "" {
		w.Category = DefaultCategory
	}
	switch w.SentimentMethod {
	case "":
		w.SentimentMethod = SentimentKeyword
	case SentimentKeyword, SentimentOpenAI:
	default:
		return fmt.Errorf("%w: sentiment_method must be keyword or openai", ErrInvalidWebsite)
	}
	if w.ScrapeInterval == 0 {
		w.ScrapeInterval = DefaultScrapeInterval
	}
	if w.ScrapeInterval < MinScrapeInterval {
		return fmt.Errorf("%w: scrape_interval must be at least %d seconds", ErrInvalidWebsite, MinScrapeInterval)
	}
	w.Selectors = w.Selectors.WithDefaults()

	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("must use http or https scheme")
	}
	if u.Host == "" {
		return errors.New("must include a host")
	}
	return nil
}

// Update represents fields that can be updated on a website.
type Update struct {
	Name            *string
	URL             *string
	Category        *string
	Selectors       *scraper.Selectors
	RenderJS        *bool
	Active          *bool
	ProxyEnabled    *bool
	ProxyHTTP       *string
	ProxyHTTPS      *string
	SentimentMethod *string
	AutoScrape      *bool
	ScrapeInterval  *int
}

// Apply copies the set fields onto w.
func (u Update) Apply(w *Website) {
	if u.Name != nil {
		w.Name = *u.Name
	}
	if u.URL != nil {
		w.URL = *u.URL
	}
	if u.Category != nil {
		w.Category = *u.Category
	}
	if u.Selectors != nil {
		w.Selectors = *u.Selectors
	}
	if u.RenderJS != nil {
		w.RenderJS = *u.RenderJS
	}
	if u.Active != nil {
		w.Active = *u.Active
	}
	if u.ProxyEnabled != nil {
		w.ProxyEnabled = *u.ProxyEnabled
	}
	if u.ProxyHTTP != nil {
		w.ProxyHTTP = *u.ProxyHTTP
	}
	if u.ProxyHTTPS != nil {
		w.ProxyHTTPS = *u.ProxyHTTPS
	}
	if u.SentimentMethod != nil {
		w.SentimentMethod = *u.SentimentMethod
	}
	if u.AutoScrape != nil {
		w.AutoScrape = *u.AutoScrape
	}
	if u.ScrapeInterval != nil {
		w.ScrapeInterval = *u.ScrapeInterval
	}
}

// Filter represents filtering options for listing websites.
type Filter struct {
	Active *bool
	Limit  int
	Offset int
}

// NewStore creates a new website store with the given database path.
func NewStore(dbPath string) (*Store, error) {
	db, err := dbutil.Open(dbPath, schema)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS websites (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	url TEXT NOT NULL UNIQUE,
	category TEXT NOT NULL DEFAULT 'General',
	selectors TEXT NOT NULL,
	render_js INTEGER NOT NULL DEFAULT 0,
	is_active INTEGER NOT NULL DEFAULT 1,
	proxy_enabled INTEGER NOT NULL DEFAULT 0,
	proxy_http TEXT,
	proxy_https TEXT,
	sentiment_method TEXT NOT NULL DEFAULT 'keyword',
	auto_scrape_enabled INTEGER NOT NULL DEFAULT 0,
	scrape_interval INTEGER NOT NULL DEFAULT 3600,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
`

const selectColumns = `
	SELECT id, name, url, category, selectors, render_js, is_active,
	       proxy_enabled, proxy_http, proxy_https, sentiment_method,
	       auto_scrape_enabled, scrape_interval, created_at, updated_at
	FROM websites
`

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Create validates and inserts a website, assigning its ID and timestamps.
func (s *Store) Create(w *Website) (*Website, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	created := *w
	created.ID = uuid.New()
	created.CreatedAt = now
	created.UpdatedAt = now

	selectorsJSON, err := json.Marshal(created.Selectors)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal selectors: %w", err)
	}

	query := `
		INSERT INTO websites (
			id, name, url, category, selectors, render_js, is_active,
			proxy_enabled, proxy_http, proxy_https, sentiment_method,
			auto_scrape_enabled, scrape_interval, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.Exec(query,
		created.ID.String(),
		created.Name,
		created.URL,
		created.Category,
		string(selectorsJSON),
		dbutil.BoolInt(created.RenderJS),
		dbutil.BoolInt(created.Active),
		dbutil.BoolInt(created.ProxyEnabled),
		nullString(created.ProxyHTTP),
		nullString(created.ProxyHTTPS),
		created.SentimentMethod,
		dbutil.BoolInt(created.AutoScrape),
		created.ScrapeInterval,
		dbutil.FormatTime(&created.CreatedAt),
		dbutil.FormatTime(&created.UpdatedAt),
	)
	if err != nil {
		if dbutil.IsUniqueViolation(err) {
			return nil, ErrDuplicateURL
		}
		return nil, fmt.Errorf("failed to insert website: %w", err)
	}

	return &created, nil
}

// Get retrieves a website by ID.
func (s *Store) Get(id uuid.UUID) (*Website, error) {
	row := s.db.QueryRow(selectColumns+" WHERE id = ?", id.String())

	w, err := scanWebsite(row)
	if err == sql.ErrNoRows {
		return nil, ErrWebsiteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query website: %w", err)
	}

	return w, nil
}

// List lists websites with optional filtering, oldest first.
func (s *Store) List(filter Filter) ([]Website, error) {
	query := selectColumns
	var args []any

	if filter.Active != nil {
		query += " WHERE is_active = ?"
		args = append(args, dbutil.BoolInt(*filter.Active))
	}

	query += " ORDER BY created_at ASC, name ASC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query websites: %w", err)
	}
	defer rows.Close()

	websites := []Website{}
	for rows.Next() {
		w, err := scanWebsite(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan website: %w", err)
		}
		websites = append(websites, *w)
	}

	return websites, rows.Err()
}

// Count returns the number of websites, optionally only active ones.
func (s *Store) Count(activeOnly bool) (int, error) {
	query := "SELECT COUNT(*) FROM websites"
	if activeOnly {
		query += " WHERE is_active = 1"
	}

	var n int
	if err := s.db.QueryRow(query).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count websites: %w", err)
	}
	return n, nil
}

// Update applies a partial update and returns the stored result.
func (s *Store) Update(id uuid.UUID, update Update) (*Website, error) {
	w, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	update.Apply(w)
	if err := w.Validate(); err != nil {
		return nil, err
	}
	w.UpdatedAt = time.Now()

	selectorsJSON, err := json.Marshal(w.Selectors)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal selectors: %w", err)
	}

	query := `
		UPDATE websites SET
			name = ?, url = ?, category = ?, selectors = ?, render_js = ?,
			is_active = ?, proxy_enabled = ?, proxy_http = ?, proxy_https = ?,
			sentiment_method = ?, auto_scrape_enabled = ?, scrape_interval = ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := s.db.Exec(query,
		w.Name,
		w.URL,
		w.Category,
		string(selectorsJSON),
		dbutil.BoolInt(w.RenderJS),
		dbutil.BoolInt(w.Active),
		dbutil.BoolInt(w.ProxyEnabled),
		nullString(w.ProxyHTTP),
		nullString(w.ProxyHTTPS),
		w.SentimentMethod,
		dbutil.BoolInt(w.AutoScrape),
		w.ScrapeInterval,
		dbutil.FormatTime(&w.UpdatedAt),
		id.String(),
	)
	if err != nil {
		if dbutil.IsUniqueViolation(err) {
			return nil, ErrDuplicateURL
		}
		return nil, fmt.Errorf("failed to update website: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return nil, ErrWebsiteNotFound
	}

	return w, nil
}

// Delete deletes a website.
func (s *Store) Delete(id uuid.UUID) error {
	result, err := s.db.Exec("DELETE FROM websites WHERE id = ?", id.String())
	if err != nil {
		return fmt.Errorf("failed to delete website: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrWebsiteNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWebsite(row rowScanner) (*Website, error) {
	var (
		idStr, selectorsJSON, createdAt, updatedAt string
		proxyHTTP, proxyHTTPS                      sql.NullString
		renderJS, active, proxyEnabled, autoScrape int
		w                                          Website
	)

	err := row.Scan(
		&idStr, &w.Name, &w.URL, &w.Category, &selectorsJSON,
		&renderJS, &active, &proxyEnabled, &proxyHTTP, &proxyHTTPS,
		&w.SentimentMethod, &autoScrape, &w.ScrapeInterval,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse website ID: %w", err)
	}
	if err := json.Unmarshal([]byte(selectorsJSON), &w.Selectors); err != nil {
		return nil, fmt.Errorf("failed to unmarshal selectors: %w", err)
	}

	w.ID = id
	w.RenderJS = renderJS != 0
	w.Active = active != 0
	w.ProxyEnabled = proxyEnabled != 0
	w.AutoScrape = autoScrape != 0
	w.ProxyHTTP = proxyHTTP.String
	w.ProxyHTTPS = proxyHTTPS.String
	w.CreatedAt = dbutil.ParseTime(createdAt)
	w.UpdatedAt = dbutil.ParseTime(updatedAt)

	return &w, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
