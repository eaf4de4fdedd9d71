// Package scrapelog records one audit row per scrape run.
package scrapelog

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pevans/newsscraper/dbutil"
)

var ErrLogNotFound = errors.New("scrape log not found")

// Actions a log row moves through. A row starts as ActionStart and is
// finished exactly once as ActionSuccess or ActionError.
const (
	ActionStart   = "start"
	ActionSuccess = "success"
	ActionError   = "error"
)

// Log is the audit record of one scrape run.
type Log struct {
	ID              uuid.UUID `json:"id"`
	WebsiteID       uuid.UUID `json:"website_id"`
	WebsiteName     string    `json:"website_name"`
	Action          string    `json:"action"`
	Message         string    `json:"message"`
	ArticlesScraped int       `json:"articles_scraped"`
	Errors          []string  `json:"errors,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Outcome is what a finished run reports back to its log.
type Outcome struct {
	Success         bool
	ArticlesScraped int
	Errors          []string
}

// Store manages scrape logs using SQLite.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS scrape_logs (
	id TEXT PRIMARY KEY,
	website_id TEXT NOT NULL,
	website_name TEXT NOT NULL DEFAULT '',
	action TEXT NOT NULL,
	message TEXT,
	articles_scraped INTEGER NOT NULL DEFAULT 0,
	errors TEXT,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_scrape_logs_created ON scrape_logs(created_at);
`

// NewStore creates a new scrape log store with the given database path.
func NewStore(dbPath string) (*Store, error) {
	db, err := dbutil.Open(dbPath, schema)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Start writes a "start" row for a website.
func (s *Store) Start(websiteID uuid.UUID, websiteName string) (*Log, error) {
	l := &Log{
		ID:          uuid.New(),
		WebsiteID:   websiteID,
		WebsiteName: websiteName,
		Action:      ActionStart,
		Message:     "Starting scrape",
		CreatedAt:   time.Now(),
	}

	_, err := s.db.Exec(`
		INSERT INTO scrape_logs (id, website_id, website_name, action, message, articles_scraped, errors, created_at)
		VALUES (?, ?, ?, ?, ?, 0, NULL, ?)
	`, l.ID.String(), l.WebsiteID.String(), l.WebsiteName, l.Action, l.Message, dbutil.FormatTime(&l.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("failed to insert scrape log: %w", err)
	}
	return l, nil
}

// Finish moves l to its final state. A successful run's message reports the
// article count; a failed run's message is its first error.
func (s *Store) Finish(l *Log, outcome Outcome) error {
	l.ArticlesScraped = outcome.ArticlesScraped
	l.Errors = outcome.Errors
	if outcome.Success {
		l.Action = ActionSuccess
		l.Message = fmt.Sprintf("Successfully scraped %d articles", outcome.ArticlesScraped)
	} else {
		l.Action = ActionError
		l.Message = "Scrape failed"
		if len(outcome.Errors) > 0 {
			l.Message = outcome.Errors[0]
		}
	}

	var errorsText any
	if len(l.Errors) > 0 {
		encoded, err := json.Marshal(l.Errors)
		if err != nil {
			return fmt.Errorf("failed to encode scrape errors: %w", err)
		}
		errorsText = string(encoded)
	}

	result, err := s.db.Exec(`
		UPDATE scrape_logs SET action = ?, message = ?, articles_scraped = ?, errors = ?
		WHERE id = ?
	`, l.Action, l.Message, l.ArticlesScraped, errorsText, l.ID.String())
	if err != nil {
		return fmt.Errorf("failed to update scrape log: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrLogNotFound
	}
	return nil
}

// Recent returns the n newest logs across all websites.
func (s *Store) Recent(n int) ([]Log, error) {
	return s.list("", nil, n)
}

// ListForWebsite returns the n newest logs of one website.
func (s *Store) ListForWebsite(websiteID uuid.UUID, n int) ([]Log, error) {
	return s.list(" WHERE website_id = ?", []any{websiteID.String()}, n)
}

// DeleteByWebsite removes a website's logs.
func (s *Store) DeleteByWebsite(websiteID uuid.UUID) error {
	if _, err := s.db.Exec("DELETE FROM scrape_logs WHERE website_id = ?", websiteID.String()); err != nil {
		return fmt.Errorf("failed to delete scrape logs: %w", err)
	}
	return nil
}

func (s *Store) list(where string, args []any, n int) ([]Log, error) {
	query := `
		SELECT id, website_id, website_name, action, message, articles_scraped, errors, created_at
		FROM scrape_logs` + where + " ORDER BY created_at DESC"
	if n > 0 {
		query += fmt.Sprintf(" LIMIT %d", n)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query scrape logs: %w", err)
	}
	defer rows.Close()

	logs := []Log{}
	for rows.Next() {
		var (
			l                         Log
			idStr, websiteID, created string
			message, errorsText       sql.NullString
		)
		if err := rows.Scan(&idStr, &websiteID, &l.WebsiteName, &l.Action, &message,
			&l.ArticlesScraped, &errorsText, &created); err != nil {
			return nil, fmt.Errorf("failed to scan scrape log: %w", err)
		}
		if l.ID, err = uuid.Parse(idStr); err != nil {
			return nil, fmt.Errorf("failed to parse scrape log ID: %w", err)
		}
		if l.WebsiteID, err = uuid.Parse(websiteID); err != nil {
			return nil, fmt.Errorf("failed to parse website ID: %w", err)
		}
		l.Message = message.String
		if errorsText.String != "" {
			if err := json.Unmarshal([]byte(errorsText.String), &l.Errors); err != nil {
				return nil, fmt.Errorf("failed to decode scrape errors: %w", err)
			}
		}
		l.CreatedAt = dbutil.ParseTime(created)
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
