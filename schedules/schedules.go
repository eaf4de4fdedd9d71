// Package schedules runs website scrapes on fixed intervals.
package schedules

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pevans/newsscraper/dbutil"
)

var (
	ErrScheduleNotFound = errors.New("schedule not found")
	ErrScheduleExists   = errors.New("website already has a schedule")
	ErrInvalidInterval  = errors.New("interval must be positive")
)

// DefaultInterval is the interval, in seconds, of a schedule created
// without one.
const DefaultInterval = 3600

// Schedule scrapes one website every IntervalSeconds while Active.
type Schedule struct {
	ID              uuid.UUID  `json:"id"`
	WebsiteID       uuid.UUID  `json:"website_id"`
	IntervalSeconds int        `json:"interval_seconds"`
	Active          bool       `json:"is_active"`
	LastRun         *time.Time `json:"last_run,omitempty"`
	NextRun         *time.Time `json:"next_run,omitempty"`
	TotalRuns       int        `json:"total_runs"`
	SuccessfulRuns  int        `json:"successful_runs"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Interval returns the schedule interval as a duration.
func (s Schedule) Interval() time.Duration {
	return time.Duration(s.IntervalSeconds) * time.Second
}

// SuccessRate returns the fraction of runs that succeeded.
func (s Schedule) SuccessRate() float64 {
	if s.TotalRuns == 0 {
		return 0
	}
	return float64(s.SuccessfulRuns) / float64(s.TotalRuns)
}

// Update represents fields that can be changed on a schedule.
type Update struct {
	IntervalSeconds *int
	Active          *bool
}

// Store manages schedules using SQLite.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS schedules (
	id TEXT PRIMARY KEY,
	website_id TEXT NOT NULL UNIQUE,
	interval_seconds INTEGER NOT NULL DEFAULT 3600,
	is_active INTEGER NOT NULL DEFAULT 1,
	last_run TEXT,
	next_run TEXT,
	total_runs INTEGER NOT NULL DEFAULT 0,
	successful_runs INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
`

const selectColumns = `
	SELECT id, website_id, interval_seconds, is_active, last_run, next_run,
	       total_runs, successful_runs, created_at, updated_at
	FROM schedules
`

// NewStore creates a new schedule store with the given database path.
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

// Create adds an active schedule for a website. A zero interval means
// DefaultInterval.
func (s *Store) Create(websiteID uuid.UUID, intervalSeconds int) (*Schedule, error) {
	if intervalSeconds == 0 {
		intervalSeconds = DefaultInterval
	}
	if intervalSeconds < 0 {
		return nil, ErrInvalidInterval
	}

	now := time.Now()
	next := now.Add(time.Duration(intervalSeconds) * time.Second)
	sched := &Schedule{
		ID:              uuid.New(),
		WebsiteID:       websiteID,
		IntervalSeconds: intervalSeconds,
		Active:          true,
		NextRun:         &next,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	_, err := s.db.Exec(`
		INSERT INTO schedules (id, website_id, interval_seconds, is_active, next_run, created_at, updated_at)
		VALUES (?, ?, ?, 1, ?, ?, ?)
	`, sched.ID.String(), websiteID.String(), intervalSeconds,
		dbutil.FormatTime(sched.NextRun), dbutil.FormatTime(&now), dbutil.FormatTime(&now))
	if err != nil {
		if dbutil.IsUniqueViolation(err) {
			return nil, ErrScheduleExists
		}
		return nil, fmt.Errorf("failed to insert schedule: %w", err)
	}

	return sched, nil
}

// Get retrieves a schedule by ID.
func (s *Store) Get(id uuid.UUID) (*Schedule, error) {
	return s.getWhere("id = ?", id.String())
}

// GetByWebsite retrieves a website's schedule.
func (s *Store) GetByWebsite(websiteID uuid.UUID) (*Schedule, error) {
	return s.getWhere("website_id = ?", websiteID.String())
}

func (s *Store) getWhere(cond string, arg any) (*Schedule, error) {
	sched, err := scanSchedule(s.db.QueryRow(selectColumns+" WHERE "+cond, arg))
	if err == sql.ErrNoRows {
		return nil, ErrScheduleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query schedule: %w", err)
	}
	return sched, nil
}

// List returns schedules, optionally only active ones, oldest first.
func (s *Store) List(activeOnly bool) ([]Schedule, error) {
	query := selectColumns
	if activeOnly {
		query += " WHERE is_active = 1"
	}
	query += " ORDER BY created_at ASC"

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedules: %w", err)
	}
	defer rows.Close()

	schedules := []Schedule{}
	for rows.Next() {
		sched, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule: %w", err)
		}
		schedules = append(schedules, *sched)
	}
	return schedules, rows.Err()
}

// Update applies a partial update. Re-activating or changing the interval
// moves NextRun to one interval from now.
func (s *Store) Update(id uuid.UUID, update Update) (*Schedule, error) {
	sched, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	reschedule := false
	if update.IntervalSeconds != nil {
		if *update.IntervalSeconds <= 0 {
			return nil, ErrInvalidInterval
		}
		reschedule = *update.IntervalSeconds != sched.IntervalSeconds
		sched.IntervalSeconds = *update.IntervalSeconds
	}
	if update.Active != nil {
		reschedule = reschedule || (*update.Active && !sched.Active)
		sched.Active = *update.Active
	}

	now := time.Now()
	if reschedule {
		next := now.Add(sched.Interval())
		sched.NextRun = &next
	}
	sched.UpdatedAt = now

	_, err = s.db.Exec(`
		UPDATE schedules SET interval_seconds = ?, is_active = ?, next_run = ?, updated_at = ?
		WHERE id = ?
	`, sched.IntervalSeconds, dbutil.BoolInt(sched.Active), dbutil.FormatTime(sched.NextRun),
		dbutil.FormatTime(&now), id.String())
	if err != nil {
		return nil, fmt.Errorf("failed to update schedule: %w", err)
	}

	return sched, nil
}

// RecordRun stores the outcome of a run that started at ranAt.
func (s *Store) RecordRun(id uuid.UUID, success bool, ranAt time.Time) error {
	sched, err := s.Get(id)
	if err != nil {
		return err
	}
	next := ranAt.Add(sched.Interval())
	now := time.Now()

	_, err = s.db.Exec(`
		UPDATE schedules SET
			last_run = ?, next_run = ?, total_runs = total_runs + 1,
			successful_runs = successful_runs + ?, updated_at = ?
		WHERE id = ?
	`, dbutil.FormatTime(&ranAt), dbutil.FormatTime(&next), dbutil.BoolInt(success),
		dbutil.FormatTime(&now), id.String())
	if err != nil {
		return fmt.Errorf("failed to record schedule run: %w", err)
	}
	return nil
}

// Delete deletes a schedule.
func (s *Store) Delete(id uuid.UUID) error {
	result, err := s.db.Exec("DELETE FROM schedules WHERE id = ?", id.String())
	if err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrScheduleNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSchedule(row rowScanner) (*Schedule, error) {
	var (
		sched                Schedule
		idStr, websiteID     string
		createdAt, updatedAt string
		lastRun, nextRun     sql.NullString
		active               int
	)

	err := row.Scan(&idStr, &websiteID, &sched.IntervalSeconds, &active, &lastRun, &nextRun,
		&sched.TotalRuns, &sched.SuccessfulRuns, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if sched.ID, err = uuid.Parse(idStr); err != nil {
		return nil, fmt.Errorf("failed to parse schedule ID: %w", err)
	}
	if sched.WebsiteID, err = uuid.Parse(websiteID); err != nil {
		return nil, fmt.Errorf("failed to parse website ID: %w", err)
	}
	sched.Active = active != 0
	sched.LastRun = dbutil.ParseNullTime(lastRun)
	sched.NextRun = dbutil.ParseNullTime(nextRun)
	sched.CreatedAt = dbutil.ParseTime(createdAt)
	sched.UpdatedAt = dbutil.ParseTime(updatedAt)

	return &sched, nil
}
