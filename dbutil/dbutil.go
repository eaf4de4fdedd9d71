// Package dbutil holds the SQLite plumbing shared by the record stores.
package dbutil

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"golang.org/x/text/cases"
)

// DriverName is the sqlite3 driver with the helper functions below
// registered on every connection.
const DriverName = "sqlite3_newsscraper"

// TimeLayout is the fixed-width UTC layout of stored times, so TEXT
// comparison matches time order.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func init() {
	sql.Register(DriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("fold", Fold, true)
		},
	})
}

// Fold returns the Unicode case folding of s. It is available in SQL as
// fold(text).
func Fold(s string) string {
	return cases.Fold().String(s)
}

// Open opens the SQLite database at path and applies schema. Several stores
// open the same file, so a busy timeout and WAL journal are always set.
func Open(path, schema string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// IsUniqueViolation reports whether err came from a UNIQUE constraint.
func IsUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// FormatTime renders t for a TEXT column. A nil time becomes NULL.
func FormatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	// Strip monotonic clock for consistent storage and comparisons
	return t.Truncate(0).UTC().Format(TimeLayout)
}

// ParseTime is the inverse of FormatTime. It also reads RFC 3339 values
// without a fixed-width fraction.
func ParseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339, s)
	}
	return t.Truncate(0)
}

// ParseNullTime parses an optional TEXT column.
func ParseNullTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t := ParseTime(s.String)
	return &t
}

// BoolInt converts a bool for an INTEGER column.
func BoolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
