package dbutil

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFormatParseTime verifies times survive a round trip through TEXT
func TestFormatParseTime(t *testing.T) {
	now := time.Now()

	formatted := FormatTime(&now)
	require.IsType(t, "", formatted)

	parsed := ParseTime(formatted.(string))
	assert.True(t, now.Equal(parsed), "parsed time should equal original instant")
	assert.Nil(t, FormatTime(nil))
}

// TestFormatTime_SortsAsText verifies stored times compare in time order as strings
func TestFormatTime_SortsAsText(t *testing.T) {
	whole := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	half := whole.Add(500 * time.Millisecond)
	later := whole.Add(time.Second)

	a := FormatTime(&whole).(string)
	b := FormatTime(&half).(string)
	c := FormatTime(&later).(string)

	assert.Equal(t, "2024-03-01T10:00:00.000000000Z", a)
	assert.Less(t, a, b)
	assert.Less(t, b, c)
	assert.True(t, half.Equal(ParseTime(b)))
	assert.True(t, whole.Equal(ParseTime("2024-03-01T10:00:00Z")), "plain RFC 3339 still parses")
}

// TestFold verifies the SQL fold function matches Unicode case-insensitively
func TestFold(t *testing.T) {
	assert.Equal(t, Fold("élection"), Fold("ÉLECTION"))

	db, err := Open(filepath.Join(t.TempDir(), "fold.db"), `CREATE TABLE t (v TEXT);`)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec("INSERT INTO t (v) VALUES (?), (?)", "Élection", "50 percent")
	require.NoError(t, err)

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM t WHERE instr(fold(v), ?) > 0", Fold("élection")).Scan(&n))
	assert.Equal(t, 1, n)
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM t WHERE instr(fold(v), ?) > 0", "50%").Scan(&n))
	assert.Equal(t, 0, n)
}

// TestParseNullTime verifies NULL and empty values map to nil
func TestParseNullTime(t *testing.T) {
	assert.Nil(t, ParseNullTime(sql.NullString{}))
	assert.Nil(t, ParseNullTime(sql.NullString{Valid: true}))

	got := ParseNullTime(sql.NullString{Valid: true, String: "2024-01-15T10:30:00Z"})
	require.NotNil(t, got)
	assert.Equal(t, 2024, got.Year())
}

// TestIsUniqueViolation verifies constraint errors are recognised
func TestIsUniqueViolation(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "test.db"), `CREATE TABLE t (v TEXT UNIQUE);`)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec("INSERT INTO t (v) VALUES (?)", "a")
	require.NoError(t, err)

	_, err = db.Exec("INSERT INTO t (v) VALUES (?)", "a")
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	assert.False(t, IsUniqueViolation(sql.ErrNoRows))
}
