package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCLI executes the command line against a fresh database in dir.
func runCLI(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("DATABASE_URL", filepath.Join(dir, "news.db"))
	t.Setenv("EXPORT_FOLDER", filepath.Join(dir, "exports"))
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", filepath.Join(dir, "missing.yaml")}, args...))
	err := cmd.Execute()
	return out.String(), err
}

// TestWebsitesAddListDelete verifies website management from the command line
func TestWebsitesAddListDelete(t *testing.T) {
	dir := t.TempDir()

	out, err := runCLI(t, dir, "websites", "add", "--name", "Gazette", "--url", "https://gazette.example.com",
		"--category", "Local", "--title-selector", "h1.title")
	require.NoError(t, err)
	assert.Contains(t, out, "Created website")

	out, err = runCLI(t, dir, "websites", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Gazette")
	assert.Contains(t, out, "Local")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	id := strings.Fields(lines[1])[0]

	out, err = runCLI(t, dir, "websites", "delete", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted website")

	out, err = runCLI(t, dir, "websites", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No websites configured.")
}

// TestWebsitesAdd_Invalid verifies invalid websites are rejected
func TestWebsitesAdd_Invalid(t *testing.T) {
	_, err := runCLI(t, t.TempDir(), "websites", "add", "--name", "Bad", "--url", "ftp://bad.example.com")
	assert.Error(t, err)
}

// TestScrape_Args verifies scrape needs exactly one of an ID or --all
func TestScrape_Args(t *testing.T) {
	dir := t.TempDir()

	_, err := runCLI(t, dir, "scrape")
	assert.Error(t, err)

	_, err = runCLI(t, dir, "scrape", "--all", "abc")
	assert.Error(t, err)

	_, err = runCLI(t, dir, "scrape", "not-a-uuid")
	assert.Error(t, err)

	out, err := runCLI(t, dir, "scrape", "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "No active websites.")
}

// TestExport verifies exporting to stdout and to the export folder
func TestExport(t *testing.T) {
	dir := t.TempDir()

	out, err := runCLI(t, dir, "export", "--format", "json", "--output", "-")
	require.NoError(t, err)
	var records []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	assert.Empty(t, records)

	out, err = runCLI(t, dir, "export", "--format", "md")
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 0 articles")

	entries, err := os.ReadDir(filepath.Join(dir, "exports"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasSuffix(entries[0].Name(), ".md"))

	_, err = runCLI(t, dir, "export", "--format", "xml")
	assert.Error(t, err)
}
