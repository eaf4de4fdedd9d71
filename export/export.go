// Package export writes articles out as CSV, JSON, PDF or Markdown
// documents.
package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pevans/newsscraper/articles"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var ErrUnknownFormat = errors.New("unknown export format")

// Format is an export file format.
type Format string

const (
	CSV      Format = "csv"
	JSON     Format = "json"
	PDF      Format = "pdf"
	Markdown Format = "markdown"
)

// Formats lists the supported formats in display order.
var Formats = []Format{CSV, JSON, PDF, Markdown}

// DefaultMaxRecords bounds an export when no limit is configured.
const DefaultMaxRecords = 1000

const (
	reportTitle     = "News Articles Report"
	timestampLayout = "2006-01-02 15:04:05"
	dateLayout      = "2006-01-02"
)

// ParseFormat returns the format named s. "md" is accepted for Markdown.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case CSV, JSON, PDF, Markdown:
		return f, nil
	case "md":
		return Markdown, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Extension returns the file extension of the format, without the dot.
func (f Format) Extension() string {
	if f == Markdown {
		return "md"
	}
	return string(f)
}

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case CSV:
		return "text/csv; charset=utf-8"
	case JSON:
		return "application/json; charset=utf-8"
	case PDF:
		return "application/pdf"
	case Markdown:
		return "text/markdown; charset=utf-8"
	}
	return "application/octet-stream"
}

// Filename returns the download name of an export made at t, e.g.
// articles_20240301_120000.csv.
func Filename(f Format, t time.Time) string {
	return fmt.Sprintf("articles_%s.%s", t.Format("20060102_150405"), f.Extension())
}

// Write renders items in format f to w. generatedAt is printed in report
// headers.
func Write(w io.Writer, f Format, items []articles.Article, generatedAt time.Time) error {
	switch f {
	case CSV:
		return WriteCSV(w, items)
	case JSON:
		return WriteJSON(w, items)
	case PDF:
		return WritePDF(w, items, generatedAt)
	case Markdown:
		return WriteMarkdown(w, items, generatedAt)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// SaveFile writes an export into dir, creating it if needed, and returns
// the path of the new file.
func SaveFile(dir string, f Format, items []articles.Article, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	path := filepath.Join(dir, Filename(f, now))
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create export file: %w", err)
	}

	if err := Write(file, f, items, now); err != nil {
		file.Close()
		os.Remove(path)
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("failed to close export file: %w", err)
	}
	return path, nil
}

// sentimentLabel renders a sentiment as "Positive (0.50)".
func sentimentLabel(a *articles.Article) string {
	return fmt.Sprintf("%s (%.2f)", cases.Title(language.English).String(a.Sentiment), a.SentimentScore)
}

// metadata returns the non-empty "Key: value" parts describing a.
func metadata(a *articles.Article) []string {
	var meta []string
	if a.WebsiteName != "" {
		meta = append(meta, "Source: "+a.WebsiteName)
	}
	if a.Category != "" {
		meta = append(meta, "Category: "+a.Category)
	}
	if a.PublishedAt != nil {
		meta = append(meta, "Date: "+a.PublishedAt.Format(dateLayout))
	}
	if a.Sentiment != "" {
		meta = append(meta, "Sentiment: "+sentimentLabel(a))
	}
	return meta
}

func formatScore(a *articles.Article) string {
	if a.Sentiment == "" && a.SentimentScore == 0 {
		return ""
	}
	return strconv.FormatFloat(a.SentimentScore, 'f', -1, 64)
}
