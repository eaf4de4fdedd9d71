package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/pevans/newsscraper/articles"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testID      = uuid.MustParse("6f1c2f4e-8a1b-4c3d-9e5f-0a1b2c3d4e5f")
	scrapedAt   = time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	publishedAt = time.Date(2024, 2, 28, 9, 0, 0, 0, time.UTC)
	generatedAt = time.Date(2024, 3, 2, 8, 15, 45, 0, time.UTC)
)

func fullArticle() articles.Article {
	return articles.Article{
		ID:             testID,
		WebsiteName:    "Daily News",
		Title:          "Budget passes",
		URL:            "https://example.com/news/budget",
		Content:        "The council approved the budget.",
		Summary:        "The council approved the budget.",
		Author:         "Jane Reporter",
		PublishedAt:    &publishedAt,
		Category:       "Politics",
		Sentiment:      articles.Positive,
		SentimentScore: 0.5,
		ScrapedAt:      scrapedAt,
	}
}

func sparseArticle() articles.Article {
	return articles.Article{
		ID:        testID,
		Title:     articles.NoTitle,
		URL:       "https://example.com/news/empty",
		ScrapedAt: scrapedAt,
	}
}

// TestParseFormat verifies format names are recognised
func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"csv", CSV, false},
		{"JSON", JSON, false},
		{" pdf ", PDF, false},
		{"markdown", Markdown, false},
		{"md", Markdown, false},
		{"xml", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestFilename verifies export file names carry the timestamp and extension
func TestFilename(t *testing.T) {
	assert.Equal(t, "articles_20240302_081545.csv", Filename(CSV, generatedAt))
	assert.Equal(t, "articles_20240302_081545.md", Filename(Markdown, generatedAt))
	assert.Equal(t, "application/pdf", PDF.ContentType())
}

// TestWriteCSV verifies the header and row layout
func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []articles.Article{fullArticle(), sparseArticle()}))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)

	want := [][]string{
		Header,
		{
			testID.String(), "Budget passes", "https://example.com/news/budget", "Daily News",
			"Politics", "Jane Reporter", "2024-02-28 09:00:00", "2024-03-01 12:30:00",
			"positive", "0.5", "The council approved the budget.", "The council approved the budget.",
		},
		{
			testID.String(), "(No title)", "https://example.com/news/empty", "",
			"", "", "", "2024-03-01 12:30:00",
			"", "", "", "",
		},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("CSV mismatch (-want +got):\n%s", diff)
	}
}

// TestWriteJSON verifies records and null handling
func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, []articles.Article{fullArticle(), sparseArticle()}))
	assert.True(t, strings.HasPrefix(buf.String(), "[\n  {"), "output is indented")

	var got []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))

	want := []map[string]any{
		{
			"id":              testID.String(),
			"title":           "Budget passes",
			"url":             "https://example.com/news/budget",
			"website":         "Daily News",
			"category":        "Politics",
			"author":          "Jane Reporter",
			"published_date":  "2024-02-28T09:00:00Z",
			"scraped_at":      "2024-03-01T12:30:00Z",
			"sentiment":       "positive",
			"sentiment_score": 0.5,
			"content":         "The council approved the budget.",
			"summary":         "The council approved the budget.",
		},
		{
			"id":              testID.String(),
			"title":           "(No title)",
			"url":             "https://example.com/news/empty",
			"website":         nil,
			"category":        nil,
			"author":          nil,
			"published_date":  nil,
			"scraped_at":      "2024-03-01T12:30:00Z",
			"sentiment":       nil,
			"sentiment_score": nil,
			"content":         nil,
			"summary":         nil,
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("JSON mismatch (-want +got):\n%s", diff)
	}
}

// TestWriteJSON_Empty verifies an empty export is an empty array
func TestWriteJSON_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}

// TestWriteMarkdown verifies the report layout
func TestWriteMarkdown(t *testing.T) {
	var buf bytes.Buffer
	a := fullArticle()
	a.Title = "Budget_passes [final]"
	require.NoError(t, WriteMarkdown(&buf, []articles.Article{a, sparseArticle()}, generatedAt))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "# News Articles Report\n\nGenerated: 2024-03-02 08:15:45\n\nTotal Articles: 2\n"))
	assert.Contains(t, out, `## 1. Budget\_passes \[final\]`)
	assert.Contains(t, out, "- **Source:** Daily News\n")
	assert.Contains(t, out, "- **Date:** 2024-02-28\n")
	assert.Contains(t, out, "- **Sentiment:** Positive (0.50)\n")
	assert.Contains(t, out, "- **Author:** Jane Reporter\n")
	assert.Contains(t, out, "[Read more](https://example.com/news/budget)")
	assert.Contains(t, out, "## 2. (No title)\n\n[Read more](https://example.com/news/empty)\n")
}

func countPages(pdf string) int {
	return strings.Count(pdf, "/Type /Page\n")
}

// TestWritePDF verifies a PDF is produced with a page per five articles
func TestWritePDF(t *testing.T) {
	items := make([]articles.Article, 0, 6)
	for i := 0; i < 6; i++ {
		a := fullArticle()
		a.Title = "Café opens on Main Street"
		items = append(items, a)
	}

	var buf bytes.Buffer
	require.NoError(t, WritePDF(&buf, items[:5], generatedAt))
	assert.True(t, strings.HasPrefix(buf.String(), "%PDF-"))
	assert.Equal(t, 1, countPages(buf.String()))

	buf.Reset()
	require.NoError(t, WritePDF(&buf, items, generatedAt))
	assert.Equal(t, 2, countPages(buf.String()))
}

// TestWrite_UnknownFormat verifies Write rejects unknown formats
func TestWrite_UnknownFormat(t *testing.T) {
	err := Write(&bytes.Buffer{}, Format("xml"), nil, generatedAt)
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

// TestSaveFile verifies exports are written into the export folder
func TestSaveFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")

	path, err := SaveFile(dir, CSV, []articles.Article{fullArticle()}, generatedAt)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "articles_20240302_081545.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "ID,Title,URL,"))
}
