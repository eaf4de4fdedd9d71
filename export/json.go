package export

import (
	"encoding/json"
	"io"
	"time"

	"github.com/pevans/newsscraper/articles"
)

// Record is the JSON form of an exported article. Missing values are null.
type Record struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	URL            string   `json:"url"`
	Website        *string  `json:"website"`
	Category       *string  `json:"category"`
	Author         *string  `json:"author"`
	PublishedDate  *string  `json:"published_date"`
	ScrapedAt      *string  `json:"scraped_at"`
	Sentiment      *string  `json:"sentiment"`
	SentimentScore *float64 `json:"sentiment_score"`
	Content        *string  `json:"content"`
	Summary        *string  `json:"summary"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optionalTime(t *time.Time) *string {
	if t == nil || t.IsZero() {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

// NewRecord converts an article to its export record.
func NewRecord(a *articles.Article) Record {
	r := Record{
		ID:            a.ID.String(),
		Title:         a.Title,
		URL:           a.URL,
		Website:       optional(a.WebsiteName),
		Category:      optional(a.Category),
		Author:        optional(a.Author),
		PublishedDate: optionalTime(a.PublishedAt),
		ScrapedAt:     optionalTime(&a.ScrapedAt),
		Sentiment:     optional(a.Sentiment),
		Content:       optional(a.Content),
		Summary:       optional(a.Summary),
	}
	if a.Sentiment != "" {
		score := a.SentimentScore
		r.SentimentScore = &score
	}
	return r
}

// WriteJSON writes items as an indented JSON array.
func WriteJSON(w io.Writer, items []articles.Article) error {
	records := make([]Record, 0, len(items))
	for i := range items {
		records = append(records, NewRecord(&items[i]))
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(records)
}
