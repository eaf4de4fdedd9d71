package export

import (
	"encoding/csv"
	"io"

	"github.com/pevans/newsscraper/articles"
)

// Header is the CSV header row.
var Header = []string{
	"ID", "Title", "URL", "Website", "Category", "Author",
	"Published Date", "Scraped At", "Sentiment", "Sentiment Score",
	"Content", "Summary",
}

// Row returns the CSV row of a. Missing values are empty strings.
func Row(a *articles.Article) []string {
	var published string
	if a.PublishedAt != nil {
		published = a.PublishedAt.Format(timestampLayout)
	}
	var scraped string
	if !a.ScrapedAt.IsZero() {
		scraped = a.ScrapedAt.Format(timestampLayout)
	}

	return []string{
		a.ID.String(),
		a.Title,
		a.URL,
		a.WebsiteName,
		a.Category,
		a.Author,
		published,
		scraped,
		a.Sentiment,
		formatScore(a),
		a.Content,
		a.Summary,
	}
}

// WriteCSV writes items as CSV with a header row.
func WriteCSV(w io.Writer, items []articles.Article) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(Header); err != nil {
		return err
	}
	for i := range items {
		if err := writer.Write(Row(&items[i])); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
