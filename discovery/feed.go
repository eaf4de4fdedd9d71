package discovery

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog/log"
)

// FeedEntry is what a feed says about one article. It fills in fields the
// article page itself does not provide.
type FeedEntry struct {
	Link        string
	Title       string
	Summary     string
	Authors     []string
	PublishedAt *time.Time
}

// FeedEntryFromItem converts an RSS or Atom item. gofeed normalises both
// formats, so description, link and dates come from the same fields.
func FeedEntryFromItem(item *gofeed.Item) FeedEntry {
	entry := FeedEntry{
		Link:    strings.TrimSpace(item.Link),
		Title:   normalizeSpace(item.Title),
		Summary: feedText(item.Description),
	}

	// Authors come from <author>, Atom's structured authors and Dublin Core
	// <dc:creator>, in that order, without repeats.
	var authors []string
	add := func(name string) {
		name = strings.TrimSpace(name)
		if name != "" && !containsFold(authors, name) {
			authors = append(authors, name)
		}
	}
	if item.Author != nil {
		add(item.Author.Name)
	}
	for _, a := range item.Authors {
		if a != nil {
			add(a.Name)
		}
	}
	if item.DublinCoreExt != nil {
		for _, creator := range item.DublinCoreExt.Creator {
			add(creator)
		}
	}
	entry.Authors = authors

	switch {
	case item.PublishedParsed != nil:
		entry.PublishedAt = item.PublishedParsed
	case item.UpdatedParsed != nil:
		entry.PublishedAt = item.UpdatedParsed
	}

	return entry
}

// feedText reduces an item description, which is often HTML, to plain text.
func feedText(s string) string {
	if !strings.Contains(s, "<") {
		return normalizeSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return normalizeSpace(s)
	}
	return normalizeSpace(doc.Text())
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// FeedURLs returns the RSS/Atom feeds a page declares with
// <link rel="alternate">.
func FeedURLs(doc *goquery.Document, baseURL string) []string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	var feeds []string
	doc.Find(`link[rel="alternate"]`).Each(func(_ int, s *goquery.Selection) {
		typ := strings.ToLower(s.AttrOr("type", ""))
		if !strings.Contains(typ, "rss") && !strings.Contains(typ, "atom") {
			return
		}
		ref, err := url.Parse(s.AttrOr("href", ""))
		if err != nil || ref.String() == "" {
			return
		}
		feeds = append(feeds, base.ResolveReference(ref).String())
	})
	return feeds
}

// FeedEntries reads the feeds a list page declares and returns the entries
// of the first one that links anywhere. It is the fallback when no selector
// finds article links. Links are resolved and deduplicated like FindLinks.
func FeedEntries(ctx context.Context, src *HTTPSource, doc *goquery.Document, baseURL string) []FeedEntry {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	fp := gofeed.NewParser()
	fp.Client = src.Client()
	fp.UserAgent = src.UserAgent()

	for _, feedURL := range FeedURLs(doc, baseURL) {
		feed, err := fp.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			log.Warn().Err(err).Str("feed", feedURL).Msg("Failed to parse feed")
			continue
		}

		seen := map[string]bool{normalizeURL(base): true}
		var entries []FeedEntry
		for _, item := range feed.Items {
			if len(entries) == MaxLinks {
				break
			}
			if !usableHref(item.Link) {
				continue
			}
			entry := FeedEntryFromItem(item)
			abs, key, ok := resolveLink(base, entry.Link)
			if !ok || seen[key] {
				continue
			}
			seen[key] = true
			entry.Link = abs
			entries = append(entries, entry)
		}
		if len(entries) > 0 {
			return entries
		}
	}
	return nil
}

// ApplyFeedEntry fills the fields extraction left empty from the feed's
// entry for the same article.
func (a *ScrapedArticle) ApplyFeedEntry(entry FeedEntry) {
	if a.Title == "" {
		a.Title = entry.Title
	}
	if a.Content == "" {
		a.Content = entry.Summary
	}
	if a.Author == "" && len(entry.Authors) > 0 {
		a.Author = strings.Join(entry.Authors, ", ")
	}
	if a.PublishedAt == nil {
		a.PublishedAt = entry.PublishedAt
	}
}
