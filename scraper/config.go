package scraper

import "strings"

// Default selector lists applied to a website that leaves a field blank.
const (
	DefaultTitleSelector    = "h1, .title, .article-title"
	DefaultDateSelector     = "time, .date, .published"
	DefaultContentSelector  = "article, .content, .article-content"
	DefaultCategorySelector = ".category, .tag"
)

// DefaultLinkSelectors are the listing-page patterns tried, in order, when a
// website has no link selector of its own. The first pattern that matches
// anything wins.
var DefaultLinkSelectors = []string{
	"article a",
	".article-link",
	".post-link",
	".news-link",
	`a[href*="/article"]`,
	`a[href*="/news"]`,
	`a[href*="/post"]`,
	"h2 a",
	"h3 a",
}

// Selectors defines how to find and extract articles on a specific website.
// Every field holds a comma-separated list of CSS selectors that are tried in
// order until one yields non-empty text.
type Selectors struct {
	Link     string `json:"link_selector"`
	Title    string `json:"title_selector"`
	Content  string `json:"content_selector"`
	Date     string `json:"date_selector"`
	Category string `json:"category_selector"`
	Author   string `json:"author_selector"`
}

// DefaultSelectors returns the selectors a new website starts with.
func DefaultSelectors() Selectors {
	return Selectors{
		Title:    DefaultTitleSelector,
		Content:  DefaultContentSelector,
		Date:     DefaultDateSelector,
		Category: DefaultCategorySelector,
	}
}

// WithDefaults returns a copy with every blank extraction field replaced by
// its default. Link and Author have no default list and stay as given.
func (s Selectors) WithDefaults() Selectors {
	if strings.TrimSpace(s.Title) == "" {
		s.Title = DefaultTitleSelector
	}
	if strings.TrimSpace(s.Content) == "" {
		s.Content = DefaultContentSelector
	}
	if strings.TrimSpace(s.Date) == "" {
		s.Date = DefaultDateSelector
	}
	if strings.TrimSpace(s.Category) == "" {
		s.Category = DefaultCategorySelector
	}
	return s
}

// LinkSelectors returns the link patterns to try on a listing page.
func (s Selectors) LinkSelectors() []string {
	if links := SplitSelectors(s.Link); len(links) > 0 {
		return links
	}
	return DefaultLinkSelectors
}

// SplitSelectors splits a comma-separated selector list, trimming whitespace
// and dropping empty entries.
func SplitSelectors(list string) []string {
	selectors := []string{}
	for part := range strings.SplitSeq(list, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			selectors = append(selectors, part)
		}
	}
	return selectors
}
