package articles

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper: create a test article store
func createTestStore(t *testing.T) *Store {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := NewStore(dbPath)
	require.NoError(t, err, "should create article store")
	t.Cleanup(func() { store.Close() })
	return store
}

// Test helper: insert an article scraped at base+offset minutes
func insertArticle(t *testing.T, store *Store, websiteID uuid.UUID, n int, mutate func(*Article)) *Article {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	a := &Article{
		WebsiteID:   websiteID,
		WebsiteName: "Example",
		Title:       fmt.Sprintf("Article %d", n),
		URL:         fmt.Sprintf("https://example.com/article/%d", n),
		Content:     fmt.Sprintf("Body of article %d", n),
		Category:    "General",
		Sentiment:   Neutral,
		ScrapedAt:   base.Add(time.Duration(n) * time.Minute),
	}
	if mutate != nil {
		mutate(a)
	}
	inserted, err := store.Insert(a)
	require.NoError(t, err)
	require.True(t, inserted)
	return a
}

// TestSummarize verifies summary truncation
func TestSummarize(t *testing.T) {
	assert.Equal(t, "short text", Summarize("  short text "))
	assert.Equal(t, "first para second para", Summarize("first para\nsecond para"), "summaries are one line")

	long := strings.Repeat("é", 250)
	summary := Summarize(long)
	assert.True(t, strings.HasSuffix(summary, "..."))
	assert.Equal(t, SummaryLength+3, len([]rune(summary)))

	exact := strings.Repeat("a", SummaryLength)
	assert.Equal(t, exact, Summarize(exact), "text at the limit is not cut")
}

// TestInsert_FillsDefaults verifies generated fields on insert
func TestInsert_FillsDefaults(t *testing.T) {
	store := createTestStore(t)

	a := &Article{
		WebsiteID: uuid.New(),
		Title:     "   ",
		URL:       "https://example.com/a",
		Content:   strings.Repeat("word ", 100),
	}
	inserted, err := store.Insert(a)
	require.NoError(t, err)
	assert.True(t, inserted)

	got, err := store.Get(a.ID)
	require.NoError(t, err)
	assert.Equal(t, NoTitle, got.Title)
	assert.True(t, strings.HasSuffix(got.Summary, "..."))
	assert.False(t, got.ScrapedAt.IsZero())
	assert.Nil(t, got.PublishedAt)
	assert.False(t, got.IsRead)
	assert.False(t, got.IsBookmarked)
}

// TestInsert_DuplicateURL verifies the URL is the dedupe key
func TestInsert_DuplicateURL(t *testing.T) {
	store := createTestStore(t)
	websiteID := uuid.New()

	first := insertArticle(t, store, websiteID, 1, nil)

	dup := &Article{WebsiteID: websiteID, Title: "Changed", URL: first.URL}
	inserted, err := store.Insert(dup)
	require.NoError(t, err)
	assert.False(t, inserted, "duplicate URL should not insert")

	got, err := store.Get(first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Article 1", got.Title, "existing article is untouched")

	exists, err := store.URLExists(first.URL)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.URLExists("https://example.com/missing")
	require.NoError(t, err)
	assert.False(t, exists)
}

// TestInsert_RequiresURL verifies articles without a URL are rejected
func TestInsert_RequiresURL(t *testing.T) {
	store := createTestStore(t)

	_, err := store.Insert(&Article{Title: "No URL"})
	assert.Error(t, err)
}

// TestGet_RoundTrip verifies optional fields survive storage
func TestGet_RoundTrip(t *testing.T) {
	store := createTestStore(t)
	published := time.Date(2024, 2, 28, 9, 30, 0, 0, time.UTC)

	a := insertArticle(t, store, uuid.New(), 1, func(a *Article) {
		a.Author = "Jane Reporter"
		a.PublishedAt = &published
		a.ImageURL = "https://example.com/img.png"
		a.ContentMarkdown = "**Body**"
		a.Sentiment = Positive
		a.SentimentScore = 0.5
	})

	got, err := store.Get(a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane Reporter", got.Author)
	require.NotNil(t, got.PublishedAt)
	assert.True(t, published.Equal(*got.PublishedAt))
	assert.Equal(t, "https://example.com/img.png", got.ImageURL)
	assert.Equal(t, "**Body**", got.ContentMarkdown)
	assert.Equal(t, Positive, got.Sentiment)
	assert.InDelta(t, 0.5, got.SentimentScore, 1e-9)
	assert.Equal(t, a.WebsiteID, got.WebsiteID)
	assert.Equal(t, "Example", got.WebsiteName)
}

// TestGet_NotFound verifies error for non-existent article
func TestGet_NotFound(t *testing.T) {
	store := createTestStore(t)

	_, err := store.Get(uuid.New())
	assert.ErrorIs(t, err, ErrArticleNotFound)
}

// TestMarkReadAndBookmark verifies the read and bookmark flags
func TestMarkReadAndBookmark(t *testing.T) {
	store := createTestStore(t)
	a := insertArticle(t, store, uuid.New(), 1, nil)

	require.NoError(t, store.MarkRead(a.ID))

	on, err := store.ToggleBookmark(a.ID)
	require.NoError(t, err)
	assert.True(t, on)

	got, err := store.Get(a.ID)
	require.NoError(t, err)
	assert.True(t, got.IsRead)
	assert.True(t, got.IsBookmarked)

	off, err := store.ToggleBookmark(a.ID)
	require.NoError(t, err)
	assert.False(t, off)

	_, err = store.ToggleBookmark(uuid.New())
	assert.ErrorIs(t, err, ErrArticleNotFound)
	assert.ErrorIs(t, store.MarkRead(uuid.New()), ErrArticleNotFound)
}

// TestList_PaginationAndOrder verifies newest-first paging
func TestList_PaginationAndOrder(t *testing.T) {
	store := createTestStore(t)
	websiteID := uuid.New()
	for i := 1; i <= 5; i++ {
		insertArticle(t, store, websiteID, i, nil)
	}

	page, err := store.List(Filter{Page: 1, PerPage: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 3, page.Pages)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "Article 5", page.Items[0].Title)
	assert.Equal(t, "Article 4", page.Items[1].Title)
	assert.False(t, page.HasPrev())
	assert.True(t, page.HasNext())

	last, err := store.List(Filter{Page: 3, PerPage: 2})
	require.NoError(t, err)
	require.Len(t, last.Items, 1)
	assert.Equal(t, "Article 1", last.Items[0].Title)
	assert.True(t, last.HasPrev())
	assert.False(t, last.HasNext())
}

// TestList_Defaults verifies paging defaults and caps
func TestList_Defaults(t *testing.T) {
	store := createTestStore(t)

	page, err := store.List(Filter{PerPage: 1000})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, MaxPerPage, page.PerPage)
	assert.Equal(t, 0, page.Pages)
	assert.NotNil(t, page.Items)
}

// TestList_Filters verifies each filter narrows the results
func TestList_Filters(t *testing.T) {
	store := createTestStore(t)
	siteA, siteB := uuid.New(), uuid.New()

	insertArticle(t, store, siteA, 1, func(a *Article) {
		a.Title = "Markets rally on growth"
		a.Category = "Business"
		a.Sentiment = Positive
	})
	insertArticle(t, store, siteA, 2, func(a *Article) {
		a.Content = "A crisis in the SUPPLY chain"
		a.Category = "Business"
		a.Sentiment = Negative
	})
	b := insertArticle(t, store, siteB, 3, func(a *Article) {
		a.Category = "Sports"
	})
	_, err := store.ToggleBookmark(b.ID)
	require.NoError(t, err)

	bookmarked := true
	since := time.Date(2024, 3, 1, 12, 2, 0, 0, time.UTC)

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{name: "website", filter: Filter{WebsiteID: &siteA}, want: 2},
		{name: "category", filter: Filter{Category: "Business"}, want: 2},
		{name: "sentiment", filter: Filter{Sentiment: Negative}, want: 1},
		{name: "search title", filter: Filter{Search: "RALLY"}, want: 1},
		{name: "search content", filter: Filter{Search: "supply"}, want: 1},
		{name: "bookmarked", filter: Filter{Bookmarked: &bookmarked}, want: 1},
		{name: "since", filter: Filter{Since: &since}, want: 2},
		{name: "combined", filter: Filter{WebsiteID: &siteA, Sentiment: Positive}, want: 1},
		{name: "no match", filter: Filter{Search: "nothing like this"}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := store.List(tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, page.Total)
			assert.Len(t, page.Items, tt.want)
		})
	}
}

// TestList_SearchLiteral verifies search terms match as literal, case-folded substrings
func TestList_SearchLiteral(t *testing.T) {
	store := createTestStore(t)
	site := uuid.New()

	insertArticle(t, store, site, 1, func(a *Article) { a.Title = "New tax_rate announced" })
	insertArticle(t, store, site, 2, func(a *Article) { a.Title = "Old taxXrate withdrawn" })
	insertArticle(t, store, site, 3, func(a *Article) { a.Title = "Turnout reached 50 percent" })
	insertArticle(t, store, site, 4, func(a *Article) { a.Title = "Élection results are in" })

	tests := []struct {
		search string
		want   int
	}{
		{search: "tax_rate", want: 1},
		{search: "50%", want: 0},
		{search: "élection", want: 1},
		{search: "ÉLECTION", want: 1},
		{search: "TURNOUT", want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.search, func(t *testing.T) {
			page, err := store.List(Filter{Search: tt.search})
			require.NoError(t, err)
			assert.Equal(t, tt.want, page.Total)
		})
	}
}

// TestList_SubSecondOrder verifies ordering and since filters across fractional seconds
func TestList_SubSecondOrder(t *testing.T) {
	store := createTestStore(t)
	site := uuid.New()
	whole := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	half := whole.Add(500 * time.Millisecond)

	insertArticle(t, store, site, 1, func(a *Article) {
		a.Title = "whole"
		a.ScrapedAt = whole
	})
	insertArticle(t, store, site, 2, func(a *Article) {
		a.Title = "half"
		a.ScrapedAt = half
	})

	page, err := store.List(Filter{})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "half", page.Items[0].Title)
	assert.Equal(t, "whole", page.Items[1].Title)

	page, err = store.List(Filter{Since: &whole})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)

	page, err = store.List(Filter{Until: &half})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "whole", page.Items[0].Title)
}

// TestAll_Limit verifies export queries honour the limit
func TestAll_Limit(t *testing.T) {
	store := createTestStore(t)
	for i := 1; i <= 4; i++ {
		insertArticle(t, store, uuid.New(), i, nil)
	}

	all, err := store.All(Filter{}, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	recent, err := store.Recent(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "Article 4", recent[0].Title)
}

// TestCategoriesAndStats verifies dashboard aggregates
func TestCategoriesAndStats(t *testing.T) {
	store := createTestStore(t)
	site := uuid.New()

	insertArticle(t, store, site, 1, func(a *Article) { a.Category = "Tech"; a.Sentiment = Positive })
	insertArticle(t, store, site, 2, func(a *Article) { a.Category = "Tech"; a.Sentiment = Positive })
	insertArticle(t, store, site, 3, func(a *Article) { a.Category = "World"; a.Sentiment = Negative })
	read := insertArticle(t, store, site, 4, func(a *Article) { a.Category = ""; a.Sentiment = "" })
	require.NoError(t, store.MarkRead(read.ID))

	categories, err := store.Categories()
	require.NoError(t, err)
	assert.Equal(t, []string{"Tech", "World"}, categories)

	counts, err := store.CategoryCounts()
	require.NoError(t, err)
	assert.Equal(t, []CategoryCount{{"Tech", 2}, {"World", 1}}, counts)

	stats, err := store.Stats()
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 3, stats.Unread)
	assert.Equal(t, 0, stats.Bookmarked)
	assert.Equal(t, map[string]int{Positive: 2, Neutral: 0, Negative: 1}, stats.Sentiment)
}

// TestDeleteByWebsite verifies cascade deletion of a website's articles
func TestDeleteByWebsite(t *testing.T) {
	store := createTestStore(t)
	siteA, siteB := uuid.New(), uuid.New()
	insertArticle(t, store, siteA, 1, nil)
	insertArticle(t, store, siteA, 2, nil)
	insertArticle(t, store, siteB, 3, nil)

	n, err := store.DeleteByWebsite(siteA)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	page, err := store.List(Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
}
