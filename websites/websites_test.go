package websites

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pevans/newsscraper/scraper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper: create a test website store
func createTestStore(t *testing.T) *Store {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := NewStore(dbPath)
	require.NoError(t, err, "should create website store")
	t.Cleanup(func() { store.Close() })
	return store
}

func ptr[T any](v T) *T { return &v }

// TestNewStore_ExistingDatabase verifies data persists across connections
func TestNewStore_ExistingDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store1, err := NewStore(dbPath)
	require.NoError(t, err)
	_, err = store1.Create(New("Example", "http://example.com"))
	require.NoError(t, err)
	store1.Close()

	store2, err := NewStore(dbPath)
	require.NoError(t, err)
	defer store2.Close()

	websites, err := store2.List(Filter{})
	require.NoError(t, err)
	assert.Len(t, websites, 1, "data should persist across connections")
}

// TestCreate_Defaults verifies a new website gets default configuration
func TestCreate_Defaults(t *testing.T) {
	store := createTestStore(t)

	before := time.Now()
	w, err := store.Create(New("Example News", "https://example.com/news"))
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, w.ID, "should generate UUID")
	assert.Equal(t, DefaultCategory, w.Category)
	assert.Equal(t, scraper.DefaultTitleSelector, w.Selectors.Title)
	assert.Equal(t, scraper.DefaultContentSelector, w.Selectors.Content)
	assert.True(t, w.Active, "should be active by default")
	assert.False(t, w.RenderJS)
	assert.Equal(t, SentimentKeyword, w.SentimentMethod)
	assert.Equal(t, DefaultScrapeInterval, w.ScrapeInterval)
	assert.False(t, w.CreatedAt.Before(before.Truncate(time.Second)))
	assert.Equal(t, w.CreatedAt, w.UpdatedAt)
}

// TestCreate_Validation verifies invalid websites are rejected
func TestCreate_Validation(t *testing.T) {
	store := createTestStore(t)

	tests := []struct {
		name    string
		website *Website
	}{
		{name: "missing name", website: New("  ", "http://example.com")},
		{name: "ftp url", website: New("Site", "ftp://example.com")},
		{name: "no host", website: New("Site", "http://")},
		{name: "bad sentiment method", website: func() *Website {
			w := New("Site", "http://example.com")
			w.SentimentMethod = "vader"
			return w
		}()},
		{name: "interval too short", website: func() *Website {
			w := New("Site", "http://example.com")
			w.ScrapeInterval = 5
			return w
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Create(tt.website)
			assert.ErrorIs(t, err, ErrInvalidWebsite)
		})
	}
}

// TestCreate_DuplicateURL verifies unique URL constraint
func TestCreate_DuplicateURL(t *testing.T) {
	store := createTestStore(t)

	_, err := store.Create(New("First", "http://example.com"))
	require.NoError(t, err)

	_, err = store.Create(New("Second", "http://example.com"))
	assert.ErrorIs(t, err, ErrDuplicateURL)
}

// TestGet_PreservesAllFields verifies every column round-trips
func TestGet_PreservesAllFields(t *testing.T) {
	store := createTestStore(t)

	w := New("Full", "https://full.example.com")
	w.Category = "Tech"
	w.Selectors = scraper.Selectors{
		Link:    "li.story a",
		Title:   "h1.headline",
		Content: "div.body",
		Author:  ".byline",
	}
	w.RenderJS = true
	w.ProxyEnabled = true
	w.ProxyHTTP = "http://proxy:8080"
	w.ProxyHTTPS = "http://proxy:8443"
	w.SentimentMethod = SentimentOpenAI
	w.AutoScrape = true
	w.ScrapeInterval = 600

	created, err := store.Create(w)
	require.NoError(t, err)

	got, err := store.Get(created.ID)
	require.NoError(t, err)

	assert.Equal(t, "Tech", got.Category)
	assert.Equal(t, "li.story a", got.Selectors.Link)
	assert.Equal(t, "h1.headline", got.Selectors.Title)
	assert.Equal(t, scraper.DefaultDateSelector, got.Selectors.Date, "blank selectors get defaults")
	assert.True(t, got.RenderJS)
	assert.True(t, got.ProxyEnabled)
	assert.Equal(t, "http://proxy:8080", got.ProxyHTTP)
	assert.Equal(t, "http://proxy:8443", got.ProxyHTTPS)
	assert.Equal(t, SentimentOpenAI, got.SentimentMethod)
	assert.True(t, got.AutoScrape)
	assert.Equal(t, 600, got.ScrapeInterval)
	assert.Equal(t, 10*time.Minute, got.Interval())
	assert.True(t, created.CreatedAt.Equal(got.CreatedAt))
}

// TestGet_NotFound verifies error for non-existent website
func TestGet_NotFound(t *testing.T) {
	store := createTestStore(t)

	_, err := store.Get(uuid.New())
	assert.ErrorIs(t, err, ErrWebsiteNotFound)
}

// TestList_ActiveFilter verifies filtering by active status
func TestList_ActiveFilter(t *testing.T) {
	store := createTestStore(t)

	_, err := store.Create(New("Active", "http://a.example.com"))
	require.NoError(t, err)
	inactive := New("Inactive", "http://b.example.com")
	inactive.Active = false
	_, err = store.Create(inactive)
	require.NoError(t, err)

	all, err := store.List(Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := store.List(Filter{Active: ptr(true)})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Active", active[0].Name)

	n, err := store.Count(true)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = store.Count(false)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

// TestList_Pagination verifies limit and offset
func TestList_Pagination(t *testing.T) {
	store := createTestStore(t)

	for _, host := range []string{"a", "b", "c"} {
		_, err := store.Create(New(host, "http://"+host+".example.com"))
		require.NoError(t, err)
	}

	page, err := store.List(Filter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Len(t, page, 2)
}

// TestUpdate_PartialFields verifies only provided fields change
func TestUpdate_PartialFields(t *testing.T) {
	store := createTestStore(t)

	created, err := store.Create(New("Original", "http://example.com"))
	require.NoError(t, err)

	updated, err := store.Update(created.ID, Update{
		Name:           ptr("Renamed"),
		Active:         ptr(false),
		ScrapeInterval: ptr(1800),
	})
	require.NoError(t, err)

	assert.Equal(t, "Renamed", updated.Name)
	assert.False(t, updated.Active)
	assert.Equal(t, 1800, updated.ScrapeInterval)
	assert.Equal(t, "http://example.com", updated.URL, "url should be unchanged")
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt) || updated.UpdatedAt.Equal(created.UpdatedAt))

	got, err := store.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
}

// TestUpdate_InvalidRejected verifies validation on update
func TestUpdate_InvalidRejected(t *testing.T) {
	store := createTestStore(t)

	created, err := store.Create(New("Site", "http://example.com"))
	require.NoError(t, err)

	_, err = store.Update(created.ID, Update{URL: ptr("not a url")})
	assert.ErrorIs(t, err, ErrInvalidWebsite)
}

// TestUpdate_DuplicateURL verifies URL conflicts on update
func TestUpdate_DuplicateURL(t *testing.T) {
	store := createTestStore(t)

	_, err := store.Create(New("A", "http://a.example.com"))
	require.NoError(t, err)
	b, err := store.Create(New("B", "http://b.example.com"))
	require.NoError(t, err)

	_, err = store.Update(b.ID, Update{URL: ptr("http://a.example.com")})
	assert.ErrorIs(t, err, ErrDuplicateURL)
}

// TestDelete verifies deletion and not-found handling
func TestDelete(t *testing.T) {
	store := createTestStore(t)

	created, err := store.Create(New("Site", "http://example.com"))
	require.NoError(t, err)

	require.NoError(t, store.Delete(created.ID))

	_, err = store.Get(created.ID)
	assert.ErrorIs(t, err, ErrWebsiteNotFound)

	assert.ErrorIs(t, store.Delete(created.ID), ErrWebsiteNotFound)
}
