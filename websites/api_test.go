package websites

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type recordingHooks struct {
	saved   []*Website
	deleted []uuid.UUID
}

func (h *recordingHooks) WebsiteSaved(_ context.Context, w *Website) error {
	h.saved = append(h.saved, w)
	return nil
}

func (h *recordingHooks) WebsiteDeleted(_ context.Context, id uuid.UUID) error {
	h.deleted = append(h.deleted, id)
	return nil
}

// Test helper: create a router backed by a fresh store
func setupTestRouter(t *testing.T) (*gin.Engine, *Store, *recordingHooks) {
	store := createTestStore(t)
	hooks := &recordingHooks{}
	router := gin.New()
	NewAPIServer(store, hooks).RegisterRoutes(router.Group("/api"))
	return router, store, hooks
}

func doJSON(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// TestHandleCreate_Success verifies website creation through the API
func TestHandleCreate_Success(t *testing.T) {
	router, _, hooks := setupTestRouter(t)

	w := doJSON(router, http.MethodPost, "/api/websites", map[string]any{
		"name":                "Example",
		"url":                 "https://example.com",
		"title_selector":      "h1.story",
		"auto_scrape_enabled": true,
		"scrape_interval":     900,
	})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created Website
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "Example", created.Name)
	assert.Equal(t, "h1.story", created.Selectors.Title)
	assert.True(t, created.AutoScrape)
	assert.Equal(t, 900, created.ScrapeInterval)
	require.Len(t, hooks.saved, 1, "save hook should run")
}

// TestHandleCreate_MissingFields verifies required fields
func TestHandleCreate_MissingFields(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	w := doJSON(router, http.MethodPost, "/api/websites", map[string]any{"name": "No URL"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestHandleCreate_Conflict verifies duplicate URLs map to 409
func TestHandleCreate_Conflict(t *testing.T) {
	router, store, _ := setupTestRouter(t)
	_, err := store.Create(New("Existing", "https://example.com"))
	require.NoError(t, err)

	w := doJSON(router, http.MethodPost, "/api/websites", map[string]any{
		"name": "Again",
		"url":  "https://example.com",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

// TestHandleUpdate_KeepsOtherSelectors verifies partial selector updates
func TestHandleUpdate_KeepsOtherSelectors(t *testing.T) {
	router, store, hooks := setupTestRouter(t)

	site := New("Site", "https://example.com")
	site.Selectors.Content = "div.story-body"
	created, err := store.Create(site)
	require.NoError(t, err)

	w := doJSON(router, http.MethodPut, "/api/websites/"+created.ID.String(), map[string]any{
		"title_selector": "h2.title",
		"is_active":      false,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	got, err := store.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "h2.title", got.Selectors.Title)
	assert.Equal(t, "div.story-body", got.Selectors.Content, "untouched selector should be kept")
	assert.False(t, got.Active)
	assert.Len(t, hooks.saved, 1)
}

// TestHandleUpdate_NotFound verifies 404 for unknown websites
func TestHandleUpdate_NotFound(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	w := doJSON(router, http.MethodPut, "/api/websites/"+uuid.NewString(), map[string]any{"name": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestHandleGet_InvalidID verifies malformed IDs are rejected
func TestHandleGet_InvalidID(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	w := doJSON(router, http.MethodGet, "/api/websites/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestHandleList verifies listing with the active filter
func TestHandleList(t *testing.T) {
	router, store, _ := setupTestRouter(t)
	_, err := store.Create(New("A", "http://a.example.com"))
	require.NoError(t, err)
	off := New("B", "http://b.example.com")
	off.Active = false
	_, err = store.Create(off)
	require.NoError(t, err)

	w := doJSON(router, http.MethodGet, "/api/websites?active=true", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp ListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)
	assert.Equal(t, "A", resp.Websites[0].Name)
}

// TestHandleDelete verifies deletion runs the delete hook
func TestHandleDelete(t *testing.T) {
	router, store, hooks := setupTestRouter(t)
	created, err := store.Create(New("Site", "https://example.com"))
	require.NoError(t, err)

	w := doJSON(router, http.MethodDelete, "/api/websites/"+created.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []uuid.UUID{created.ID}, hooks.deleted)

	w = doJSON(router, http.MethodDelete, "/api/websites/"+created.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
