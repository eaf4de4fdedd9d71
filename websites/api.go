package websites

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pevans/newsscraper/scraper"
	"github.com/rs/zerolog/log"
)

// Hooks receives website lifecycle events so that dependent records
// (schedules, articles) can follow the website.
type Hooks interface {
	WebsiteSaved(ctx context.Context, w *Website) error
	WebsiteDeleted(ctx context.Context, id uuid.UUID) error
}

// APIServer serves the website management API.
type APIServer struct {
	store *Store
	hooks Hooks
}

// NewAPIServer creates a new website API server. hooks may be nil.
func NewAPIServer(store *Store, hooks Hooks) *APIServer {
	return &APIServer{
		store: store,
		hooks: hooks,
	}
}

// RegisterRoutes mounts the website routes on r.
func (s *APIServer) RegisterRoutes(r gin.IRouter) {
	r.GET("/websites", s.HandleList)
	r.GET("/websites/:id", s.HandleGet)
	r.POST("/websites", s.HandleCreate)
	r.PUT("/websites/:id", s.HandleUpdate)
	r.DELETE("/websites/:id", s.HandleDelete)
}

// ListResponse represents the response for GET /api/websites.
type ListResponse struct {
	Websites []Website `json:"websites"`
	Total    int       `json:"total"`
}

// Request carries website fields for create and update. Absent fields keep
// their default (create) or stored value (update).
type Request struct {
	Name             *string `json:"name"`
	URL              *string `json:"url"`
	Category         *string `json:"category"`
	LinkSelector     *string `json:"link_selector"`
	TitleSelector    *string `json:"title_selector"`
	ContentSelector  *string `json:"content_selector"`
	DateSelector     *string `json:"date_selector"`
	CategorySelector *string `json:"category_selector"`
	AuthorSelector   *string `json:"author_selector"`
	RenderJS         *bool   `json:"render_js"`
	Active           *bool   `json:"is_active"`
	ProxyEnabled     *bool   `json:"proxy_enabled"`
	ProxyHTTP        *string `json:"proxy_http"`
	ProxyHTTPS       *string `json:"proxy_https"`
	SentimentMethod  *string `json:"sentiment_method"`
	AutoScrape       *bool   `json:"auto_scrape_enabled"`
	ScrapeInterval   *int    `json:"scrape_interval"`
}

// ToUpdate converts the request into an Update layered over current
// selectors.
func (r Request) ToUpdate(current scraper.Selectors) Update {
	sel := current
	setIf(&sel.Link, r.LinkSelector)
	setIf(&sel.Title, r.TitleSelector)
	setIf(&sel.Content, r.ContentSelector)
	setIf(&sel.Date, r.DateSelector)
	setIf(&sel.Category, r.CategorySelector)
	setIf(&sel.Author, r.AuthorSelector)

	return Update{
		Name:            r.Name,
		URL:             r.URL,
		Category:        r.Category,
		Selectors:       &sel,
		RenderJS:        r.RenderJS,
		Active:          r.Active,
		ProxyEnabled:    r.ProxyEnabled,
		ProxyHTTP:       r.ProxyHTTP,
		ProxyHTTPS:      r.ProxyHTTPS,
		SentimentMethod: r.SentimentMethod,
		AutoScrape:      r.AutoScrape,
		ScrapeInterval:  r.ScrapeInterval,
	}
}

func setIf(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// errorResponse creates a standardized error response.
func errorResponse(code, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}

// handleError maps domain errors to HTTP responses.
func (s *APIServer) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrWebsiteNotFound):
		c.JSON(http.StatusNotFound, errorResponse("not_found", err.Error()))
	case errors.Is(err, ErrDuplicateURL):
		c.JSON(http.StatusConflict, errorResponse("conflict", err.Error()))
	case errors.Is(err, ErrInvalidWebsite):
		c.JSON(http.StatusBadRequest, errorResponse("validation_error", err.Error()))
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("Website request failed")
		c.JSON(http.StatusInternalServerError, errorResponse("internal_error", "Failed to process request"))
	}
}

// HandleList handles GET /api/websites.
func (s *APIServer) HandleList(c *gin.Context) {
	filter := Filter{}
	if activeParam := c.Query("active"); activeParam != "" {
		active := activeParam == "true"
		filter.Active = &active
	}

	websites, err := s.store.List(filter)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListResponse{
		Websites: websites,
		Total:    len(websites),
	})
}

// HandleGet handles GET /api/websites/:id.
func (s *APIServer) HandleGet(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("bad_request", "Invalid website ID"))
		return
	}

	w, err := s.store.Get(id)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, w)
}

// HandleCreate handles POST /api/websites.
func (s *APIServer) HandleCreate(c *gin.Context) {
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("validation_error", err.Error()))
		return
	}
	if req.Name == nil || req.URL == nil {
		c.JSON(http.StatusBadRequest, errorResponse("validation_error", "name and url are required"))
		return
	}

	w := New(*req.Name, *req.URL)
	req.ToUpdate(w.Selectors).Apply(w)

	created, err := s.CreateWebsite(c.Request.Context(), w)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

// HandleUpdate handles PUT /api/websites/:id.
func (s *APIServer) HandleUpdate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("bad_request", "Invalid website ID"))
		return
	}

	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("bad_request", err.Error()))
		return
	}

	current, err := s.store.Get(id)
	if err != nil {
		s.handleError(c, err)
		return
	}

	updated, err := s.UpdateWebsite(c.Request.Context(), id, req.ToUpdate(current.Selectors))
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// HandleDelete handles DELETE /api/websites/:id.
func (s *APIServer) HandleDelete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("bad_request", "Invalid website ID"))
		return
	}

	if err := s.DeleteWebsite(c.Request.Context(), id); err != nil {
		s.handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// CreateWebsite stores w and runs the save hook. A hook failure is logged
// and does not undo the write.
func (s *APIServer) CreateWebsite(ctx context.Context, w *Website) (*Website, error) {
	created, err := s.store.Create(w)
	if err != nil {
		return nil, err
	}
	s.afterSave(ctx, created)
	return created, nil
}

// UpdateWebsite applies update to the stored website and runs the save hook.
func (s *APIServer) UpdateWebsite(ctx context.Context, id uuid.UUID, update Update) (*Website, error) {
	updated, err := s.store.Update(id, update)
	if err != nil {
		return nil, err
	}
	s.afterSave(ctx, updated)
	return updated, nil
}

func (s *APIServer) afterSave(ctx context.Context, w *Website) {
	if s.hooks == nil {
		return
	}
	if err := s.hooks.WebsiteSaved(ctx, w); err != nil {
		log.Error().Err(err).Str("website", w.Name).Msg("Website save hook failed")
	}
}

// DeleteWebsite deletes a website and notifies the hooks first so that dependents
// are removed while the website still exists.
func (s *APIServer) DeleteWebsite(ctx context.Context, id uuid.UUID) error {
	if _, err := s.store.Get(id); err != nil {
		return err
	}

	if s.hooks != nil {
		if err := s.hooks.WebsiteDeleted(ctx, id); err != nil {
			log.Error().Err(err).Str("website_id", id.String()).Msg("Website delete hook failed")
		}
	}

	return s.store.Delete(id)
}
