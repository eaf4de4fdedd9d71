package articles

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// APIServer serves the article API.
type APIServer struct {
	store *Store
}

// NewAPIServer creates a new article API server.
func NewAPIServer(store *Store) *APIServer {
	return &APIServer{store: store}
}

// RegisterRoutes mounts the article routes on r.
func (s *APIServer) RegisterRoutes(r gin.IRouter) {
	r.GET("/news", s.HandleList)
	r.GET("/news/:id", s.HandleGet)
	r.POST("/news/:id/bookmark", s.HandleBookmark)
	r.GET("/stats", s.HandleStats)
}

// BookmarkResponse is returned by POST /api/news/:id/bookmark.
type BookmarkResponse struct {
	Success      bool `json:"success"`
	IsBookmarked bool `json:"is_bookmarked"`
}

// StatsResponse is returned by GET /api/stats.
type StatsResponse struct {
	*Stats
	Categories []CategoryCount `json:"categories"`
}

func errorResponse(code, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}

func (s *APIServer) handleError(c *gin.Context, err error) {
	if errors.Is(err, ErrArticleNotFound) {
		c.JSON(http.StatusNotFound, errorResponse("not_found", err.Error()))
		return
	}
	log.Error().Err(err).Str("path", c.FullPath()).Msg("Article request failed")
	c.JSON(http.StatusInternalServerError, errorResponse("internal_error", "Failed to process request"))
}

// FilterFromQuery builds a Filter from request query parameters:
// page, per_page, website_id, category, sentiment, search (or q),
// bookmarked, since and until (RFC 3339).
func FilterFromQuery(c *gin.Context) (Filter, error) {
	var filter Filter

	if v := c.Query("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return filter, errors.New("invalid page parameter")
		}
		filter.Page = page
	}
	if v := c.Query("per_page"); v != "" {
		perPage, err := strconv.Atoi(v)
		if err != nil || perPage < 1 {
			return filter, errors.New("invalid per_page parameter")
		}
		filter.PerPage = min(perPage, MaxPerPage)
	}
	if v := c.Query("website_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return filter, errors.New("invalid website_id parameter")
		}
		filter.WebsiteID = &id
	}
	filter.Category = c.Query("category")
	filter.Sentiment = c.Query("sentiment")
	filter.Search = c.Query("search")
	if filter.Search == "" {
		filter.Search = c.Query("q")
	}
	if v := c.Query("bookmarked"); v != "" {
		b := v == "true" || v == "1"
		filter.Bookmarked = &b
	}
	for _, p := range []struct {
		name string
		dst  **time.Time
	}{{"since", &filter.Since}, {"until", &filter.Until}} {
		v := c.Query(p.name)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, errors.New("invalid " + p.name + " parameter: must be ISO 8601 format")
		}
		*p.dst = &t
	}

	return filter, nil
}

// HandleList handles GET /api/news.
func (s *APIServer) HandleList(c *gin.Context) {
	filter, err := FilterFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid_parameter", err.Error()))
		return
	}

	page, err := s.store.List(filter)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

// HandleGet handles GET /api/news/:id.
func (s *APIServer) HandleGet(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("bad_request", "Invalid article ID"))
		return
	}

	a, err := s.store.Get(id)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, a)
}

// HandleBookmark handles POST /api/news/:id/bookmark.
func (s *APIServer) HandleBookmark(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("bad_request", "Invalid article ID"))
		return
	}

	bookmarked, err := s.store.ToggleBookmark(id)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, BookmarkResponse{Success: true, IsBookmarked: bookmarked})
}

// HandleStats handles GET /api/stats.
func (s *APIServer) HandleStats(c *gin.Context) {
	stats, err := s.store.Stats()
	if err != nil {
		s.handleError(c, err)
		return
	}
	categories, err := s.store.CategoryCounts()
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, StatsResponse{Stats: stats, Categories: categories})
}
