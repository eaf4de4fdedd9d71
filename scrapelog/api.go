package scrapelog

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// APIServer serves the scrape log API.
type APIServer struct {
	store *Store
}

// NewAPIServer creates a new scrape log API server.
func NewAPIServer(store *Store) *APIServer {
	return &APIServer{store: store}
}

// RegisterRoutes mounts GET /logs on r.
func (s *APIServer) RegisterRoutes(r gin.IRouter) {
	r.GET("/logs", s.HandleList)
}

// ListResponse represents the response for GET /api/logs.
type ListResponse struct {
	Logs  []Log `json:"logs"`
	Total int   `json:"total"`
}

// HandleList handles GET /api/logs, optionally narrowed by website_id.
func (s *APIServer) HandleList(c *gin.Context) {
	limit := defaultLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": gin.H{"code": "invalid_parameter", "message": "Invalid limit parameter"},
			})
			return
		}
		limit = min(n, maxLimit)
	}

	var (
		logs []Log
		err  error
	)
	if v := c.Query("website_id"); v != "" {
		id, parseErr := uuid.Parse(v)
		if parseErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": gin.H{"code": "invalid_parameter", "message": "Invalid website_id parameter"},
			})
			return
		}
		logs, err = s.store.ListForWebsite(id, limit)
	} else {
		logs, err = s.store.Recent(limit)
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to list scrape logs")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{"code": "internal_error", "message": "Failed to list logs"},
		})
		return
	}

	c.JSON(http.StatusOK, ListResponse{Logs: logs, Total: len(logs)})
}
