package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pevans/newsscraper/websites"
	"github.com/rs/zerolog/log"
)

// handleAPIScrape handles POST /api/scrape/:id.
func (s *Server) handleAPIScrape(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("bad_request", "Invalid website ID"))
		return
	}

	res, err := s.scraper.Scrape(c.Request.Context(), id)
	if errors.Is(err, websites.ErrWebsiteNotFound) {
		c.JSON(http.StatusNotFound, errorResponse("not_found", err.Error()))
		return
	}
	if err != nil {
		log.Error().Err(err).Str("website_id", id.String()).Msg("Scrape request failed")
		c.JSON(http.StatusInternalServerError, errorResponse("internal_error", "Failed to scrape website"))
		return
	}

	c.JSON(http.StatusOK, res)
}

// handleAPIScrapeAll handles POST /api/scrape.
func (s *Server) handleAPIScrapeAll(c *gin.Context) {
	c.JSON(http.StatusOK, s.scraper.ScrapeAll(c.Request.Context()))
}
