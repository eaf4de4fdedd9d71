package config

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// SettingsAPIServer serves the settings API.
type SettingsAPIServer struct {
	store *SettingsStore
}

// NewSettingsAPIServer creates a new settings API server.
func NewSettingsAPIServer(store *SettingsStore) *SettingsAPIServer {
	return &SettingsAPIServer{
		store: store,
	}
}

// RegisterRoutes mounts the settings routes on r.
func (s *SettingsAPIServer) RegisterRoutes(r gin.IRouter) {
	r.GET("/settings", s.HandleGetSettings)
	r.PUT("/settings", s.HandleUpdateSettings)
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

// HandleGetSettings handles GET /api/settings.
func (s *SettingsAPIServer) HandleGetSettings(c *gin.Context) {
	settings, err := s.store.Get()
	if err != nil {
		log.Error().Err(err).Msg("Failed to retrieve settings")
		c.JSON(http.StatusInternalServerError, errorResponse("internal_error", "Failed to retrieve settings"))
		return
	}

	c.JSON(http.StatusOK, settings)
}

// HandleUpdateSettings handles PUT /api/settings. Fields missing from the
// body keep their current value.
func (s *SettingsAPIServer) HandleUpdateSettings(c *gin.Context) {
	var update SettingsUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("bad_request", err.Error()))
		return
	}

	settings, err := s.store.Update(update)
	if errors.Is(err, ErrInvalidSettings) {
		c.JSON(http.StatusBadRequest, errorResponse("validation_error", err.Error()))
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to update settings")
		c.JSON(http.StatusInternalServerError, errorResponse("internal_error", "Failed to update settings"))
		return
	}

	c.JSON(http.StatusOK, settings)
}
