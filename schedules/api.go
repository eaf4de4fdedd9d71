package schedules

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pevans/newsscraper/websites"
	"github.com/rs/zerolog/log"
)

// WebsiteLookup resolves the website a schedule belongs to.
type WebsiteLookup interface {
	Get(id uuid.UUID) (*websites.Website, error)
}

// APIServer serves the schedule API.
type APIServer struct {
	manager  *Manager
	store    *Store
	websites WebsiteLookup
}

// NewAPIServer creates a new schedule API server.
func NewAPIServer(manager *Manager, store *Store, sites WebsiteLookup) *APIServer {
	return &APIServer{manager: manager, store: store, websites: sites}
}

// RegisterRoutes mounts the schedule routes on r.
func (s *APIServer) RegisterRoutes(r gin.IRouter) {
	r.GET("/schedules", s.HandleList)
	r.POST("/schedules", s.HandleCreate)
	r.POST("/schedules/run-all", s.HandleRunAll)
	r.PUT("/schedules/:id", s.HandleUpdate)
	r.DELETE("/schedules/:id", s.HandleDelete)
	r.POST("/schedules/:id/toggle", s.HandleToggle)
}

// View is a schedule with its website's name.
type View struct {
	Schedule
	WebsiteName string `json:"website_name"`
}

// ListResponse represents the response for GET /api/schedules.
type ListResponse struct {
	Schedules []View `json:"schedules"`
	Total     int    `json:"total"`
}

// CreateRequest is the body of POST /api/schedules.
type CreateRequest struct {
	WebsiteID       uuid.UUID `json:"website_id" binding:"required"`
	IntervalSeconds int       `json:"interval_seconds"`
}

// UpdateRequest is the body of PUT /api/schedules/:id.
type UpdateRequest struct {
	IntervalSeconds *int  `json:"interval_seconds"`
	Active          *bool `json:"is_active"`
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
	switch {
	case errors.Is(err, ErrScheduleNotFound), errors.Is(err, websites.ErrWebsiteNotFound):
		c.JSON(http.StatusNotFound, errorResponse("not_found", err.Error()))
	case errors.Is(err, ErrScheduleExists):
		c.JSON(http.StatusConflict, errorResponse("conflict", err.Error()))
	case errors.Is(err, ErrInvalidInterval):
		c.JSON(http.StatusBadRequest, errorResponse("validation_error", err.Error()))
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("Schedule request failed")
		c.JSON(http.StatusInternalServerError, errorResponse("internal_error", "Failed to process request"))
	}
}

// Views pairs schedules with their website names. Schedules whose website
// is gone are listed with an empty name.
func Views(schedules []Schedule, sites WebsiteLookup) []View {
	views := make([]View, 0, len(schedules))
	for _, sched := range schedules {
		v := View{Schedule: sched}
		if w, err := sites.Get(sched.WebsiteID); err == nil {
			v.WebsiteName = w.Name
		}
		views = append(views, v)
	}
	return views
}

// HandleList handles GET /api/schedules.
func (s *APIServer) HandleList(c *gin.Context) {
	schedules, err := s.store.List(c.Query("active") == "true")
	if err != nil {
		s.handleError(c, err)
		return
	}

	views := Views(schedules, s.websites)
	c.JSON(http.StatusOK, ListResponse{Schedules: views, Total: len(views)})
}

// HandleCreate handles POST /api/schedules.
func (s *APIServer) HandleCreate(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("validation_error", err.Error()))
		return
	}
	if req.IntervalSeconds != 0 && req.IntervalSeconds < websites.MinScrapeInterval {
		c.JSON(http.StatusBadRequest, errorResponse("validation_error", "interval_seconds must be at least 60"))
		return
	}
	if _, err := s.websites.Get(req.WebsiteID); err != nil {
		s.handleError(c, err)
		return
	}

	sched, err := s.manager.Create(req.WebsiteID, req.IntervalSeconds)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, sched)
}

// HandleUpdate handles PUT /api/schedules/:id.
func (s *APIServer) HandleUpdate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("bad_request", "Invalid schedule ID"))
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("bad_request", err.Error()))
		return
	}
	if req.IntervalSeconds != nil && *req.IntervalSeconds < websites.MinScrapeInterval {
		c.JSON(http.StatusBadRequest, errorResponse("validation_error", "interval_seconds must be at least 60"))
		return
	}

	sched, err := s.manager.Update(id, Update(req))
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, sched)
}

// HandleDelete handles DELETE /api/schedules/:id.
func (s *APIServer) HandleDelete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("bad_request", "Invalid schedule ID"))
		return
	}

	if err := s.manager.Delete(id); err != nil {
		s.handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ToggleResponse is returned by POST /api/schedules/:id/toggle.
type ToggleResponse struct {
	Success  bool `json:"success"`
	IsActive bool `json:"is_active"`
}

// HandleToggle handles POST /api/schedules/:id/toggle.
func (s *APIServer) HandleToggle(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("bad_request", "Invalid schedule ID"))
		return
	}

	sched, err := s.manager.Toggle(id)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, ToggleResponse{Success: true, IsActive: sched.Active})
}

// HandleRunAll handles POST /api/schedules/run-all.
func (s *APIServer) HandleRunAll(c *gin.Context) {
	ran, err := s.manager.RunAll(c.Request.Context())
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "schedules_run": ran})
}
