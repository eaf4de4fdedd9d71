// Package web serves the HTML interface and mounts the JSON APIs of every
// component on one gin router.
package web

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pevans/newsscraper/articles"
	"github.com/pevans/newsscraper/config"
	"github.com/pevans/newsscraper/logging"
	"github.com/pevans/newsscraper/schedules"
	"github.com/pevans/newsscraper/scrapelog"
	"github.com/pevans/newsscraper/websites"
	"github.com/rs/zerolog/log"
)

// Options holds the components a Server serves.
type Options struct {
	Config    *config.Config
	Websites  *websites.Store
	Articles  *articles.Store
	Logs      *scrapelog.Store
	Schedules *schedules.Store
	Manager   *schedules.Manager
	Settings  *config.SettingsStore
	Scraper   schedules.Scraper
}

// Server is the web application.
type Server struct {
	cfg       *config.Config
	websites  *websites.Store
	articles  *articles.Store
	logs      *scrapelog.Store
	schedules *schedules.Store
	manager   *schedules.Manager
	settings  *config.SettingsStore
	scraper   schedules.Scraper

	siteAPI *websites.APIServer
	pages   *templates
	router  *gin.Engine
}

// NewServer creates the web application and its routes.
func NewServer(opts Options) (*Server, error) {
	if opts.Config == nil {
		opts.Config = config.Default()
	}
	pages, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:       opts.Config,
		websites:  opts.Websites,
		articles:  opts.Articles,
		logs:      opts.Logs,
		schedules: opts.Schedules,
		manager:   opts.Manager,
		settings:  opts.Settings,
		scraper:   opts.Scraper,
		pages:     pages,
	}
	s.siteAPI = websites.NewAPIServer(s.websites, &SiteHooks{
		Manager:  s.manager,
		Articles: s.articles,
		Logs:     s.logs,
	})
	s.router = s.setupRouter()
	return s, nil
}

// Handler returns the HTTP handler of the application.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves HTTP on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Web server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info().Msg("Shutting down web server")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) setupRouter() *gin.Engine {
	router := gin.New()
	router.Use(logging.GinLogger(log.Logger))
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Error().Interface("panic", recovered).Str("path", c.Request.URL.Path).Msg("Request panicked")
		s.renderError(c, http.StatusInternalServerError, "Internal server error")
	}))

	router.GET("/", s.handleDashboard)

	router.GET("/websites", s.handleWebsites)
	router.GET("/websites/new", s.handleWebsiteNew)
	router.POST("/websites/new", s.handleWebsiteCreate)
	router.GET("/websites/:id/edit", s.handleWebsiteEdit)
	router.POST("/websites/:id/edit", s.handleWebsiteUpdate)
	router.POST("/websites/:id/delete", s.handleWebsiteDelete)

	router.GET("/scrape/all", s.handleScrapeAll)
	router.GET("/scrape/:id", s.handleScrape)

	router.GET("/news", s.handleNews)
	router.GET("/article/:id", s.handleArticle)
	router.POST("/article/:id/bookmark", s.handleBookmark)

	router.GET("/export", s.handleExportPage)
	router.GET("/export/:format", s.handleExport)

	router.GET("/schedules", s.handleSchedules)
	router.POST("/schedules/:id/toggle", s.handleScheduleToggle)
	router.GET("/schedules/run-all", s.handleSchedulesRunAll)

	api := router.Group("/api")
	s.siteAPI.RegisterRoutes(api)
	articles.NewAPIServer(s.articles).RegisterRoutes(api)
	scrapelog.NewAPIServer(s.logs).RegisterRoutes(api)
	schedules.NewAPIServer(s.manager, s.schedules, s.websites).RegisterRoutes(api)
	config.NewSettingsAPIServer(s.settings).RegisterRoutes(api)
	api.POST("/scrape", s.handleAPIScrapeAll)
	api.POST("/scrape/:id", s.handleAPIScrape)

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, errorResponse("not_found", "Resource not found"))
			return
		}
		s.renderError(c, http.StatusNotFound, "Page not found")
	})

	return router
}

// currentSettings returns the stored settings, or the configured defaults
// when they cannot be read.
func (s *Server) currentSettings() config.Settings {
	defaults := config.Settings{
		DefaultScrapeInterval: websites.DefaultScrapeInterval,
		ItemsPerPage:          s.cfg.ItemsPerPage,
	}
	settings, err := s.settings.Get()
	if err != nil {
		log.Error().Err(err).Msg("Failed to read settings")
		return defaults
	}
	return *settings
}

func errorResponse(code, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}

// Flash levels.
const (
	flashSuccess = "success"
	flashWarning = "warning"
	flashDanger  = "danger"
)

type flash struct {
	Message string
	Level   string
}

// flashFromQuery reads the message carried by a redirect.
func flashFromQuery(c *gin.Context) *flash {
	msg := c.Query("msg")
	if msg == "" {
		return nil
	}
	level := c.Query("level")
	switch level {
	case flashSuccess, flashWarning, flashDanger:
	default:
		level = "info"
	}
	return &flash{Message: msg, Level: level}
}

// redirectWithFlash redirects to path with a flash message attached.
func redirectWithFlash(c *gin.Context, path, level, msg string) {
	q := url.Values{}
	q.Set("msg", msg)
	q.Set("level", level)
	c.Redirect(http.StatusSeeOther, path+"?"+q.Encode())
}
