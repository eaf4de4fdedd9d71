package web

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pevans/newsscraper/articles"
	"github.com/pevans/newsscraper/export"
	"github.com/pevans/newsscraper/schedules"
	"github.com/pevans/newsscraper/websites"
	"github.com/rs/zerolog/log"
)

const (
	dashboardRecent = 10
)

func (s *Server) handleDashboard(c *gin.Context) {
	totalSites, err := s.websites.Count(false)
	if err != nil {
		s.fail(c, err)
		return
	}
	activeSites, err := s.websites.Count(true)
	if err != nil {
		s.fail(c, err)
		return
	}
	stats, err := s.articles.Stats()
	if err != nil {
		s.fail(c, err)
		return
	}
	recent, err := s.articles.Recent(dashboardRecent)
	if err != nil {
		s.fail(c, err)
		return
	}
	logs, err := s.logs.Recent(dashboardRecent)
	if err != nil {
		s.fail(c, err)
		return
	}
	categories, err := s.articles.CategoryCounts()
	if err != nil {
		s.fail(c, err)
		return
	}

	s.render(c, http.StatusOK, "dashboard", gin.H{
		"Title":          "Dashboard",
		"TotalWebsites":  totalSites,
		"ActiveWebsites": activeSites,
		"Stats":          stats,
		"Sentiments":     []string{articles.Positive, articles.Neutral, articles.Negative},
		"Recent":         recent,
		"Logs":           logs,
		"Categories":     categories,
	})
}

// fail renders an internal error page for an unexpected error.
func (s *Server) fail(c *gin.Context, err error) {
	log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
	s.renderError(c, http.StatusInternalServerError, "Internal server error")
}

// idParam parses the :id route parameter, rendering a 404 page when it is
// not a UUID.
func (s *Server) idParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.renderError(c, http.StatusNotFound, "Page not found")
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) handleWebsites(c *gin.Context) {
	list, err := s.websites.List(websites.Filter{})
	if err != nil {
		s.fail(c, err)
		return
	}
	s.render(c, http.StatusOK, "websites", gin.H{"Title": "Websites", "Websites": list})
}

func (s *Server) handleWebsiteNew(c *gin.Context) {
	w := websites.New("", "")
	w.ScrapeInterval = s.currentSettings().DefaultScrapeInterval
	s.renderWebsiteForm(c, http.StatusOK, w, false, "")
}

func (s *Server) renderWebsiteForm(c *gin.Context, status int, w *websites.Website, editing bool, formErr string) {
	title := "Add Website"
	if editing {
		title = "Edit " + w.Name
	}
	s.render(c, status, "website_form", gin.H{
		"Title":   title,
		"Website": w,
		"Editing": editing,
		"Error":   formErr,
		"Methods": []string{websites.SentimentKeyword, websites.SentimentOpenAI},
	})
}

// websiteRequest reads the website form. Unchecked checkboxes are absent
// from a form post, so every checkbox is read as an explicit false.
func websiteRequest(c *gin.Context) (websites.Request, error) {
	text := func(name string) *string {
		v := strings.TrimSpace(c.PostForm(name))
		return &v
	}
	check := func(name string) *bool {
		_, ok := c.GetPostForm(name)
		return &ok
	}

	req := websites.Request{
		Name:             text("name"),
		URL:              text("url"),
		Category:         text("category"),
		LinkSelector:     text("link_selector"),
		TitleSelector:    text("title_selector"),
		ContentSelector:  text("content_selector"),
		DateSelector:     text("date_selector"),
		CategorySelector: text("category_selector"),
		AuthorSelector:   text("author_selector"),
		RenderJS:         check("render_js"),
		Active:           check("is_active"),
		ProxyEnabled:     check("proxy_enabled"),
		ProxyHTTP:        text("proxy_http"),
		ProxyHTTPS:       text("proxy_https"),
		SentimentMethod:  text("sentiment_method"),
		AutoScrape:       check("auto_scrape_enabled"),
	}

	if v := strings.TrimSpace(c.PostForm("scrape_interval")); v != "" {
		interval, err := strconv.Atoi(v)
		if err != nil {
			return req, fmt.Errorf("%w: scrape interval must be a number of seconds", websites.ErrInvalidWebsite)
		}
		req.ScrapeInterval = &interval
	}
	return req, nil
}

func (s *Server) handleWebsiteCreate(c *gin.Context) {
	w := websites.New("", "")
	w.ScrapeInterval = s.currentSettings().DefaultScrapeInterval

	req, err := websiteRequest(c)
	if err == nil {
		req.ToUpdate(w.Selectors).Apply(w)
		_, err = s.siteAPI.CreateWebsite(c.Request.Context(), w)
	}
	if err != nil {
		s.websiteFormError(c, w, false, err)
		return
	}

	redirectWithFlash(c, "/websites", flashSuccess, "Website added successfully!")
}

func (s *Server) handleWebsiteEdit(c *gin.Context) {
	id, ok := s.idParam(c)
	if !ok {
		return
	}
	w, err := s.websites.Get(id)
	if errors.Is(err, websites.ErrWebsiteNotFound) {
		s.renderError(c, http.StatusNotFound, "Website not found")
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	s.renderWebsiteForm(c, http.StatusOK, w, true, "")
}

func (s *Server) handleWebsiteUpdate(c *gin.Context) {
	id, ok := s.idParam(c)
	if !ok {
		return
	}
	current, err := s.websites.Get(id)
	if errors.Is(err, websites.ErrWebsiteNotFound) {
		s.renderError(c, http.StatusNotFound, "Website not found")
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}

	req, err := websiteRequest(c)
	if err == nil {
		_, err = s.siteAPI.UpdateWebsite(c.Request.Context(), id, req.ToUpdate(current.Selectors))
	}
	if err != nil {
		req.ToUpdate(current.Selectors).Apply(current)
		s.websiteFormError(c, current, true, err)
		return
	}

	redirectWithFlash(c, "/websites", flashSuccess, "Website updated successfully!")
}

// websiteFormError re-renders the form with the submitted values and the
// reason they were rejected.
func (s *Server) websiteFormError(c *gin.Context, w *websites.Website, editing bool, err error) {
	switch {
	case errors.Is(err, websites.ErrInvalidWebsite), errors.Is(err, websites.ErrDuplicateURL):
		s.renderWebsiteForm(c, http.StatusBadRequest, w, editing, err.Error())
	default:
		s.fail(c, err)
	}
}

func (s *Server) handleWebsiteDelete(c *gin.Context) {
	id, ok := s.idParam(c)
	if !ok {
		return
	}
	err := s.siteAPI.DeleteWebsite(c.Request.Context(), id)
	if errors.Is(err, websites.ErrWebsiteNotFound) {
		s.renderError(c, http.StatusNotFound, "Website not found")
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	redirectWithFlash(c, "/websites", flashSuccess, "Website deleted successfully!")
}

func (s *Server) handleScrape(c *gin.Context) {
	id, ok := s.idParam(c)
	if !ok {
		return
	}

	res, err := s.scraper.Scrape(c.Request.Context(), id)
	if errors.Is(err, websites.ErrWebsiteNotFound) {
		redirectWithFlash(c, "/websites", flashDanger, "Error: Website not found")
		return
	}
	if err != nil {
		redirectWithFlash(c, "/websites", flashDanger, "Error: "+err.Error())
		return
	}
	if !res.Success {
		msg := "Unknown error"
		if len(res.Errors) > 0 {
			msg = res.Errors[0]
		}
		redirectWithFlash(c, "/websites", flashDanger, "Error: "+msg)
		return
	}

	redirectWithFlash(c, "/websites", flashSuccess, fmt.Sprintf("Successfully scraped %d articles!", res.ArticlesScraped))
}

func (s *Server) handleScrapeAll(c *gin.Context) {
	summary := s.scraper.ScrapeAll(c.Request.Context())

	msg := fmt.Sprintf("Scraped %d articles from %d websites!", summary.TotalArticles, summary.WebsitesScraped)
	level := flashSuccess
	if len(summary.Errors) > 0 {
		msg = fmt.Sprintf("%s %d errors occurred during scraping.", msg, len(summary.Errors))
		level = flashWarning
	}
	redirectWithFlash(c, "/", level, msg)
}

// pageLink returns the current URL with its page parameter set to page.
func pageLink(c *gin.Context, page int) string {
	q := c.Request.URL.Query()
	q.Del("msg")
	q.Del("level")
	q.Set("page", strconv.Itoa(page))
	return c.Request.URL.Path + "?" + q.Encode()
}

// exportQuery returns the filter parameters of the current URL, for export
// links.
func exportQuery(c *gin.Context) string {
	q := url.Values{}
	for _, key := range []string{"website_id", "category", "sentiment", "search", "bookmarked"} {
		if v := c.Query(key); v != "" {
			q.Set(key, v)
		}
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

func (s *Server) handleNews(c *gin.Context) {
	filter, err := articles.FilterFromQuery(c)
	if err != nil {
		s.renderError(c, http.StatusBadRequest, err.Error())
		return
	}
	if c.Query("per_page") == "" {
		filter.PerPage = s.currentSettings().ItemsPerPage
	}

	page, err := s.articles.List(filter)
	if err != nil {
		s.fail(c, err)
		return
	}
	active := true
	sites, err := s.websites.List(websites.Filter{Active: &active})
	if err != nil {
		s.fail(c, err)
		return
	}
	categories, err := s.articles.Categories()
	if err != nil {
		s.fail(c, err)
		return
	}

	data := gin.H{
		"Title":       "News",
		"Articles":    page.Items,
		"Pagination":  page,
		"Websites":    sites,
		"Categories":  categories,
		"Sentiments":  []string{articles.Positive, articles.Neutral, articles.Negative},
		"WebsiteID":   c.Query("website_id"),
		"Category":    filter.Category,
		"Sentiment":   filter.Sentiment,
		"Search":      filter.Search,
		"ExportQuery": exportQuery(c),
		"Formats":     export.Formats,
	}
	if page.HasPrev() {
		data["PrevURL"] = pageLink(c, page.Page-1)
	}
	if page.HasNext() {
		data["NextURL"] = pageLink(c, page.Page+1)
	}
	s.render(c, http.StatusOK, "news", data)
}

func (s *Server) handleArticle(c *gin.Context) {
	id, ok := s.idParam(c)
	if !ok {
		return
	}
	a, err := s.articles.Get(id)
	if errors.Is(err, articles.ErrArticleNotFound) {
		s.renderError(c, http.StatusNotFound, "Article not found")
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}

	if !a.IsRead {
		if err := s.articles.MarkRead(id); err != nil {
			log.Error().Err(err).Str("article_id", id.String()).Msg("Failed to mark article read")
		} else {
			a.IsRead = true
		}
	}

	s.render(c, http.StatusOK, "article", gin.H{
		"Title":      a.Title,
		"Article":    a,
		"Paragraphs": paragraphs(a.Content),
	})
}

// paragraphs splits article text into its non-blank lines.
func paragraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(text, "\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (s *Server) handleBookmark(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("bad_request", "Invalid article ID"))
		return
	}

	bookmarked, err := s.articles.ToggleBookmark(id)
	if errors.Is(err, articles.ErrArticleNotFound) {
		c.JSON(http.StatusNotFound, errorResponse("not_found", err.Error()))
		return
	}
	if err != nil {
		log.Error().Err(err).Str("article_id", id.String()).Msg("Failed to toggle bookmark")
		c.JSON(http.StatusInternalServerError, errorResponse("internal_error", "Failed to update bookmark"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "bookmarked": bookmarked})
}

func (s *Server) handleExportPage(c *gin.Context) {
	sites, err := s.websites.List(websites.Filter{})
	if err != nil {
		s.fail(c, err)
		return
	}
	categories, err := s.articles.Categories()
	if err != nil {
		s.fail(c, err)
		return
	}
	s.render(c, http.StatusOK, "export", gin.H{
		"Title":      "Export",
		"Websites":   sites,
		"Categories": categories,
		"Sentiments": []string{articles.Positive, articles.Neutral, articles.Negative},
		"Formats":    export.Formats,
		"Limit":      s.exportLimit(0),
		"MaxLimit":   s.cfg.Export.MaxRecords,
	})
}

// exportLimit returns how many articles an export may contain: requested
// when positive, else export.DefaultMaxRecords, never above the
// configured maximum.
func (s *Server) exportLimit(requested int) int {
	limit := export.DefaultMaxRecords
	if requested > 0 {
		limit = requested
	}
	if s.cfg.Export.MaxRecords > 0 {
		limit = min(limit, s.cfg.Export.MaxRecords)
	}
	return limit
}

func (s *Server) handleExport(c *gin.Context) {
	format, err := export.ParseFormat(c.Param("format"))
	if err != nil {
		s.renderError(c, http.StatusNotFound, "Unknown export format")
		return
	}
	filter, err := articles.FilterFromQuery(c)
	if err != nil {
		s.renderError(c, http.StatusBadRequest, err.Error())
		return
	}
	requested, _ := strconv.Atoi(c.Query("limit"))

	items, err := s.articles.All(filter, s.exportLimit(requested))
	if err != nil {
		s.fail(c, err)
		return
	}

	now := time.Now()
	c.Header("Content-Type", format.ContentType())
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.Filename(format, now)))
	c.Status(http.StatusOK)
	if err := export.Write(c.Writer, format, items, now); err != nil {
		log.Error().Err(err).Str("format", string(format)).Msg("Export failed")
	}
}

func (s *Server) handleSchedules(c *gin.Context) {
	list, err := s.schedules.List(false)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.render(c, http.StatusOK, "schedules", gin.H{
		"Title":     "Schedules",
		"Schedules": schedules.Views(list, s.websites),
		"Scheduled": s.manager.Entries(),
	})
}

func (s *Server) handleScheduleToggle(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("bad_request", "Invalid schedule ID"))
		return
	}

	sched, err := s.manager.Toggle(id)
	if errors.Is(err, schedules.ErrScheduleNotFound) {
		c.JSON(http.StatusNotFound, errorResponse("not_found", err.Error()))
		return
	}
	if err != nil {
		log.Error().Err(err).Str("schedule_id", id.String()).Msg("Failed to toggle schedule")
		c.JSON(http.StatusInternalServerError, errorResponse("internal_error", "Failed to update schedule"))
		return
	}

	c.JSON(http.StatusOK, schedules.ToggleResponse{Success: true, IsActive: sched.Active})
}

func (s *Server) handleSchedulesRunAll(c *gin.Context) {
	ran, err := s.manager.RunAll(c.Request.Context())
	if err != nil {
		redirectWithFlash(c, "/schedules", flashDanger, "Error: "+err.Error())
		return
	}
	redirectWithFlash(c, "/schedules", flashSuccess, fmt.Sprintf("Ran %d schedules", ran))
}
