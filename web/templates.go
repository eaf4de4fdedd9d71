package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed templates/*.html
var templateFS embed.FS

// pageNames are the templates rendered inside the layout.
var pageNames = []string{
	"dashboard", "websites", "website_form", "news", "article",
	"export", "schedules", "error",
}

type templates struct {
	pages map[string]*template.Template
}

// titleCase upper-cases the first letter of each word. Casers are stateful,
// so each call gets its own.
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

var templateFuncs = template.FuncMap{
	"datetime": func(v any) string { return formatTime(v, "2006-01-02 15:04") },
	"date":     func(v any) string { return formatTime(v, "2006-01-02") },
	"title":    titleCase,
	"percent": func(part, total int) int {
		if total == 0 {
			return 0
		}
		return part * 100 / total
	},
	"score":   func(f float64) string { return fmt.Sprintf("%.2f", f) },
	"seconds": func(n int) string { return (time.Duration(n) * time.Second).String() },
	"add":     func(a, b int) int { return a + b },
}

func formatTime(v any, layout string) string {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return ""
		}
		return t.Local().Format(layout)
	case *time.Time:
		if t == nil || t.IsZero() {
			return ""
		}
		return t.Local().Format(layout)
	}
	return ""
}

func parseTemplates() (*templates, error) {
	t := &templates{pages: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		tmpl, err := template.New(name).Funcs(templateFuncs).ParseFS(templateFS,
			"templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		t.pages[name] = tmpl
	}
	return t, nil
}

// render writes page inside the layout. data may be nil. The flash message
// of the request, if any, is added as .Flash.
func (s *Server) render(c *gin.Context, status int, page string, data gin.H) {
	tmpl, ok := s.pages.pages[page]
	if !ok {
		log.Error().Str("page", page).Msg("Unknown template")
		c.String(http.StatusInternalServerError, "Internal server error")
		return
	}
	if data == nil {
		data = gin.H{}
	}
	data["Page"] = page
	if _, ok := data["Flash"]; !ok {
		data["Flash"] = flashFromQuery(c)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		log.Error().Err(err).Str("page", page).Msg("Failed to render template")
		c.String(http.StatusInternalServerError, "Internal server error")
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}

func (s *Server) renderError(c *gin.Context, status int, message string) {
	s.render(c, status, "error", gin.H{"Title": http.StatusText(status), "Error": message, "Status": status})
}
