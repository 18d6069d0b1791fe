package handler

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ddevcap/mcu-rankings/api/middleware"
	"github.com/ddevcap/mcu-rankings/catalog"
	"github.com/ddevcap/mcu-rankings/score"
	"github.com/ddevcap/mcu-rankings/session"
	"github.com/ddevcap/mcu-rankings/static"
)

// ParseTemplates parses the embedded page templates for gin's HTML renderer.
func ParseTemplates() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"modifiers": func() []string {
			return []string{score.NoModifier, score.Plus, score.Minus}
		},
		"modifierLabel": func(m string) string {
			return fallback(m, "none")
		},
		"phaseName": func(p int) string {
			return "Phase " + strconv.Itoa(p)
		},
	}).ParseFS(static.Templates, "templates/*.tmpl")
}

// page is the data of every rendered template.
type page struct {
	Title string
	State session.State
	Admin bool
	Theme score.Theme
	// Path is where forms on the page return to.
	Path string

	LoginError string
	// Message and Retry describe a failed load or write on error.tmpl.
	Message string
	Retry   string

	Catalog *catalog.View
	Detail  *catalog.Detail
	Form    catalog.EditForm
	Errors  map[string]string
}

func newPage(c *gin.Context, title string) page {
	s := sessionFromCtx(c)
	return page{
		Title: title,
		State: session.StateOf(s),
		Admin: s.CanEdit(),
		Theme: themeFromCtx(c),
		Path:  c.Request.URL.RequestURI(),
	}
}

// ShowGate reports whether the sign-in prompt covers the page.
func (p page) ShowGate() bool { return p.State == session.Unauthenticated }

// renderLoadFailed shows the failed-to-load page with a Retry link back to
// the page that failed.
func renderLoadFailed(c *gin.Context, p page, err error) {
	slog.Error("load failed",
		"request_id", c.GetString(middleware.ContextKeyRequestID),
		"path", c.Request.URL.Path,
		"error", err,
	)
	p.Title = "Failed to load"
	p.Message = loadFailedMessage
	p.Retry = p.Path
	c.HTML(http.StatusBadGateway, "error.tmpl", p)
}

func renderNotFound(c *gin.Context, p page) {
	p.Title = "Not found"
	p.Message = "Title not found"
	c.HTML(http.StatusNotFound, "error.tmpl", p)
}

// renderWriteFailed shows the raw backend message of a failed edit. Nothing
// was changed locally, the user goes back to the page as stored.
func renderWriteFailed(c *gin.Context, p page, err error) {
	var ve *catalog.ValidationError
	switch {
	case errors.As(err, &ve):
		p.Title = "Invalid input"
		p.Message = ve.Message
		c.HTML(http.StatusBadRequest, "error.tmpl", p)
	case errors.Is(err, catalog.ErrNotFound):
		renderNotFound(c, p)
	default:
		slog.Warn("write failed",
			"request_id", c.GetString(middleware.ContextKeyRequestID),
			"path", c.Request.URL.Path,
			"error", err,
		)
		p.Title = "Update failed"
		p.Message = writeFailedMessage(err)
		c.HTML(http.StatusBadGateway, "error.tmpl", p)
	}
}

// returnPath accepts only local absolute paths so forms cannot redirect
// off-site.
func returnPath(s, def string) string {
	if !strings.HasPrefix(s, "/") || strings.HasPrefix(s, "//") || strings.HasPrefix(s, "/\\") {
		return def
	}
	return s
}
