// Package web serves change lists over HTTP. Every endpoint is driven
// by the same query string parameters the admin UI uses, so a browser,
// curl, or a frontend can filter, search, order, and paginate with
// plain links.
package web

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/arthur-debert/changelist/changelist"
	"github.com/arthur-debert/changelist/export"
	"github.com/arthur-debert/changelist/formats"
)

// Server exposes a site's change lists over HTTP.
type Server struct {
	site   *changelist.Site
	logger *slog.Logger
	engine *gin.Engine
}

// NewServer builds the HTTP server for a site. A nil logger falls back
// to slog's default.
func NewServer(site *changelist.Site, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	s := &Server{site: site, logger: logger, engine: engine}
	engine.Use(gin.Recovery())
	engine.Use(s.requestLogger())
	s.routes()
	return s
}

// Handler returns the server as an http.Handler, for tests and for
// mounting under another mux.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until the listener fails.
func (s *Server) Run(addr string) error {
	s.logger.Info("serving change lists", "addr", addr)
	return s.engine.Run(addr)
}

func (s *Server) routes() {
	admin := s.engine.Group("/admin")
	admin.GET("", s.handleIndex)
	admin.GET("/:model", s.handleChangeList)
	admin.GET("/:model/filters", s.handleFilters)
	admin.GET("/:model/dates", s.handleDates)
	admin.GET("/:model/export", s.handleExport)
}

// requestLogger tags each request with an id and logs its outcome.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.NewString()
		c.Header("X-Request-ID", requestID)

		start := time.Now()
		c.Next()

		s.logger.Info("request",
			"id", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"query", c.Request.URL.RawQuery,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

// handleIndex lists the registered models.
func (s *Server) handleIndex(c *gin.Context) {
	type entry struct {
		Name    string `json:"name"`
		Verbose string `json:"verbose"`
		URL     string `json:"url"`
	}
	admins := s.site.Admins()
	entries := make([]entry, 0, len(admins))
	for _, a := range admins {
		m := a.Model()
		entries = append(entries, entry{
			Name:    m.Table,
			Verbose: m.VerbosePlural,
			URL:     "/admin/" + m.Table,
		})
	}
	c.IndentedJSON(http.StatusOK, entries)
}

// adminOr404 resolves the model path segment, writing the 404 itself
// when it misses.
func (s *Server) adminOr404(c *gin.Context) (*changelist.ModelAdmin, bool) {
	admin, ok := s.site.Admin(c.Param("model"))
	if !ok {
		c.IndentedJSON(http.StatusNotFound, gin.H{"message": "unknown model " + c.Param("model")})
		return nil, false
	}
	return admin, true
}

// changeListOrError builds the change list, mapping failures the way
// the admin view does: bad lookup values redirect back with the error
// flag set (so a broken link degrades to the plain list), and repeat
// failures or disallowed lookups become client errors.
func (s *Server) changeListOrError(c *gin.Context, admin *changelist.ModelAdmin) (*changelist.ChangeList, bool) {
	query := c.Request.URL.Query()
	cl, err := admin.ChangeList(c.Request.Context(), query)
	if err == nil {
		return cl, true
	}

	if errors.Is(err, changelist.ErrDisallowedLookup) {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return nil, false
	}
	var lookupErr *changelist.IncorrectLookupParameters
	if errors.As(err, &lookupErr) {
		if query.Has(changelist.ErrorFlag) {
			c.IndentedJSON(http.StatusBadRequest, gin.H{"message": "invalid lookup parameters"})
			return nil, false
		}
		c.Redirect(http.StatusFound, c.Request.URL.Path+"?"+changelist.ErrorFlag+"=1")
		return nil, false
	}

	s.logger.Error("change list failed",
		"model", admin.Model().Table,
		"query", c.Request.URL.RawQuery,
		"error", err)
	c.IndentedJSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
	return nil, false
}

// handleChangeList returns one page of results as JSON.
func (s *Server) handleChangeList(c *gin.Context) {
	admin, ok := s.adminOr404(c)
	if !ok {
		return
	}
	cl, ok := s.changeListOrError(c, admin)
	if !ok {
		return
	}

	page, err := formats.NewPage(cl)
	if err != nil {
		s.logger.Error("failed to render page", "error", err)
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
		return
	}
	urls := make([]string, len(cl.ResultList))
	for i, row := range cl.ResultList {
		urls[i] = c.Request.URL.Path + "/" + cl.URLForResult(row)
	}
	c.IndentedJSON(http.StatusOK, gin.H{
		"page":        page,
		"filtered":    cl.QuerySet.IsFiltered(),
		"result_urls": urls,
	})
}

// handleFilters returns the sidebar filter blocks as an HTML fragment.
func (s *Server) handleFilters(c *gin.Context) {
	admin, ok := s.adminOr404(c)
	if !ok {
		return
	}
	cl, ok := s.changeListOrError(c, admin)
	if !ok {
		return
	}

	html, err := cl.RenderFilters()
	if err != nil {
		s.logger.Error("failed to render filters", "error", err)
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

// handleDates returns the date hierarchy drilldown as JSON.
func (s *Server) handleDates(c *gin.Context) {
	admin, ok := s.adminOr404(c)
	if !ok {
		return
	}
	cl, ok := s.changeListOrError(c, admin)
	if !ok {
		return
	}

	nav, err := cl.DateHierarchy(c.Request.Context())
	if err != nil {
		var lookupErr *changelist.IncorrectLookupParameters
		if errors.As(err, &lookupErr) {
			c.IndentedJSON(http.StatusBadRequest, gin.H{"message": "invalid date parameters"})
			return
		}
		s.logger.Error("failed to build date hierarchy", "error", err)
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
		return
	}

	choices := make([]choiceDTO, len(nav.Choices))
	for i, ch := range nav.Choices {
		choices[i] = choiceDTO{Display: ch.Display, QueryString: ch.QueryString, Selected: ch.Selected}
	}
	var back *choiceDTO
	if nav.Back != nil {
		back = &choiceDTO{Display: nav.Back.Display, QueryString: nav.Back.QueryString}
	}
	c.IndentedJSON(http.StatusOK, gin.H{
		"show":    nav.Show,
		"back":    back,
		"choices": choices,
	})
}

// choiceDTO is one filter or drilldown link in JSON responses.
type choiceDTO struct {
	Display     string `json:"display"`
	QueryString string `json:"query_string"`
	Selected    bool   `json:"selected"`
}

// formatMIMETypes maps format names to response content types.
var formatMIMETypes = map[string]string{
	"csv":      "text/csv; charset=utf-8",
	"json":     "application/json; charset=utf-8",
	"yaml":     "application/x-yaml; charset=utf-8",
	"markdown": "text/markdown; charset=utf-8",
	"table":    "text/plain; charset=utf-8",
}

// handleExport streams the full filtered result set as a download. The
// format query parameter picks the page format; it is consumed here,
// never treated as a lookup.
func (s *Server) handleExport(c *gin.Context) {
	admin, ok := s.adminOr404(c)
	if !ok {
		return
	}

	query := c.Request.URL.Query()
	formatName := query.Get("format")
	query.Del("format")
	c.Request.URL.RawQuery = query.Encode()

	cl, ok := s.changeListOrError(c, admin)
	if !ok {
		return
	}

	data, err := export.Generate(c.Request.Context(), cl, export.Options{Format: formatName})
	if err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	mime := formatMIMETypes[data.Format]
	if mime == "" {
		mime = "application/octet-stream"
	}
	c.Header("Content-Disposition", `attachment; filename="`+data.Filename+`"`)
	c.Data(http.StatusOK, mime, []byte(data.Content))
}
