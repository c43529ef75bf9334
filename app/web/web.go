// Package web implements the web dashboard for the job tracker
package web

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/didip/tollbooth/v8"
	"github.com/didip/tollbooth/v8/limiter"
	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/rest/logger"
	"github.com/go-pkgz/routegroup"

	"jobtrack/app/store"
	"jobtrack/app/web/enums"
)

//go:embed templates/*.html templates/partials/*.html
var templatesFS embed.FS

//go:embed static/*
var staticFS embed.FS

// importLimiter throttles CSV imports, the only endpoint taking bulk input
var importLimiter = tollbooth.NewLimiter(10, &limiter.ExpirableOptions{DefaultExpirationTTL: time.Minute})

// Server represents the web server
type Server struct {
	store          *store.Store
	templates      map[string]*template.Template
	csrfProtection *http.CrossOriginProtection // csrf protection for POST endpoints
	peekClient     *http.Client                // client for fetching posting page titles
	version        string
}

// Config holds server configuration
type Config struct {
	Store       *store.Store
	Version     string
	PeekTimeout time.Duration // timeout for posting page title fetches, defaults to 10s
}

// TemplateData holds data for templates
type TemplateData struct {
	Records     []store.JobRecord
	Totals      store.Totals
	Search      string
	FilterMode  enums.FilterMode
	Theme       enums.Theme
	CurrentYear int
	Version     string
	IsOOB       bool // for OOB template rendering
}

// New creates a new web server
func New(cfg Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("web server initialization failed: Store is required")
	}

	peekTimeout := cfg.PeekTimeout
	if peekTimeout == 0 {
		peekTimeout = 10 * time.Second
	}

	s := &Server{
		store:          cfg.Store,
		csrfProtection: http.NewCrossOriginProtection(),
		peekClient:     &http.Client{Timeout: peekTimeout},
		version:        cfg.Version,
	}

	templates, err := s.parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("web server initialization failed: failed to parse HTML templates: %w", err)
	}
	s.templates = templates

	return s, nil
}

// Run starts the web server
func (s *Server) Run(ctx context.Context, address string) error {
	server := &http.Server{
		Addr:              address,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("[WARN] failed to shutdown server: %v", err)
		}
	}()

	log.Printf("[INFO] starting web server on %s", address)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("web server failed: %w", err)
	}
	return nil
}

// routes returns the http.Handler with all routes configured
func (s *Server) routes() http.Handler {
	router := routegroup.New(http.NewServeMux())

	// global middleware - applied to all routes
	router.Use(
		rest.RealIP,
		rest.Recoverer(log.Default()),
		rest.Throttle(1000),
		rest.AppInfo("jobtrack", "umputun", s.version),
		rest.Ping,
		rest.Trace,
		rest.SizeLimit(1024*1024), // 1MB max request size, covers CSV imports
		logger.New(logger.Log(log.Default()), logger.Prefix("[DEBUG]")).Handler,
	)

	// dashboard and export
	router.HandleFunc("GET /", s.handleDashboard)
	router.HandleFunc("GET /export", s.handleExport)

	// api routes with grouping (HTMX endpoints)
	router.Mount("/api").Route(func(api *routegroup.Bundle) {
		api.Use(rest.NoCache)             // prevent caching of API responses
		api.Use(s.csrfProtection.Handler) // CSRF protection for POST endpoints

		api.HandleFunc("GET /records", s.handleRecordsPartial)
		api.HandleFunc("POST /records", s.handleAddRecord)
		api.HandleFunc("POST /records/{id}/toggle", s.handleToggleRecord)
		api.HandleFunc("POST /records/{id}/delete", s.handleDeleteRecord)
		api.HandleFunc("POST /clear", s.handleClear)
		api.With(tollbooth.HTTPMiddleware(importLimiter)).HandleFunc("POST /import", s.handleImport)
		api.HandleFunc("POST /filter-toggle", s.handleFilterToggle)
		api.HandleFunc("POST /theme", s.handleThemeToggle)
	})

	// JSON API for CLI/programmatic access
	router.Mount("/api/v1").Route(func(api *routegroup.Bundle) {
		api.Use(rest.NoCache)
		api.HandleFunc("GET /status", s.handleAPIStatus)
		api.HandleFunc("GET /records", s.handleAPIRecords)
		api.HandleFunc("POST /records", s.handleAPIAddRecord)
		api.HandleFunc("POST /records/{id}/toggle", s.handleAPIToggleRecord)
		api.HandleFunc("DELETE /records/{id}", s.handleAPIDeleteRecord)
		api.HandleFunc("DELETE /records", s.handleAPIClear)
		api.With(tollbooth.HTTPMiddleware(importLimiter)).HandleFunc("POST /import", s.handleAPIImport)
		api.HandleFunc("GET /peek", s.handleAPIPeek)
	})

	// static files with proper error handling
	fsys, err := fs.Sub(staticFS, "static")
	if err != nil {
		log.Printf("[ERROR] failed to create static file system: %v", err)
		router.Handle("GET /static/", http.FileServer(http.FS(staticFS)))
	} else {
		router.HandleFiles("/static/", http.FS(fsys))
	}

	return router
}

// render renders a template
func (s *Server) render(w http.ResponseWriter, page, tmplName string, data any) {
	tmpl, ok := s.templates[page]
	if !ok {
		log.Printf("[WARN] template %s not found", page)
		http.Error(w, "Template not found", http.StatusInternalServerError)
		return
	}

	buf := new(bytes.Buffer)
	if err := tmpl.ExecuteTemplate(buf, tmplName, data); err != nil {
		log.Printf("[WARN] failed to execute template: %v", err)
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		log.Printf("[WARN] failed to write response: %v", err)
	}
}

// parseTemplates parses all templates
func (s *Server) parseTemplates() (map[string]*template.Template, error) {
	templates := make(map[string]*template.Template)

	funcMap := template.FuncMap{
		"humanDate": s.humanDate,
		"truncate":  s.truncate,
	}

	// parse base template with all partials
	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templatesFS,
		"templates/base.html", "templates/dashboard.html", "templates/partials/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse base template: %w", err)
	}
	templates["base.html"] = base

	// parse partials separately for HTMX requests
	partials, err := template.New("records.html").Funcs(funcMap).ParseFS(templatesFS,
		"templates/partials/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse partials: %w", err)
	}
	templates["partials/records.html"] = partials

	return templates, nil
}

// newTemplateData creates a TemplateData with common fields populated from request
func (s *Server) newTemplateData(r *http.Request) TemplateData {
	return TemplateData{
		FilterMode: s.getFilterMode(r),
		Theme:      s.getTheme(r),
		Version:    s.version,
	}
}

func (s *Server) getTheme(r *http.Request) enums.Theme {
	cookie, err := r.Cookie("theme")
	if err != nil {
		return enums.ThemeDark // default to dark when no cookie
	}
	theme, err := enums.ParseTheme(cookie.Value)
	if err != nil {
		log.Printf("[WARN] invalid theme %q: %v", cookie.Value, err)
		return enums.ThemeDark
	}
	return theme
}

// getFilterMode gets the filter mode from cookie or defaults to "all"
func (s *Server) getFilterMode(r *http.Request) enums.FilterMode {
	cookie, err := r.Cookie("filter-mode")
	if err != nil {
		return enums.FilterModeAll
	}
	mode, err := enums.ParseFilterMode(cookie.Value)
	if err != nil {
		log.Printf("[WARN] invalid filter mode %q: %v", cookie.Value, err)
		return enums.FilterModeAll
	}
	return mode
}

// setFilterCookie sets the filter mode cookie
func (s *Server) setFilterCookie(w http.ResponseWriter, mode enums.FilterMode) {
	http.SetCookie(w, &http.Cookie{
		Name:     "filter-mode",
		Value:    mode.String(),
		Path:     "/",
		MaxAge:   365 * 24 * 60 * 60, // 1 year
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// setThemeCookie sets the theme cookie
func (s *Server) setThemeCookie(w http.ResponseWriter, theme enums.Theme) {
	http.SetCookie(w, &http.Cookie{
		Name:     "theme",
		Value:    theme.String(),
		Path:     "/",
		MaxAge:   365 * 24 * 60 * 60, // 1 year
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// template helper functions

func (s *Server) humanDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("Jan 2, 2006")
}

func (s *Server) truncate(str string, n int) string {
	if len(str) <= n {
		return str
	}
	return str[:n] + "..."
}
