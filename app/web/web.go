// Package web implements the web server for HQEinOne: HTML views to browse and edit program records
// and a JSON API for the same operations
package web

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/didip/tollbooth/v8"
	"github.com/didip/tollbooth/v8/limiter"
	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/rest/logger"
	"github.com/go-pkgz/routegroup"

	"github.com/Stromnimick/HQEinOne/app/enums"
	"github.com/Stromnimick/HQEinOne/app/persistence"
	"github.com/Stromnimick/HQEinOne/app/records"
)

// loginAttempts is the number of password attempts per client and minute
const loginAttempts = 5

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Records defines record operations used by the web server, implemented by records.Service
type Records interface {
	CreateProgram(ctx context.Context, f records.ProgramFields) (records.Program, error)
	UpdateProgram(ctx context.Context, id int64, patch records.ProgramPatch) (records.Program, error)
	DeleteProgram(ctx context.Context, id int64) error
	GetProgram(ctx context.Context, id int64) (records.Program, error)
	ListPrograms(ctx context.Context) ([]records.Program, error)

	CreateRegulation(ctx context.Context, f records.RegulationFields) (records.RegulationVersion, error)
	UpdateRegulation(ctx context.Context, id int64, patch records.RegulationPatch) (records.RegulationVersion, error)
	DeleteRegulation(ctx context.Context, id int64) error
	GetRegulation(ctx context.Context, id int64) (records.RegulationVersion, error)
	ListRegulations(ctx context.Context) ([]records.RegulationVersion, error)
	ProgramRegulations(ctx context.Context, programID int64) ([]records.RegulationVersion, error)

	CreateReform(ctx context.Context, f records.ReformFields) (records.ReformProcedure, error)
	UpdateReform(ctx context.Context, id int64, patch records.ReformPatch) (records.ReformProcedure, error)
	DeleteReform(ctx context.Context, id int64) error
	GetReform(ctx context.Context, id int64) (records.ReformProcedure, error)
	ListReforms(ctx context.Context) ([]records.ReformProcedure, error)
	ProgramReforms(ctx context.Context, programID int64) ([]records.ReformProcedure, error)
	CoordinatorReforms(ctx context.Context, coordinatorID int64) ([]records.ReformProcedure, error)

	CreateCoordinator(ctx context.Context, f records.CoordinatorFields) (records.Coordinator, error)
	UpdateCoordinator(ctx context.Context, id int64, patch records.CoordinatorPatch) (records.Coordinator, error)
	DeleteCoordinator(ctx context.Context, id int64) error
	GetCoordinator(ctx context.Context, id int64) (records.Coordinator, error)
	ListCoordinators(ctx context.Context) ([]records.Coordinator, error)

	Dependents(ctx context.Context, entity enums.Entity, id int64) (persistence.Dependents, error)
	DeletePolicy() enums.DeletePolicy
}

// Server represents the web server
type Server struct {
	svc            Records
	templates      map[string]*template.Template
	baseURL        string // base URL path for reverse proxy (e.g., /hqe), empty for root
	version        string
	passwordHash   string                      // bcrypt hash for the shared password, empty to disable auth
	loginTTL       time.Duration               // auth cookie lifetime
	csrfProtection *http.CrossOriginProtection // csrf protection for POST endpoints
	loginLimiter   *limiter.Limiter            // password attempts per client ip
	writeLimiter   *limiter.Limiter            // JSON API writes per client ip
}

// Config holds server configuration
type Config struct {
	Records      Records
	BaseURL      string // base URL path for reverse proxy (e.g., /hqe), empty for root
	Version      string
	PasswordHash string        // bcrypt hash of the shared password (empty to disable)
	LoginTTL     time.Duration // auth cookie lifetime, defaults to 24h if not set
	WriteRate    float64       // max JSON API writes per second and client, defaults to 10
}

// New creates a new web server
func New(cfg Config) (*Server, error) {
	if cfg.Records == nil {
		return nil, errors.New("web server initialization failed: records service is required")
	}

	loginTTL := cfg.LoginTTL
	if loginTTL == 0 {
		loginTTL = 24 * time.Hour
	}

	writeRate := cfg.WriteRate
	if writeRate <= 0 {
		writeRate = 10
	}

	// five password attempts per client, then one more every 12 seconds
	loginLimiter := tollbooth.NewLimiter(loginAttempts/60.0, &limiter.ExpirableOptions{DefaultExpirationTTL: time.Hour}).
		SetBurst(loginAttempts).SetIPLookup(limiter.IPLookup{Name: "RemoteAddr"})
	loginLimiter.SetMessage("Zu viele Anmeldeversuche, bitte später erneut versuchen")
	writeLimiter := tollbooth.NewLimiter(writeRate, nil).SetIPLookup(limiter.IPLookup{Name: "RemoteAddr"})

	s := &Server{
		svc:            cfg.Records,
		baseURL:        strings.TrimSuffix(cfg.BaseURL, "/"),
		version:        cfg.Version,
		passwordHash:   cfg.PasswordHash,
		loginTTL:       loginTTL,
		csrfProtection: http.NewCrossOriginProtection(),
		loginLimiter:   loginLimiter,
		writeLimiter:   writeLimiter,
	}

	templates, err := s.parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("web server initialization failed: failed to parse HTML templates: %w", err)
	}
	s.templates = templates
	return s, nil
}

// Run starts the web server and blocks until ctx is canceled
func (s *Server) Run(ctx context.Context, address string) error {
	server := &http.Server{
		Addr:              address,
		Handler:           s.handler(),
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
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("web server failed: %w", err)
	}
	return nil
}

// handler returns the http.Handler with base URL wrapping applied
func (s *Server) handler() http.Handler {
	routes := s.routes()
	if s.baseURL == "" {
		return routes
	}

	mux := http.NewServeMux()
	// base URL without trailing slash redirects to the one with slash
	mux.HandleFunc(s.baseURL, func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, s.baseURL+"/", http.StatusMovedPermanently)
	})
	mux.Handle(s.baseURL+"/", http.StripPrefix(s.baseURL, routes))
	return mux
}

// routes returns the http.Handler with all routes configured
func (s *Server) routes() http.Handler {
	router := routegroup.New(http.NewServeMux())

	router.Use(
		rest.RealIP,
		rest.Recoverer(log.Default()),
		rest.Throttle(1000),
		rest.AppInfo("hqeinone", "stromnimick", s.version),
		rest.Ping,
		rest.Trace,
		rest.SizeLimit(64*1024),
		logger.New(logger.Log(log.Default()), logger.Prefix("[DEBUG]")).Handler,
	)

	// must be set before any routes are defined
	if s.passwordHash != "" {
		log.Printf("[INFO] authentication enabled for web UI")
		router.Use(s.authMiddleware)
		router.HandleFunc("GET /login", s.handleLoginForm)
		router.With(s.csrfProtection.Handler, tollbooth.HTTPMiddleware(s.loginLimiter)).HandleFunc("POST /login", s.handleLogin)
		router.HandleFunc("GET /logout", s.handleLogout)
	}

	programs, regulations, reforms, coordinators := s.resources()

	router.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, s.url("/programs"), http.StatusSeeOther)
	})
	router.Group().Route(func(pages *routegroup.Bundle) {
		pages.Use(s.csrfProtection.Handler)
		programs.mountPages(pages)
		regulations.mountPages(pages)
		reforms.mountPages(pages)
		coordinators.mountPages(pages)
		pages.HandleFunc("GET /programs/{id}", s.handleProgramDetails)
	})

	router.Mount("/api/v1").Route(func(api *routegroup.Bundle) {
		api.Use(rest.NoCache, s.csrfProtection.Handler)
		programs.mountAPI(api)
		regulations.mountAPI(api)
		reforms.mountAPI(api)
		coordinators.mountAPI(api)
		api.HandleFunc("GET /programs/{id}/regulations", s.handleAPIProgramRegulations)
		api.HandleFunc("GET /programs/{id}/reforms", s.handleAPIProgramReforms)
		api.HandleFunc("GET /coordinators/{id}/reforms", s.handleAPICoordinatorReforms)
		api.HandleFunc("GET /schema/{entity}", s.handleAPISchema)
	})

	fsys, err := fs.Sub(staticFS, "static")
	if err != nil {
		log.Printf("[ERROR] failed to create static file system: %v", err)
		router.Handle("GET /static/", http.FileServer(http.FS(staticFS)))
	} else {
		router.HandleFiles("/static/", http.FS(fsys))
	}

	return router
}

// render renders a page template with the given status
func (s *Server) render(w http.ResponseWriter, status int, page string, data any) {
	tmpl, ok := s.templates[page]
	if !ok {
		log.Printf("[WARN] template %s not found", page)
		http.Error(w, "Template not found", http.StatusInternalServerError)
		return
	}

	buf := new(bytes.Buffer)
	if err := tmpl.ExecuteTemplate(buf, "base", data); err != nil {
		log.Printf("[WARN] failed to execute template %s: %v", page, err)
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		log.Printf("[WARN] failed to write response: %v", err)
	}
}

// pages rendered inside base.html
var pages = []string{"programs", "program", "regulations", "reforms", "coordinators", "error"}

// parseTemplates parses every page together with the base layout, login page is standalone
func (s *Server) parseTemplates() (map[string]*template.Template, error) {
	templates := make(map[string]*template.Template)

	funcMap := template.FuncMap{
		"url":   s.url,
		"date":  humanDate,
		"slots": slots,
		"inc":   func(i int) int { return i + 1 },
	}

	for _, page := range pages {
		tmpl, err := template.New("base.html").Funcs(funcMap).ParseFS(templatesFS,
			"templates/base.html", "templates/"+page+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", page, err)
		}
		templates[page] = tmpl
	}

	login, err := template.New("login.html").Funcs(funcMap).ParseFS(templatesFS, "templates/login.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse login template: %w", err)
	}
	templates["login"] = login

	return templates, nil
}

// template helper functions

// humanDate formats a date the German way, empty for zero time
func humanDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02.01.2006")
}

// slots pads milestones to n positions for form rendering
func slots(ms []records.MilestoneFields, n int) []records.MilestoneFields {
	res := make([]records.MilestoneFields, n)
	copy(res, ms)
	return res
}

// url prepends the base URL to a path for reverse proxy support
func (s *Server) url(path string) string {
	return s.baseURL + path
}

// cookiePath returns the cookie path with base URL support
func (s *Server) cookiePath() string {
	if s.baseURL == "" {
		return "/"
	}
	return s.baseURL + "/"
}

// shortVersion extracts a short version string from full version
// for version like "v1.7.0-abc1234-20241225", returns "v1.7.0"
func shortVersion(fullVer string) string {
	if fullVer == "" || fullVer == "unknown" {
		return fullVer
	}
	if idx := strings.Index(fullVer, "-"); idx > 0 {
		return fullVer[:idx]
	}
	return fullVer
}
