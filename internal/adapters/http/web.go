package web

import (
	"context"
	"crypto/rand"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"caretrack/internal/adapters/email"
	"caretrack/internal/adapters/http/middleware"
	"caretrack/internal/adapters/http/perf"
	accountStore "caretrack/internal/adapters/storage/account"
	programStore "caretrack/internal/adapters/storage/program"
	"caretrack/internal/config"
	"caretrack/internal/domain/account"
)

// Pinger reports database reachability for /healthz.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Stores holds all storage dependencies.
type Stores struct {
	AccountStore accountStore.Store
	ProgramStore programStore.Store
	DB           Pinger
}

// Server is the caretrack HTTP application.
type Server struct {
	cfg       *config.Config
	stores    *Stores
	sessions  *middleware.SessionStore
	collector *perf.Collector
	sender    email.Sender
	validate  *validator.Validate
	pages     map[string]*template.Template
	router    chi.Router
	now       func() time.Time
}

// NewMux wires HTTP handlers for the app.
// PRE: cfg has been validated by config.Load; sender may be nil to disable report email
// POST: Returns a ready Server; templates are parsed up front
func NewMux(cfg *config.Config, s *Stores, collector *perf.Collector, sender email.Sender) (*Server, error) {
	pages, err := parsePages()
	if err != nil {
		return nil, err
	}
	key, err := csrfKey(cfg)
	if err != nil {
		return nil, err
	}

	srv := &Server{
		cfg:       cfg,
		stores:    s,
		sessions:  middleware.NewSessionStore(cfg.Auth.SessionTTL.Std()),
		collector: collector,
		sender:    sender,
		validate:  requestValidator,
		pages:     pages,
		now:       time.Now,
	}
	srv.router = srv.routes(key)
	return srv, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Sessions exposes the session store so the caller can sweep expired sessions.
func (s *Server) Sessions() *middleware.SessionStore {
	return s.sessions
}

func (s *Server) routes(csrfKey []byte) chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Timing(s.collector, s.cfg.Server.SlowRequest.Std()))
	r.Use(middleware.RateLimit(middleware.NewRateLimiter(s.cfg.Server.RateLimit, time.Second)))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CSRF(csrfKey, s.cfg.Auth.SecureCookies))
	r.Use(middleware.Auth(s.sessions))

	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS()))))
	r.Get("/healthz", s.handleHealthz)
	r.Get("/login", s.handleLoginForm)
	r.Post("/login", s.handleLogin)
	r.Post("/logout", s.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		admin := middleware.RequireRole(account.RoleAdmin)

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		})
		r.Get("/dashboard", s.handleDashboard)

		r.Get("/programs", s.handleListPrograms)
		r.With(admin).Get("/programs/new", s.handleNewProgramForm)
		r.With(admin).Post("/programs", s.handleCreateProgram)

		r.Route("/programs/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetProgram)
			r.With(admin).Patch("/", s.handleUpdateProgram)
			r.With(admin).Post("/edit", s.handleUpdateProgram)
			r.With(admin).Delete("/", s.handleDeleteProgram)
			r.With(admin).Post("/delete", s.handleDeleteProgram)
			r.With(admin).Post("/fields", s.handleAddField)

			r.Get("/data", s.handleListData)
			r.Post("/data", s.handleSubmitData)
			r.Get("/data/{rowID}", s.handleGetData)
			r.With(admin).Delete("/data/{rowID}", s.handleDeleteData)
			r.With(admin).Post("/data/{rowID}/delete", s.handleDeleteData)
			r.With(admin).Post("/import", s.handleImport)

			r.Get("/report", s.handleReport)
			r.Get("/report.xlsx", s.handleReportXLSX)
			r.With(admin).Post("/report/email", s.handleEmailReport)
		})

		r.Route("/api/admin", func(r chi.Router) {
			r.Use(admin)
			r.Get("/perf", s.handlePerf)
			r.Get("/accounts", s.handleListAccounts)
			r.Post("/accounts", s.handleCreateAccount)
		})
	})
	return r
}

// csrfKey returns the configured key, or a random one outside production.
func csrfKey(cfg *config.Config) ([]byte, error) {
	if key := cfg.Auth.CSRFKey(); key != nil {
		return key, nil
	}
	if cfg.IsProduction() {
		return nil, fmt.Errorf("CARETRACK_CSRF_KEY is required in production")
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate CSRF key: %w", err)
	}
	slog.Warn("csrf_key_generated", "reason", "CARETRACK_CSRF_KEY not set; forms will not survive a restart")
	return key, nil
}
