// Package web serves the change order editor over HTTP.
package web

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/changeorders/internal/config"
	"github.com/JonMunkholm/changeorders/internal/fieldstore"
	"github.com/JonMunkholm/changeorders/internal/host"
	"github.com/JonMunkholm/changeorders/internal/metrics"
	mw "github.com/JonMunkholm/changeorders/internal/web/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP host for editor sessions.
type Server struct {
	cfg      *config.Config
	sessions *host.Manager
	store    fieldstore.Store
	metrics  *metrics.Metrics
	router   *chi.Mux
	server   *http.Server
}

// NewServer creates a Server. m may be nil, in which case /metrics is not
// mounted.
func NewServer(cfg *config.Config, sessions *host.Manager, store fieldstore.Store, m *metrics.Metrics) *Server {
	s := &Server{
		cfg:      cfg,
		sessions: sessions,
		store:    store,
		metrics:  m,
		router:   chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.ClientIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	}
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	if s.metrics != nil && s.cfg.Metrics.Enabled {
		s.router.Handle("/metrics", s.metrics.Handler())
	}

	requests, opens := s.rateLimits()

	s.router.Group(func(r chi.Router) {
		r.Use(requests...)

		// Pages
		r.Get("/", s.handleIndex)
		r.Get("/fields/open", s.handleOpenByQuery)

		// Every hit allocates a session, so opening has its own tighter limit.
		r.With(opens...).Get("/fields/{fieldID}", s.handleOpenField)

		// Editor sessions
		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Get("/", s.handleEditor)
			r.Delete("/", s.handleCloseSession)
			r.Post("/close", s.handleCloseSession)
			r.Post("/orders", s.handleAdd)
			r.Post("/refresh", s.handleRefresh)
			r.Post("/reload", s.handleReload)
			r.Post("/rows/{rowID}/amount", s.handleAmount)
			r.Post("/rows/{rowID}/status", s.handleStatus)
			r.Post("/rows/{rowID}/delete", s.handleDelete)
		})

		// API routes
		r.Route("/api", func(r chi.Router) {
			r.Use(mw.APIKeyAuth(&s.cfg.Security))
			r.Get("/fields", s.handleListFields)
			r.Get("/fields/{fieldID}", s.handleFieldValue)
			r.Get("/sessions/{sessionID}/output", s.handleOutput)
		})
	})
}

// rateLimits builds the general and the session-open limiters. Both are
// empty when rate limiting is disabled.
func (s *Server) rateLimits() (requests, opens []func(http.Handler) http.Handler) {
	if !s.cfg.Rate.Enabled {
		return nil, nil
	}

	general := mw.NewRateLimiter("requests", s.cfg.Rate.RequestsPerMinute)
	open := mw.NewRateLimiter("open", s.cfg.Rate.OpenPerMinute)
	if s.metrics != nil {
		count := func(name string) { s.metrics.RateLimited.WithLabelValues(name).Inc() }
		general.OnReject = count
		open.OnReject = count
	}
	return []func(http.Handler) http.Handler{general.Middleware},
		[]func(http.Handler) http.Handler{open.Middleware}
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(csp bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Prevent MIME type sniffing
			w.Header().Set("X-Content-Type-Options", "nosniff")

			// Prevent clickjacking
			w.Header().Set("X-Frame-Options", "DENY")

			// Pages carry their own inline styles and no scripts
			if csp {
				w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; form-action 'self'")
			}

			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

			next.ServeHTTP(w, r)
		})
	}
}
