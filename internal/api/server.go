package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/kilohana/platform/internal/api/handler"
	"github.com/kilohana/platform/internal/api/middleware"
	"github.com/kilohana/platform/internal/config"
	"github.com/kilohana/platform/internal/core"
)

// NewServer assembles the router and returns an http.Server ready to listen.
// ready is consulted by the readiness probe, typically the database ping.
func NewServer(cfg *config.Config, logger zerolog.Logger, services *core.Services, ready func(context.Context) error) *http.Server {
	secure := !cfg.DevMode

	auth := handler.NewAuthHandler(services, secure, logger)
	oauth := handler.NewOAuthHandler(services.OAuth, services.Session, cfg.BaseURL, secure, logger)
	orgs := handler.NewOrgHandler(services.Org)
	entries := handler.NewEntryHandler(services.Entry)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(middleware.CORS(cfg.CORSOrigins))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		if err := ready(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.SessionAuth(services.Session, secure))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", auth.Register)
			r.Post("/login", auth.Login)
			r.Post("/logout", auth.Logout)
			r.Get("/session", auth.Session)

			r.Get("/google/authorize", oauth.Authorize)
			r.Get("/google/callback", oauth.Callback)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)

			r.Get("/orgs/{slug}", orgs.Get)

			r.Post("/entries", entries.Create)
			r.Get("/entries", entries.List)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin)

			r.Get("/orgs", orgs.List)
		})
	})

	return &http.Server{
		Addr:              cfg.HTTPListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
