package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sitecontact/backend/internal/metrics"
	"github.com/sitecontact/backend/pkg/auth"
)

// RouterConfig wires handlers and middleware into the HTTP router.
type RouterConfig struct {
	Handler  *Handler
	Contact  *ContactHandler
	Throttle *Throttle
	// Metrics serves /metrics when non-nil.
	Metrics http.Handler

	AllowedOrigins []string
	// AdminAPIKey enables /api/admin routes when non-empty.
	AdminAPIKey string
}

// NewRouter builds the chi router with the standard middleware stack.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(metrics.HTTPMetrics)
	r.Use(RequestLogger)
	r.Use(SecurityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed")
	})

	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		if cfg.Throttle != nil {
			r.Use(cfg.Throttle.Middleware)
		}

		r.Get("/health", cfg.Handler.Health)
		r.Post("/contact", cfg.Contact.Submit)

		if cfg.AdminAPIKey != "" {
			r.Route("/admin", func(r chi.Router) {
				r.Use(auth.RequireAPIKey(cfg.AdminAPIKey))
				r.Get("/contacts", cfg.Contact.AdminList)
				r.Get("/contacts/{id}", cfg.Contact.AdminGet)
			})
		}
	})

	return r
}
