// Package router assembles the public and admin HTTP surfaces.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fieldline/voice-agent-platform/internal/api/handlers"
	apimiddleware "github.com/fieldline/voice-agent-platform/internal/api/middleware"
	"github.com/fieldline/voice-agent-platform/internal/calls"
	"github.com/fieldline/voice-agent-platform/internal/livefeed"
	"github.com/fieldline/voice-agent-platform/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger             *logging.Logger
	CallsHandler       *calls.Handler
	AdminHandler       *handlers.AdminHandler
	LiveFeed           *livefeed.Hub
	MetricsHandler     http.Handler
	AdminAuthSecret    string
	CORSAllowedOrigins []string
}

// New creates the chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(apimiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(apimiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints (telephony gateway callbacks, health checks).
	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		public.Route("/v1", func(v1 chi.Router) {
			if cfg.CallsHandler != nil {
				cfg.CallsHandler.Routes(v1)
			}
			if cfg.LiveFeed != nil {
				v1.Get("/livefeed", cfg.LiveFeed.ServeWS)
			}
		})
	})

	// Admin routes, protected by HMAC JWT.
	if cfg.AdminHandler != nil {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(apimiddleware.AdminJWT(cfg.AdminAuthSecret))
			cfg.AdminHandler.Routes(admin)
		})
	}

	return r
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
