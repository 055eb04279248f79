package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/llmwatch/llmwatch/internal/api/handlers"
	"github.com/llmwatch/llmwatch/internal/api/middleware"
	"github.com/llmwatch/llmwatch/internal/config"
	"github.com/llmwatch/llmwatch/internal/pkg/logger"
	"github.com/llmwatch/llmwatch/internal/pkg/metrics"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Handlers struct {
	Health   *handlers.HealthHandler
	Chat     *handlers.ChatHandler
	Anomaly  *handlers.AnomalyHandler
	Incident *handlers.IncidentHandler
	Summary  *handlers.SummaryHandler
	Baseline *handlers.BaselineHandler
	Events   *handlers.EventsHandler
}

func New(cfg *config.Config, log *logger.Logger, h *Handlers) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	r.Use(metrics.Middleware)
	r.Use(middleware.RateLimit(float64(cfg.Server.RateLimitRPS), cfg.Server.RateLimitBurst))

	// Public routes
	r.Group(func(r chi.Router) {
		// Swagger documentation
		r.Get("/swagger/*", httpSwagger.WrapHandler)

		// Health checks
		r.Get("/health", h.Health.Healthz)
		r.Get("/healthz", h.Health.Healthz)
		r.Get("/readyz", h.Health.Readyz)

		// Prometheus scrape endpoint
		r.Handle("/metrics", metrics.Handler())
	})

	// Protected routes (require the API key when one is configured)
	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.Server.APIKey))

		// Gateway
		r.Post("/api/v1/chat", h.Chat.Chat)
		r.Get("/api/v1/interactions", h.Chat.Interactions)

		// Combined summary
		r.Get("/api/v1/metrics/summary", h.Summary.Summary)

		// Anomalies
		r.Route("/api/v1/anomalies", func(r chi.Router) {
			r.Get("/", h.Anomaly.List)
			r.Get("/recent", h.Anomaly.Recent)
			r.Post("/observe", h.Anomaly.Observe)
		})

		// Incidents
		r.Route("/api/v1/incidents", func(r chi.Router) {
			r.Get("/", h.Incident.List)
			r.Get("/{id}", h.Incident.Get)
			r.Post("/{id}/acknowledge", h.Incident.Acknowledge)
			r.Post("/{id}/resolve", h.Incident.Resolve)
		})

		// Baselines
		r.Route("/api/v1/baseline", func(r chi.Router) {
			r.Post("/snapshot", h.Baseline.Snapshot)
			r.Post("/generate", h.Baseline.Generate)
			r.Get("/snapshots", h.Baseline.List)
			r.Get("/export", h.Baseline.Export)
			r.Post("/import", h.Baseline.Import)
		})

		// Event stream
		r.Get("/api/v1/events", h.Events.Stream)
	})

	return r
}
