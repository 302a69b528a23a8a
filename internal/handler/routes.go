package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/capitalize-ai/messaging-platform/internal/middleware"
	"github.com/capitalize-ai/messaging-platform/pkg/logger"
)

// RouterConfig carries everything the HTTP surface is assembled from.
type RouterConfig struct {
	Logger        *logger.Logger
	Authenticator middleware.Authenticator

	Health        *HealthHandler
	Users         *UserHandler
	Conversations *ConversationHandler
	Messages      *MessageHandler
	// Realtime serves the websocket upgrade. Optional.
	Realtime http.Handler

	AllowedOrigins    []string
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// NewRouter builds the chi router for the API.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Health endpoints (no auth required)
	r.Get("/health", cfg.Health.Health)
	r.Get("/ready", cfg.Health.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	if cfg.Realtime != nil {
		r.Handle("/ws", cfg.Realtime)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
		r.Post("/users/login", cfg.Users.Login)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.Authenticator))
		r.Use(middleware.UserRateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
		r.Use(middleware.SessionOrigin)

		r.Get("/users/online", cfg.Users.Online)
		r.Get("/users/all", cfg.Users.All)

		r.Route("/conversations", func(r chi.Router) {
			r.Post("/", cfg.Conversations.Create)
			r.Get("/", cfg.Conversations.List)
			r.Post("/see/{id}", cfg.Conversations.MarkSeen)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", cfg.Conversations.Get)
				r.Post("/", cfg.Conversations.SendMessage)
				r.Delete("/", cfg.Conversations.Delete)
			})
		})

		r.Route("/messages/{id}", func(r chi.Router) {
			r.Put("/", cfg.Messages.Edit)
			r.Post("/", cfg.Messages.React)
			r.Delete("/", cfg.Messages.Delete)
		})
	})

	return r
}
