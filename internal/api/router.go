package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/eldtechnologies/hookcase/internal/api/middleware"
	"github.com/eldtechnologies/hookcase/internal/config"
	"github.com/eldtechnologies/hookcase/internal/handlers"
)

// NewRouter creates and configures the HTTP router. redisClient may be nil,
// in which case rate limits are kept in process memory.
func NewRouter(logger zerolog.Logger, cfg *config.Config, h *handlers.Handler, redisClient *redis.Client) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Security middleware (order matters!)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(8 * 1024)) // 8KB max body
	r.Use(middleware.ValidateRequest)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	// CORS - browsers drive the examples, so credentials (the session cookie) are allowed
	r.Use(cors.Handler(cors.Options{
		AllowOriginFunc:  func(_ *http.Request, _ string) bool { return true },
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Sessions before rate limiting so limits can key on them
	r.Use(middleware.Session(h.ThemeFor, !cfg.IsDevelopment()))

	limiter := middleware.NewRateLimiter(redisClient, logger, middleware.RateLimiterConfig{
		Whitelist:        cfg.RateLimitWhitelist,
		AutoBlockEnabled: cfg.AutoBlockEnabled,
	})
	r.Use(limiter.Middleware)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/api", h.Root)
	r.Get("/health", h.Health)
	r.Get("/stats", h.Stats)
	r.Get("/examples", h.ListExamples)
	r.Get("/snippets/{name}", h.GetSnippet)

	// useOptimistic
	r.Route("/threads/{id}", func(r chi.Router) {
		r.Get("/messages", h.GetThreadMessages)
		r.Post("/messages", h.SubmitMessage)
		r.Delete("/pending/{pid}", h.CancelPending)
		r.Get("/events", h.ThreadEvents)
	})

	// Form actions, useFormStatus
	r.Get("/posts", h.ListPosts)
	r.Post("/posts", h.CreatePost)
	r.Post("/posts/slow", h.CreateSlowPost)
	r.Get("/posts/status", h.PostStatus)

	// Form actions, useActionState
	r.Get("/cart", h.GetCart)
	r.Post("/cart", h.AddToCart)
	r.Get("/cart/action", h.GetCartAction)
	r.Post("/cart/action", h.CartAction)

	// use()
	r.Get("/resources/joke", h.GetJoke)
	r.Get("/resources/posts", h.GetRemotePosts)
	r.Post("/resources/message", h.StartMessage)
	r.Get("/resources/message", h.GetMessage)
	r.Get("/theme", h.GetTheme)
	r.Put("/theme", h.SetTheme)
	r.Post("/theme/toggle", h.ToggleTheme)
	r.Get("/theme/events", h.ThemeEvents)

	// useDeferredValue, useTransition
	r.Get("/search", h.GetSearch)
	r.Put("/search", h.SetSearch)
	r.Get("/tabs", h.GetTabs)
	r.Post("/tabs/{tab}", h.SelectTab)

	return r
}
