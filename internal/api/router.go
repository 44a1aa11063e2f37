package api

import (
	"github.com/bradleygolden/userapi/internal/api/handlers"
	"github.com/bradleygolden/userapi/internal/auth"
	"github.com/bradleygolden/userapi/internal/logger"
	"github.com/bradleygolden/userapi/internal/ratelimit"
	"github.com/bradleygolden/userapi/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Options tunes the router.
type Options struct {
	// AllowedOrigins enables CORS when non-empty.
	AllowedOrigins []string
}

// NewRouter creates and configures a new Chi router.
// limiter may be nil to disable rate limiting.
func NewRouter(
	opts Options,
	gate *auth.Gate,
	tokens *auth.TokenService,
	limiter *ratelimit.Limiter,
	userService services.UserServiceProvider,
	eventService services.EventServiceProvider,
) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.AccessLog)
	r.Use(middleware.Recoverer)

	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
			ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Initialize handlers
	userHandler := handlers.NewUserHandler(userService)
	tokenHandler := handlers.NewTokenHandler(tokens, gate, eventService)
	eventHandler := handlers.NewEventHandler(eventService)

	// API versioning
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(limiter.Middleware(ratelimit.KeyByIP))

		r.Get("/validate/token/{token}", tokenHandler.Validate)

		// Everything below requires a principal
		r.Group(func(r chi.Router) {
			r.Use(gate.Middleware)

			r.Get("/token", tokenHandler.Issue)
			r.Get("/events", eventHandler.GetRecent)

			r.Route("/users", func(r chi.Router) {
				r.Get("/", userHandler.List)
				r.Post("/", userHandler.Create)
				r.Route("/{username}", func(r chi.Router) {
					r.Get("/", userHandler.Get)
					r.Put("/", userHandler.Update)
					r.Delete("/", userHandler.Delete)
				})
			})
		})
	})

	return r
}
