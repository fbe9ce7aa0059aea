package routes

import (
	"github.com/BradenHooton/pingate/internal/handlers"
	"github.com/BradenHooton/pingate/internal/middleware"
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	gateHandler *handlers.GateHandler,
	healthHandler *handlers.HealthHandler,
	rateLimitConfig middleware.RateLimitConfig,
) {
	// The gate answers on its own path and at the root, for deployments
	// that mount the function under a single URL.
	router.Group(func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(rateLimitConfig))
		r.Post("/verify-pin", gateHandler.VerifyPin)
		r.Post("/", gateHandler.VerifyPin)
	})

	router.Get("/health", healthHandler.Health)
}
