package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/intake-service/internal/api/http/handlers"
	"github.com/spec-kit/intake-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Accounts       *handlers.AccountsHandler
	Requests       *handlers.RequestsHandler
	Verification   *handlers.VerificationHandler
	Upload         *handlers.UploadHandler
	AuthMiddleware *auth.AuthMiddleware
	AllowAnonymous bool
	UploadDir      string
	PublicPrefix   string
}

// RegisterRoutes wires HTTP routes. The intake routes are mounted at the
// root and again under /api.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	if cfg.UploadDir != "" {
		prefix := cfg.PublicPrefix
		if prefix == "" {
			prefix = "/uploads"
		}
		app.Static(prefix, cfg.UploadDir, fiber.Static{Browse: false})
	}

	registerIntakeRoutes(app, cfg)
	registerIntakeRoutes(app.Group("/api"), cfg)
}

func registerIntakeRoutes(router fiber.Router, cfg RouteConfig) {
	router.Post("/register", cfg.Accounts.Register)
	router.Post("/login", cfg.Accounts.Login)
	router.Get("/accounts", cfg.Accounts.List)

	submitGate := cfg.AuthMiddleware.Handle
	if cfg.AllowAnonymous {
		submitGate = cfg.AuthMiddleware.Optional
	}
	router.Post("/requests", submitGate, cfg.Requests.Submit)
	router.Get("/requests", cfg.Requests.List)
	router.Put("/requests/:id", cfg.Requests.UpdateStatus)
	router.Delete("/requests/:id", cfg.Requests.Delete)

	router.Post("/verification/send", cfg.Verification.Send)
	router.Post("/verification/verify", cfg.Verification.Verify)

	router.Post("/upload", cfg.Upload.Upload)
}
