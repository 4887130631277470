package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/students-api/internal/config"
	"github.com/noah-isme/students-api/internal/handler"
	"github.com/noah-isme/students-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	StudentHandler  *handler.StudentHandler
	WriteGuard      []fiber.Handler
	ReadinessChecks map[string]handler.Pinger
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/health", handler.HealthCheck(cfg))
	app.Get("/ready", handler.ReadinessCheck(deps.ReadinessChecks))
	app.Get("/metrics", observability.MetricsHandler())

	if deps.StudentHandler != nil {
		students := app.Group("/students", func(c *fiber.Ctx) error {
			c.Set("X-Application", cfg.AppName)
			return c.Next()
		})
		deps.StudentHandler.Register(students, deps.WriteGuard...)
	}
}
