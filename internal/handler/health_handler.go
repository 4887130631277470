package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/students-api/internal/config"
	"github.com/noah-isme/students-api/internal/utils"
)

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Service     string    `json:"service"`
	Environment string    `json:"environment"`
}

// ReadinessResponse reports the state of each dependency.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Pinger checks a dependency.
type Pinger func(ctx context.Context) error

// HealthCheck returns a handler that reports application liveness.
func HealthCheck(cfg config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return utils.SendJSON(c, fiber.StatusOK, HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
		})
	}
}

// ReadinessCheck pings every dependency and answers 503 if any of them fails.
func ReadinessCheck(checks map[string]Pinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		response := ReadinessResponse{Status: "ok", Checks: make(map[string]string, len(checks))}
		status := fiber.StatusOK
		for name, ping := range checks {
			if err := ping(ctx); err != nil {
				response.Checks[name] = err.Error()
				response.Status = "unavailable"
				status = fiber.StatusServiceUnavailable
				continue
			}
			response.Checks[name] = "ok"
		}

		return utils.SendJSON(c, status, response)
	}
}
