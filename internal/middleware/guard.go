package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// WriteRoles may call mutating endpoints when a token secret is configured.
var WriteRoles = []string{"admin", "staff"}

// GuardConfig configures the middleware chain placed in front of write routes.
type GuardConfig struct {
	JWTSecret       string
	RateLimitMax    int
	RateLimitWindow time.Duration
}

// WriteGuard returns the handlers for mutating routes. Without a secret the routes stay
// open and only the rate limit applies.
func WriteGuard(cfg GuardConfig) []fiber.Handler {
	chain := make([]fiber.Handler, 0, 3)
	if cfg.JWTSecret != "" {
		chain = append(chain, JWTProtected(cfg.JWTSecret), RequireRole(WriteRoles...))
	}
	return append(chain, RateLimit("students-write", cfg.RateLimitMax, cfg.RateLimitWindow))
}
