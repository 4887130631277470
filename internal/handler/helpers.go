package handler

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/students-api/internal/middleware"
	"github.com/noah-isme/students-api/internal/service"
)

func parseIDParam(c *fiber.Ctx, key string) (uint, bool) {
	value := strings.TrimSpace(c.Params(key))
	parsed, err := strconv.ParseUint(value, 10, 0)
	if err != nil || parsed == 0 {
		return 0, false
	}
	return uint(parsed), true
}

func activityActorFromContext(c *fiber.Ctx) service.ActivityActor {
	actor := service.ActivityActor{}
	if id, ok := c.Locals(middleware.LocalUserID).(uint); ok {
		actor.ID = id
	}
	if role, ok := c.Locals(middleware.LocalUserRole).(string); ok {
		actor.Role = role
	}
	return actor
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func withGuard(guard []fiber.Handler, h fiber.Handler) []fiber.Handler {
	handlers := make([]fiber.Handler, 0, len(guard)+1)
	handlers = append(handlers, guard...)
	return append(handlers, h)
}
