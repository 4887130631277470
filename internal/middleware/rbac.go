package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/students-api/internal/utils"
)

type roleSet map[string]struct{}

func newRoleSet(roles []string) roleSet {
	set := make(roleSet, len(roles))
	for _, role := range roles {
		if normalized := normalizeRoleValue(role); normalized != "" {
			set[normalized] = struct{}{}
		}
	}
	return set
}

func (s roleSet) allows(value interface{}) bool {
	role := normalizeRoleValue(value)
	if role == "" {
		return false
	}
	_, ok := s[role]
	return ok
}

// RequireRole rejects requests whose verified role is not one of roles.
// It must run after JWTProtected, which stores the role in LocalUserRole.
func RequireRole(roles ...string) fiber.Handler {
	allowed := newRoleSet(roles)

	return func(c *fiber.Ctx) error {
		if !allowed.allows(c.Locals(LocalUserRole)) {
			return utils.SendError(c, fiber.StatusForbidden, "Insufficient permissions")
		}
		return c.Next()
	}
}

func normalizeRoleValue(value interface{}) string {
	var raw string
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		raw = v
	case fmt.Stringer:
		raw = v.String()
	default:
		raw = fmt.Sprintf("%v", value)
	}
	return strings.ToLower(strings.TrimSpace(raw))
}
