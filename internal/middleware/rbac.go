package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/smartedu-app/smartedu-api/internal/utils"
)

// RequireRole restricts a route to the given roles. The caller's role comes
// from the user_role local set by JWTProtected; comparison is case and
// whitespace insensitive.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make([]string, 0, len(roles))
	for _, role := range roles {
		if normalized := strings.ToLower(strings.TrimSpace(role)); normalized != "" {
			allowed = append(allowed, normalized)
		}
	}

	return func(c *fiber.Ctx) error {
		current := currentRole(c)
		for _, role := range allowed {
			if current == role {
				return c.Next()
			}
		}
		return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
	}
}

func currentRole(c *fiber.Ctx) string {
	value := c.Locals("user_role")
	if value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return strings.ToLower(strings.TrimSpace(s))
	}
	return strings.ToLower(strings.TrimSpace(fmt.Sprintf("%v", value)))
}
