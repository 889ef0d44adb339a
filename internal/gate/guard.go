package gate

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/smartedu-app/smartedu-api/internal/models"
	"github.com/smartedu-app/smartedu-api/internal/observability"
	"github.com/smartedu-app/smartedu-api/internal/utils"
)

// Paths a blocked parent may still reach: the promotion endpoints themselves,
// notifications, and the health probe.
var allowedPrefixes = []string{
	"/academic-years/promotions",
	"/api/v1/notifications",
	"/api/v1/health",
	"/metrics",
}

// Guard returns a middleware enforcing the consent gate server-side: while a
// parent has unanswered promotions, every route outside the allowlist answers
// 423 Locked.
func Guard(g *Gate) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, _ := c.Locals("user_role").(string)
		if role != models.RoleParent {
			return c.Next()
		}

		if allowedPath(c.Path()) {
			return c.Next()
		}

		userID, _ := c.Locals("user_id").(uint)
		decision, err := g.Check(c.UserContext(), userID, role)
		if err != nil {
			return c.Next()
		}

		if decision.Blocked() {
			observability.PromotionGateBlocked().Inc()
			return utils.SendError(c, fiber.StatusLocked, "pending promotion decisions must be answered first")
		}

		return c.Next()
	}
}

func allowedPath(path string) bool {
	for _, prefix := range allowedPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
