// middleware/user_context.go
package middleware

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// UserContextMiddleware extracts the (tenant, user) identity set by the
// Gateway. The service trusts the Gateway's authentication; a request with
// no identity context is fatal for the whole request.
func UserContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Get("X-User-ID")
		tenantID := c.Get("X-Tenant-ID")
		rolesStr := c.Get("X-User-Roles")

		if userID == "" || tenantID == "" {
			log.Printf("❌ [USER_CTX] missing identity context (user=%q tenant=%q) on %s", userID, tenantID, c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-User-ID / X-Tenant-ID — request must come through gateway with auth context",
			})
		}

		var roles []string
		for _, r := range strings.Split(rolesStr, ",") {
			r = strings.TrimSpace(r)
			if r != "" {
				roles = append(roles, r)
			}
		}

		c.Locals("user_id", userID)
		c.Locals("tenant_id", tenantID)
		c.Locals("user_roles", roles)

		return c.Next()
	}
}

// RequireRole guards admin routes behind a Gateway-provided role.
func RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		roles, _ := c.Locals("user_roles").([]string)
		for _, r := range roles {
			if r == role {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "insufficient role for this operation",
		})
	}
}
