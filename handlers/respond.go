// handlers/respond.go
package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"arcade-economy-system/errs"
)

// writeError maps a service error to the gateway-facing JSON shape.
func writeError(c *fiber.Ctx, err error) error {
	typed := errs.As(err)
	if typed == nil {
		log.Printf("❌ [HTTP] unclassified error on %s: %v", c.Path(), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal error",
		})
	}

	code := typed.Code()
	if code == errs.CodeInternal {
		log.Printf("❌ [HTTP] internal error on %s: %v", c.Path(), err)
	}

	return c.Status(errs.HTTPStatus(code)).JSON(fiber.Map{
		"error":     typed.Message(),
		"code":      string(code),
		"retryable": errs.Retryable(code),
	})
}

func userContext(c *fiber.Ctx) (tenantID, userID string) {
	tenantID, _ = c.Locals("tenant_id").(string)
	userID, _ = c.Locals("user_id").(string)
	return tenantID, userID
}
