// handlers/token_routes.go
package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"arcade-economy-system/middleware"
	"arcade-economy-system/models"
	"arcade-economy-system/services"
	"arcade-economy-system/utils"
)

func SetupTokenRoutes(app *fiber.App, ledger *services.LedgerService, leaderboard *services.LeaderboardService, admission *services.AdmissionClient) {
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Get("/user/tokens", func(c *fiber.Ctx) error {
		tenantID, userID := userContext(c)
		info, err := ledger.GetTokenInfo(tenantID, userID)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(info)
	})

	secured.Get("/leaderboard/tokens", func(c *fiber.Ctx) error {
		tenantID, _ := userContext(c)
		period := c.Query("period", services.PeriodAllTime)
		limit, _ := strconv.Atoi(c.Query("limit", "20"))

		rows, err := leaderboard.GetTokenLeaderboard(tenantID, period, limit)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(fiber.Map{"period": period, "entries": rows})
	})

	// Admin: manual token grants (bonuses, reconciliation)
	admin := app.Group("/s/admin", middleware.UserContextMiddleware(), middleware.RequireRole("admin"))

	admin.Post("/tokens/award", func(c *fiber.Ctx) error {
		tenantID, adminID := userContext(c)

		var req struct {
			UserID string `json:"user_id" validate:"required,uuid"`
			Amount int64  `json:"amount" validate:"required,min=1"`
			Reason string `json:"reason" validate:"max=255"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
		}
		if err := utils.ValidateStruct(req); err != nil {
			return writeError(c, err)
		}

		if err := admission.Allow(tenantID, adminID, services.ActionAwardTokens); err != nil {
			return writeError(c, err)
		}

		result, err := ledger.CreditTokens(tenantID, req.UserID, req.Amount, models.TxTypeAdminAward, "admin:"+adminID)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(result)
	})
}
