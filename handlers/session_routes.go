// handlers/session_routes.go
package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"arcade-economy-system/middleware"
	"arcade-economy-system/models"
	"arcade-economy-system/services"
	"arcade-economy-system/utils"
)

func SetupSessionRoutes(app *fiber.App, sessions *services.SessionService, scores *services.ScoreService, admission *services.AdmissionClient) {
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Post("/sessions", func(c *fiber.Ctx) error {
		tenantID, userID := userContext(c)

		var req struct {
			GameID     string `json:"game_id" validate:"required,uuid"`
			Mode       string `json:"mode" validate:"omitempty,oneof=solo multiplayer"`
			Difficulty string `json:"difficulty" validate:"omitempty,oneof=easy normal hard"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
		}
		if err := utils.ValidateStruct(req); err != nil {
			return writeError(c, err)
		}

		if err := admission.Allow(tenantID, userID, services.ActionCreateSession); err != nil {
			return writeError(c, err)
		}

		session, err := sessions.CreateSession(tenantID, userID, req.GameID, req.Mode, req.Difficulty)
		if err != nil {
			return writeError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(session)
	})

	secured.Post("/sessions/:id/join", func(c *fiber.Ctx) error {
		tenantID, userID := userContext(c)
		sessionID := c.Params("id")
		if _, err := uuid.Parse(sessionID); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid session ID"})
		}

		session, err := sessions.JoinSession(tenantID, sessionID, userID)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(session)
	})

	secured.Post("/sessions/:id/start", func(c *fiber.Ctx) error {
		tenantID, userID := userContext(c)
		sessionID := c.Params("id")
		if _, err := uuid.Parse(sessionID); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid session ID"})
		}

		session, err := sessions.StartSession(tenantID, sessionID, userID)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(session)
	})

	secured.Post("/sessions/:id/score", func(c *fiber.Ctx) error {
		tenantID, userID := userContext(c)
		sessionID := c.Params("id")
		if _, err := uuid.Parse(sessionID); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid session ID"})
		}

		var req services.ScoreMetrics
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
		}

		if err := admission.Allow(tenantID, userID, services.ActionSubmitScore); err != nil {
			return writeError(c, err)
		}

		result, err := scores.SubmitScore(tenantID, userID, sessionID, req)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(result)
	})

	secured.Get("/games/:id/highscores", func(c *fiber.Ctx) error {
		tenantID, _ := userContext(c)
		limit, _ := strconv.Atoi(c.Query("limit", "10"))

		entries, err := scores.GetHighScores(tenantID, c.Params("id"), limit)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(fiber.Map{"game_id": c.Params("id"), "high_scores": entries})
	})

	secured.Get("/user/personal-bests", func(c *fiber.Ctx) error {
		tenantID, userID := userContext(c)

		bests, err := scores.GetPersonalBests(tenantID, userID)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(fiber.Map{"personal_bests": bests})
	})

	// Admin: seed and manage the game catalog
	admin := app.Group("/s/admin", middleware.UserContextMiddleware(), middleware.RequireRole("admin"))

	admin.Post("/games", func(c *fiber.Ctx) error {
		tenantID, _ := userContext(c)

		var req struct {
			Name               string `json:"name" validate:"required,max=128"`
			Description        string `json:"description"`
			Subject            string `json:"subject"`
			MaxPlayers         int    `json:"max_players" validate:"min=1,max=32"`
			DurationSeconds    int    `json:"duration_seconds" validate:"min=10"`
			BaseTokenReward    int64  `json:"base_token_reward" validate:"min=0"`
			PerfectTokenReward int64  `json:"perfect_token_reward" validate:"min=0"`
			WinTokenReward     int64  `json:"win_token_reward" validate:"min=0"`
			XPReward           int64  `json:"xp_reward" validate:"min=0"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
		}
		if err := utils.ValidateStruct(req); err != nil {
			return writeError(c, err)
		}

		game := models.GameDefinition{
			ID:                 uuid.NewString(),
			TenantID:           tenantID,
			Code:               slug.Make(req.Name),
			Name:               req.Name,
			Description:        req.Description,
			Subject:            req.Subject,
			MaxPlayers:         req.MaxPlayers,
			DurationSeconds:    req.DurationSeconds,
			BaseTokenReward:    req.BaseTokenReward,
			PerfectTokenReward: req.PerfectTokenReward,
			WinTokenReward:     req.WinTokenReward,
			XPReward:           req.XPReward,
			IsActive:           true,
		}
		if err := sessions.DB.Create(&game).Error; err != nil {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "game code already exists"})
		}
		return c.Status(fiber.StatusCreated).JSON(game)
	})

	admin.Get("/games", func(c *fiber.Ctx) error {
		tenantID, _ := userContext(c)
		var games []models.GameDefinition
		if err := sessions.DB.Where("tenant_id = ?", tenantID).Order("name ASC").Find(&games).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch games"})
		}
		return c.JSON(games)
	})
}
