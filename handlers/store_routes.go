// handlers/store_routes.go
package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"arcade-economy-system/middleware"
	"arcade-economy-system/services"
	"arcade-economy-system/utils"
)

func SetupStoreRoutes(app *fiber.App, store *services.StoreService, admission *services.AdmissionClient, artworkEnabled bool) {
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Get("/store/items", func(c *fiber.Ctx) error {
		tenantID, _ := userContext(c)
		items, err := store.GetStoreItems(tenantID)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(items)
	})

	secured.Post("/store/items/:id/purchase", func(c *fiber.Ctx) error {
		tenantID, userID := userContext(c)
		itemID := c.Params("id")
		if _, err := uuid.Parse(itemID); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid item ID"})
		}

		if err := admission.Allow(tenantID, userID, services.ActionPurchaseItem); err != nil {
			return writeError(c, err)
		}

		result, err := store.PurchaseItem(tenantID, userID, itemID)
		if err != nil {
			return writeError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(result)
	})

	secured.Post("/store/items/:id/equip", func(c *fiber.Ctx) error {
		tenantID, userID := userContext(c)
		itemID := c.Params("id")
		if _, err := uuid.Parse(itemID); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid item ID"})
		}

		entry, err := store.EquipItem(tenantID, userID, itemID)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(entry)
	})

	secured.Post("/store/unequip/:slot", func(c *fiber.Ctx) error {
		tenantID, userID := userContext(c)
		slotName := c.Params("slot")

		cleared, err := store.UnequipItem(tenantID, userID, slotName)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(fiber.Map{"slot": slotName, "unequipped": cleared})
	})

	secured.Get("/user/inventory", func(c *fiber.Ctx) error {
		tenantID, userID := userContext(c)
		entries, err := store.GetInventory(tenantID, userID)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(entries)
	})

	// Admin: item management, multipart so artwork can ride along
	admin := app.Group("/s/admin", middleware.UserContextMiddleware(), middleware.RequireRole("admin"))

	admin.Post("/items", func(c *fiber.Ctx) error {
		tenantID, _ := userContext(c)

		var req services.CreateItemInput
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		if err := utils.ValidateStruct(req); err != nil {
			return writeError(c, err)
		}

		// Optional artwork file upload to R2
		if file, err := c.FormFile("artwork"); err == nil && file != nil {
			if !artworkEnabled {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "artwork uploads are not configured"})
			}
			key := fmt.Sprintf("artwork/%s-%s", slug.Make(req.Name), uuid.NewString()[:8])
			url, err := utils.UploadArtwork(file, key)
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to upload artwork"})
			}
			req.ArtworkURL = url
		}

		item, err := store.CreateItem(tenantID, req)
		if err != nil {
			return writeError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(item)
	})

	admin.Delete("/items/:id", func(c *fiber.Ctx) error {
		tenantID, _ := userContext(c)
		itemID := c.Params("id")
		if _, err := uuid.Parse(itemID); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid item ID"})
		}

		if err := store.DeactivateItem(tenantID, itemID); err != nil {
			return writeError(c, err)
		}
		return c.JSON(fiber.Map{"message": "item deactivated", "id": itemID})
	})
}
