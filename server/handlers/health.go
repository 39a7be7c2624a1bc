package handlers

import (
	"contactdesk/db"

	"github.com/gofiber/fiber/v2"
)

// HandleHealth reports liveness and database reachability.
func HandleHealth(store *db.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := store.Ping(c.Context()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "degraded",
				"error":  "database unreachable",
			})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	}
}
