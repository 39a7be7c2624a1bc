package handlers

import (
	"errors"

	"contactdesk/apperrors"
	"contactdesk/db"

	"github.com/gofiber/fiber/v2"
)

// HandleListUsers returns every account without password hashes. The
// admin gate runs ahead of this handler.
func HandleListUsers(store *db.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		users, err := store.ListUsers(c.Context())
		if err != nil {
			return apperrors.NewDatabaseError("list_users", err)
		}
		return c.JSON(users)
	}
}

// HandleDeleteUser removes an account. An admin cannot delete their own;
// contacts owned by the deleted user stay in place.
func HandleDeleteUser(store *db.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		if requesterID, _ := c.Locals("user_id").(string); requesterID == id {
			return apperrors.NewInvalidOperation("Cannot delete your own account")
		}

		if err := store.DeleteUser(c.Context(), id); err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return apperrors.NewNotFound()
			}
			return apperrors.NewDatabaseError("delete_user", err)
		}

		return c.JSON(fiber.Map{"success": true})
	}
}
