package handlers

import (
	"errors"

	"contactdesk/apperrors"
	"contactdesk/db"
	"contactdesk/pkg/metrics"
	"contactdesk/services/token"
	"contactdesk/utils"

	"github.com/gofiber/fiber/v2"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// HandleSignup creates a regular account. The role is always "user" here,
// never caller-supplied; only the admin register endpoint can choose one.
func HandleSignup(store *db.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req credentialsRequest
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("Invalid request body")
		}

		if err := utils.ValidateUsername(req.Username); err != nil {
			return err
		}
		if err := utils.ValidatePasswordStrength(req.Password); err != nil {
			return err
		}

		hash, appErr := utils.HashPassword(req.Password)
		if appErr != nil {
			return appErr
		}

		if _, err := store.CreateUser(c.Context(), req.Username, hash, db.RoleUser); err != nil {
			if errors.Is(err, db.ErrUsernameTaken) {
				return apperrors.NewUserExists(req.Username)
			}
			return apperrors.NewDatabaseError("create_user", err)
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"success": true,
			"message": "Account created",
		})
	}
}

// HandleLogin verifies credentials and issues a session token.
func HandleLogin(store *db.Store, tokens *token.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req credentialsRequest
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("Invalid request body")
		}

		user, err := store.GetUserByUsername(c.Context(), req.Username)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				metrics.RecordAuthAttempt("failure")
				return apperrors.NewInvalidCredentials()
			}
			return apperrors.NewDatabaseError("get_user", err)
		}

		if !utils.VerifyPassword(user.PasswordHash, req.Password) {
			metrics.RecordAuthAttempt("failure")
			return apperrors.NewInvalidCredentials()
		}

		signed, err := tokens.Issue(user.ID, user.Username, user.Role)
		if err != nil {
			return apperrors.NewInternalError("Failed to issue token").WithInternal(err)
		}

		metrics.RecordAuthAttempt("success")
		metrics.TokensIssued.Inc()

		return c.JSON(fiber.Map{
			"token": signed,
			"user": fiber.Map{
				"id":       user.ID,
				"username": user.Username,
				"role":     user.Role,
			},
		})
	}
}

// HandleVerify echoes the verified claims back. The bearer middleware has
// already rejected missing (401) and invalid (403) tokens.
func HandleVerify() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"user": fiber.Map{
				"id":       c.Locals("user_id"),
				"username": c.Locals("username"),
				"role":     c.Locals("role"),
			},
		})
	}
}

// HandleRegister lets an admin create an account with a chosen role.
func HandleRegister(store *db.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req registerRequest
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("Invalid request body")
		}

		if err := utils.ValidateUsername(req.Username); err != nil {
			return err
		}
		if err := utils.ValidatePasswordStrength(req.Password); err != nil {
			return err
		}
		if !db.ValidRole(req.Role) {
			return apperrors.NewValidationError("Role must be either 'user' or 'admin'")
		}

		hash, appErr := utils.HashPassword(req.Password)
		if appErr != nil {
			return appErr
		}

		if _, err := store.CreateUser(c.Context(), req.Username, hash, req.Role); err != nil {
			if errors.Is(err, db.ErrUsernameTaken) {
				return apperrors.NewUserExists(req.Username)
			}
			return apperrors.NewDatabaseError("create_user", err)
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"success": true,
			"message": "User registered",
		})
	}
}
