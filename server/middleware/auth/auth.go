// Package auth is the bearer-token middleware. It verifies the signed
// session token on every protected request and injects the claims into
// request Locals; a missing token is 401, an invalid or expired one 403.
package auth

import (
	"strings"

	"contactdesk/apperrors"
	"contactdesk/services/authz"

	"github.com/gofiber/fiber/v2"
)

const bearerPrefix = "Bearer "

// New creates the token-verification middleware.
func New(config ...Config) fiber.Handler {
	cfg := configDefault(config...)

	return func(c *fiber.Ctx) error {
		if cfg.Next != nil && cfg.Next(c) {
			return c.Next()
		}

		header := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(header, bearerPrefix) {
			return apperrors.NewUnauthorized("Missing bearer token")
		}

		claims, err := cfg.Tokens.Verify(strings.TrimPrefix(header, bearerPrefix))
		if err != nil {
			return apperrors.NewForbidden("Invalid or expired token")
		}

		c.Locals(cfg.ContextUserID, claims.UserID())
		c.Locals(cfg.ContextUsername, claims.Username)
		c.Locals(cfg.ContextRole, claims.Role)

		return c.Next()
	}
}

// RequireAdmin gates admin-only routes. It assumes New ran earlier in the
// chain and stored the role under the default Locals key.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, _ := c.Locals(ConfigDefault.ContextRole).(string)
		if !authz.IsAdmin(role) {
			return apperrors.NewForbidden("Admin role required")
		}
		return c.Next()
	}
}
