package auth

import (
	"contactdesk/services/token"

	"github.com/gofiber/fiber/v2"
)

type Config struct {
	// Next defines a function to skip the middleware.
	//
	// Optional. Default: nil
	Next func(c *fiber.Ctx) bool

	// Tokens verifies bearer tokens.
	//
	// Required. Default: nil
	Tokens *token.Manager

	// ContextUserID, ContextUsername and ContextRole are the Locals keys
	// the verified claims are stored under.
	//
	// Optional. Defaults: "user_id", "username", "role"
	ContextUserID   string
	ContextUsername string
	ContextRole     string
}

var ConfigDefault = Config{
	Next:            nil,
	Tokens:          nil,
	ContextUserID:   "user_id",
	ContextUsername: "username",
	ContextRole:     "role",
}

func configDefault(config ...Config) Config {
	if len(config) < 1 {
		return ConfigDefault
	}

	cfg := config[0]

	if cfg.ContextUserID == "" {
		cfg.ContextUserID = ConfigDefault.ContextUserID
	}
	if cfg.ContextUsername == "" {
		cfg.ContextUsername = ConfigDefault.ContextUsername
	}
	if cfg.ContextRole == "" {
		cfg.ContextRole = ConfigDefault.ContextRole
	}

	return cfg
}
