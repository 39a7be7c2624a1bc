package apperrors

import (
	"github.com/gofiber/fiber/v2"
)

// Logger is the minimal logging surface the error handler needs; satisfied
// by pkg/logger.Logger.
type Logger interface {
	Printf(format string, args ...any)
}

// HandlerConfig configures the error handler.
type HandlerConfig struct {
	// Logger receives one line per handled error.
	Logger Logger

	// ShowInternalErrors includes wrapped internal errors in responses.
	// Development only.
	ShowInternalErrors bool

	// OnError is called for each error, useful for metrics.
	OnError func(c *fiber.Ctx, err *AppError)
}

// Handler creates the Fiber error handler. Errors render as JSON:
// {"error":{"code":...,"message":...,"details":...}}.
func Handler(config HandlerConfig) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		appErr := FromError(err)

		if config.Logger != nil {
			logError(config.Logger, c, appErr)
		}

		if config.OnError != nil {
			config.OnError(c, appErr)
		}

		body := fiber.Map{
			"code":    appErr.Code,
			"message": appErr.Message,
		}
		if len(appErr.Details) > 0 {
			body["details"] = appErr.Details
		}
		if config.ShowInternalErrors && appErr.Internal != nil {
			body["internal"] = appErr.Internal.Error()
		}

		return c.Status(appErr.StatusCode).JSON(fiber.Map{"error": body})
	}
}

func logError(log Logger, c *fiber.Ctx, err *AppError) {
	// Client errors are expected; one warn line is enough.
	if err.StatusCode < 500 {
		log.Printf("[WARN] %s %s | %s | status: %d | user: %v",
			c.Method(), c.Path(), err.Error(), err.StatusCode, c.Locals("username"))
		return
	}

	log.Printf("[ERROR] %s %s | %s | status: %d | ip: %s | user: %v",
		c.Method(), c.Path(), err.Error(), err.StatusCode, c.IP(), c.Locals("username"))
}
