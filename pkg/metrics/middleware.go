package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// HTTPMetricsMiddleware tracks request count, latency and in-flight gauge.
func HTTPMetricsMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		HTTPRequestsInFlight.Inc()
		defer HTTPRequestsInFlight.Dec()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		method := c.Method()
		path := sanitizePath(c.Path())

		HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()

		return err
	}
}

// sanitizePath collapses dynamic segments to keep label cardinality low.
// Example: /api/contacts/4f1c... -> /api/contacts/:id
func sanitizePath(path string) string {
	switch path {
	case "/", "/metrics", "/api/health",
		"/api/auth/signup", "/api/auth/login", "/api/auth/verify", "/api/auth/register",
		"/api/users", "/api/contacts":
		return path
	}

	switch {
	case strings.HasPrefix(path, "/api/contacts/"):
		return "/api/contacts/:id"
	case strings.HasPrefix(path, "/api/users/"):
		return "/api/users/:id"
	case strings.HasPrefix(path, "/uploads/"):
		return "/uploads/:file"
	default:
		return "/other"
	}
}
