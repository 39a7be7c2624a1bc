// Package security sets response security headers for the API and the
// static frontend.
package security

import (
	"github.com/gofiber/fiber/v2"
)

type Config struct {
	// AllowedScriptSources for the CSP script-src directive.
	AllowedScriptSources []string

	// AllowedStyleSources for the CSP style-src directive.
	AllowedStyleSources []string

	// Development relaxes CSP for inline scripts.
	Development bool
}

var DefaultConfig = Config{
	AllowedScriptSources: []string{"'self'"},
	AllowedStyleSources:  []string{"'self'", "'unsafe-inline'"},
	Development:          false,
}

func configDefault(config ...Config) Config {
	if len(config) < 1 {
		return DefaultConfig
	}

	cfg := config[0]

	if len(cfg.AllowedScriptSources) == 0 {
		cfg.AllowedScriptSources = DefaultConfig.AllowedScriptSources
	}
	if len(cfg.AllowedStyleSources) == 0 {
		cfg.AllowedStyleSources = DefaultConfig.AllowedStyleSources
	}

	return cfg
}

// New creates the security headers middleware.
func New(config ...Config) fiber.Handler {
	cfg := configDefault(config...)

	return func(c *fiber.Ctx) error {
		c.Set("Content-Security-Policy", buildCSP(cfg))
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")

		return c.Next()
	}
}

func buildCSP(cfg Config) string {
	csp := "default-src 'self'; "

	csp += "script-src"
	for _, src := range cfg.AllowedScriptSources {
		csp += " " + src
	}
	if cfg.Development {
		csp += " 'unsafe-inline'"
	}
	csp += "; "

	csp += "style-src"
	for _, src := range cfg.AllowedStyleSources {
		csp += " " + src
	}
	csp += "; "

	// Uploaded icons are same-origin; placeholders may be data URIs.
	csp += "img-src 'self' data:; "
	csp += "connect-src 'self'; "
	csp += "frame-ancestors 'none'"

	return csp
}
