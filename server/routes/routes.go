package routes

import (
	"contactdesk/db"
	"contactdesk/server/handlers"
	"contactdesk/server/middleware/auth"
	"contactdesk/services/token"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Register wires the full HTTP surface. Everything under /api except
// health, signup and login requires a bearer token; user management and
// the register endpoint additionally require the admin role.
func Register(app *fiber.App, store *db.Store, tokens *token.Manager, icons *handlers.IconStore) {
	app.Get("/api/health", handlers.HandleHealth(store))
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	authAPI := app.Group("/api/auth")
	authAPI.Post("/signup", handlers.HandleSignup(store))
	authAPI.Post("/login", handlers.HandleLogin(store, tokens))

	bearer := auth.New(auth.Config{Tokens: tokens})

	authAPI.Get("/verify", bearer, handlers.HandleVerify())
	authAPI.Post("/register", bearer, auth.RequireAdmin(), handlers.HandleRegister(store))

	users := app.Group("/api/users", bearer, auth.RequireAdmin())
	users.Get("/", handlers.HandleListUsers(store))
	users.Delete("/:id", handlers.HandleDeleteUser(store))

	ch := handlers.NewContactHandler(store, icons)
	contacts := app.Group("/api/contacts", bearer)
	contacts.Get("/", ch.HandleList)
	contacts.Post("/", ch.HandleCreate)
	contacts.Get("/:id", ch.HandleGet)
	contacts.Put("/:id", ch.HandleUpdate)
	contacts.Delete("/:id", ch.HandleDelete)
}
