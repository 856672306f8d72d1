package http

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/shaileshgontewar/crm-server/internal/api/http/handlers"
	"github.com/shaileshgontewar/crm-server/internal/auth"
	"github.com/shaileshgontewar/crm-server/internal/domain"
	"github.com/shaileshgontewar/crm-server/internal/ratelimit"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Enquiries      *handlers.EnquiriesHandler
	Users          *handlers.UsersHandler
	AuthMiddleware *auth.AuthMiddleware
	RateLimiter    *ratelimit.Limiter
}

// RegisterRoutes wires the HTTP surface under /api.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	api := app.Group("/api", cfg.RateLimiter.Middleware())

	api.Get("/health", cfg.Health.Check)

	authGroup := api.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Get("/me", cfg.AuthMiddleware.Handle, cfg.Auth.Me)

	enquiries := api.Group("/enquiries")
	enquiries.Post("/public", cfg.Enquiries.CreatePublic)
	// stats before /:id so the path does not match as an id
	enquiries.Get("/stats", cfg.AuthMiddleware.Handle, cfg.Enquiries.Stats)
	enquiries.Get("/", cfg.AuthMiddleware.Handle, cfg.Enquiries.List)
	enquiries.Post("/", cfg.AuthMiddleware.Handle, cfg.Enquiries.Create)
	enquiries.Get("/:id", cfg.AuthMiddleware.Handle, cfg.Enquiries.Get)
	enquiries.Put("/:id", cfg.AuthMiddleware.Handle, cfg.Enquiries.Update)
	enquiries.Delete("/:id", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleAdmin), cfg.Enquiries.Delete)

	users := api.Group("/users", cfg.AuthMiddleware.Handle)
	users.Get("/staff/list", cfg.Users.ListStaff)
	users.Get("/", auth.RequireRole(domain.RoleAdmin), cfg.Users.List)
	users.Post("/", auth.RequireRole(domain.RoleAdmin), cfg.Users.Create)
	users.Get("/:id", auth.RequireRole(domain.RoleAdmin), cfg.Users.Get)
	users.Put("/:id", auth.RequireRole(domain.RoleAdmin), cfg.Users.Update)
	users.Delete("/:id", auth.RequireRole(domain.RoleAdmin), cfg.Users.Delete)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Route not found",
		})
	})
}
