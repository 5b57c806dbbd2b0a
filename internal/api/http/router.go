package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/kallkeyy/storefront-api/internal/api/http/handlers"
	"github.com/kallkeyy/storefront-api/internal/auth"
	"github.com/kallkeyy/storefront-api/internal/domain"
	"github.com/kallkeyy/storefront-api/internal/observability"
	apperrors "github.com/kallkeyy/storefront-api/pkg/util/errorutil"
)

// Role sets declared by admin routes.
var (
	orderManagers = auth.RolesOf(domain.AdminRoleSuperAdmin, domain.AdminRoleAdmin, domain.AdminRoleManager)
	superAdmins   = auth.RolesOf(domain.AdminRoleSuperAdmin)
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health    *handlers.HealthHandler
	Account   *handlers.AccountHandler
	Admin     *handlers.AdminHandler
	UserAuth  *auth.UserAuth
	AdminAuth *auth.AdminAuth
	Metrics   *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	api := app.Group("/api")

	api.Get("/users/me", cfg.UserAuth.Handle, cfg.Account.Me)
	api.Post("/auth/logout", cfg.UserAuth.Handle, cfg.UserAuth.Logout)

	admin := api.Group("/admin", cfg.AdminAuth.Handle)
	admin.Get("/me", cfg.Admin.Me)
	admin.Post("/auth/logout", cfg.AdminAuth.Logout)
	admin.Get("/orders", cfg.AdminAuth.Require(orderManagers), cfg.Admin.Orders)
	admin.Delete("/admins/:id", cfg.AdminAuth.Require(superAdmins), cfg.Admin.DeleteAdmin)

	app.Use(func(c *fiber.Ctx) error {
		return apperrors.NewNotFound("route", map[string]any{"path": c.Path()})
	})
}
