package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kallkeyy/storefront-api/internal/auth"
	apperrors "github.com/kallkeyy/storefront-api/pkg/util/errorutil"
)

// AdminHandler exposes admin console endpoints. Order and admin management
// live in their own services; these handlers only confirm the caller's
// identity and role to the console.
type AdminHandler struct{}

// NewAdminHandler constructs handler.
func NewAdminHandler() *AdminHandler {
	return &AdminHandler{}
}

// Me handles GET /api/admin/me.
func (h *AdminHandler) Me(c *fiber.Ctx) error {
	admin, ok := auth.AdminFromContext(c)
	if !ok {
		return fiber.ErrUnauthorized
	}
	return c.JSON(fiber.Map{"success": true, "admin": admin})
}

// Orders handles GET /api/admin/orders.
func (h *AdminHandler) Orders(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success":   true,
		"orders":    []any{},
		"requested": auth.AdminIDFromContext(c),
	})
}

// DeleteAdmin handles DELETE /api/admin/admins/:id. Admin records are managed
// by the admin service, so after the role gate this only reports 501.
func (h *AdminHandler) DeleteAdmin(c *fiber.Ctx) error {
	target := c.Params("id")
	if target == auth.AdminIDFromContext(c) {
		return apperrors.NewValidationError("cannot delete your own admin account", map[string]any{"id": target})
	}
	return c.Status(fiber.StatusNotImplemented).JSON(fiber.Map{
		"success": false,
		"message": "Admin deletion is not available on this service.",
		"id":      target,
	})
}
