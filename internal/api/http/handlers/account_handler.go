package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kallkeyy/storefront-api/internal/auth"
)

// AccountHandler serves the signed-in customer's own account.
type AccountHandler struct{}

// NewAccountHandler constructs handler.
func NewAccountHandler() *AccountHandler {
	return &AccountHandler{}
}

// Me handles GET /api/users/me.
func (h *AccountHandler) Me(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return fiber.ErrUnauthorized
	}
	return c.JSON(fiber.Map{"user": user})
}
