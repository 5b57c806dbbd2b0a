package auth

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/kallkeyy/storefront-api/internal/domain"
)

const principalKey = "auth_principal"

type principalCtxKey struct{}

// Principal is the identity bound to a request by a successful pipeline run.
// Exactly one of User and Admin is set.
type Principal struct {
	Domain domain.Domain
	ID     string
	User   *domain.User
	Admin  *domain.Admin
	Claims *Claims
}

// Bind attaches p to the request locals and to the request's user context.
func Bind(c *fiber.Ctx, p *Principal) {
	c.Locals(principalKey, p)
	c.SetUserContext(WithPrincipal(c.UserContext(), p))
}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey{}, p)
}

// FromContext retrieves the principal from a context derived from the request.
func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalCtxKey{}).(*Principal)
	return p, ok && p != nil
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	p, ok := c.Locals(principalKey).(*Principal)
	return p, ok && p != nil
}

// UserFromContext returns the bound user, if the user pipeline ran.
func UserFromContext(c *fiber.Ctx) (*domain.User, bool) {
	p, ok := PrincipalFromContext(c)
	if !ok || p.Domain != domain.DomainUser || p.User == nil {
		return nil, false
	}
	return p.User, true
}

// AdminFromContext returns the bound admin, if the admin pipeline ran.
func AdminFromContext(c *fiber.Ctx) (*domain.Admin, bool) {
	p, ok := PrincipalFromContext(c)
	if !ok || p.Domain != domain.DomainAdmin || p.Admin == nil {
		return nil, false
	}
	return p.Admin, true
}

// UserIDFromContext returns the bare id of the bound user.
func UserIDFromContext(c *fiber.Ctx) string {
	if user, ok := UserFromContext(c); ok {
		return user.ID
	}
	return ""
}

// AdminIDFromContext returns the bare id of the bound admin.
func AdminIDFromContext(c *fiber.Ctx) string {
	if admin, ok := AdminFromContext(c); ok {
		return admin.ID
	}
	return ""
}
