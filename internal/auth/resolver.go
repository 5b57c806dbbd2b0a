package auth

import (
	"context"
	"errors"

	"github.com/kallkeyy/storefront-api/internal/domain"
	"github.com/kallkeyy/storefront-api/internal/repository"
)

// UserResolver maps verified user claims to the stored customer record.
type UserResolver struct {
	users repository.UserRepository
}

// NewUserResolver builds a resolver.
func NewUserResolver(users repository.UserRepository) *UserResolver {
	return &UserResolver{users: users}
}

// Resolve loads the user named by claims. Nothing is cached between calls.
func (r *UserResolver) Resolve(ctx context.Context, claims *Claims) (*domain.User, error) {
	user, err := r.users.GetByID(ctx, claims.Identifier())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(KindNotFound, err)
		}
		return nil, newError(KindInternal, err)
	}
	return user, nil
}

// AdminResolver maps verified admin claims to the stored admin record.
type AdminResolver struct {
	admins repository.AdminRepository
}

// NewAdminResolver builds a resolver.
func NewAdminResolver(admins repository.AdminRepository) *AdminResolver {
	return &AdminResolver{admins: admins}
}

// Resolve loads the admin named by claims and rejects deactivated accounts.
func (r *AdminResolver) Resolve(ctx context.Context, claims *Claims) (*domain.Admin, error) {
	admin, err := r.admins.GetByID(ctx, claims.Identifier())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(KindNotFound, err)
		}
		return nil, newError(KindInternal, err)
	}
	if !admin.Active {
		return nil, newError(KindDeactivated, nil)
	}
	return admin, nil
}
