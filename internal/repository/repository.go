package repository

import (
	"context"
	"errors"

	"github.com/kallkeyy/storefront-api/internal/domain"
)

// ErrNotFound is returned when no identity record matches the requested id.
var ErrNotFound = errors.New("record not found")

// UserRepository loads storefront customers. Implementations never return
// credential fields.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// AdminRepository loads admin console operators. Implementations never return
// credential fields.
type AdminRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Admin, error)
}
