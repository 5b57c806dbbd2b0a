package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kallkeyy/storefront-api/internal/domain"
)

type adminRepository struct {
	pool *pgxpool.Pool
}

// NewAdminRepository returns a Postgres-backed implementation.
func NewAdminRepository(pool *pgxpool.Pool) AdminRepository {
	return &adminRepository{pool: pool}
}

func (r *adminRepository) GetByID(ctx context.Context, id string) (*domain.Admin, error) {
	const query = `
        SELECT id::text, name, email, role, is_active, last_login, created_at
        FROM admins WHERE id=$1`

	var (
		admin     domain.Admin
		lastLogin sql.NullTime
	)
	key, err := uuidKey(id)
	if err != nil {
		return nil, err
	}
	if err := r.pool.QueryRow(ctx, query, key).Scan(
		&admin.ID,
		&admin.Name,
		&admin.Email,
		&admin.Role,
		&admin.Active,
		&lastLogin,
		&admin.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if lastLogin.Valid {
		admin.LastLogin = lastLogin.Time
	}
	return &admin, nil
}
