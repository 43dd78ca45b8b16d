package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/avivron/weddinghub/internal/model"
)

// UserRepo provides data access to the admin_users table.  Admin
// accounts exist solely to resolve the tenant context for the
// management API; guest-facing flows never touch this table.
type UserRepo struct {
	db *sql.DB
}

// NewUserRepo constructs a UserRepo with the given DB handle.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

// GetByEmail retrieves an active admin user by email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.AdminUser, error) {
	const q = `SELECT id, tenant_id, email, password_hash, is_active, created_at, updated_at
	           FROM admin_users WHERE email = ? AND is_active = 1`
	var u model.AdminUser
	err := r.db.QueryRowContext(ctx, q, strings.ToLower(strings.TrimSpace(email))).
		Scan(&u.ID, &u.TenantID, &u.Email, &u.PasswordHash, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}
