package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/avivron/weddinghub/internal/model"
)

// TenantRepo provides read access to the tenants table.
type TenantRepo struct {
	db *sql.DB
}

// NewTenantRepo constructs a TenantRepo with the given DB handle.
func NewTenantRepo(db *sql.DB) *TenantRepo { return &TenantRepo{db: db} }

// GetByID retrieves a tenant by id.
func (r *TenantRepo) GetByID(ctx context.Context, id uint64) (*model.Tenant, error) {
	const q = `SELECT id, name, slug, wedding_date, created_at, updated_at FROM tenants WHERE id = ?`
	var t model.Tenant
	var wd sql.NullTime
	err := r.db.QueryRowContext(ctx, q, id).
		Scan(&t.ID, &t.Name, &t.Slug, &wd, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}
	if wd.Valid {
		d := wd.Time
		t.WeddingDate = &d
	}
	return &t, nil
}
