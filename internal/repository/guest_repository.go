package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/avivron/weddinghub/internal/model"
)

// GuestRepo provides data access to the guests table.  Every query
// is scoped by tenant id; a guest belonging to another tenant is
// indistinguishable from a missing one.
type GuestRepo struct {
	db *sql.DB
}

// NewGuestRepo constructs a GuestRepo with the given DB handle.
func NewGuestRepo(db *sql.DB) *GuestRepo { return &GuestRepo{db: db} }

// Create inserts a guest.  On success the guest's ID is populated.
// A duplicate invite code within the tenant surfaces as ErrConflict
// so the caller can regenerate the code and retry.
func (r *GuestRepo) Create(ctx context.Context, g *model.Guest) error {
	const q = `INSERT INTO guests (tenant_id, full_name, phone, email, household, total_guests, invite_code)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		g.TenantID, g.FullName, g.Phone, g.Email, g.Household, g.TotalGuests, g.InviteCode)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	g.ID = uint64(id)
	return nil
}

// GetByIDAndTenant retrieves a guest by id within the tenant scope.
func (r *GuestRepo) GetByIDAndTenant(ctx context.Context, id, tenantID uint64) (*model.Guest, error) {
	const q = `SELECT id, tenant_id, full_name, phone, email, household, total_guests, invite_code, created_at, updated_at
	           FROM guests WHERE id = ? AND tenant_id = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, q, id, tenantID))
}

// GetByInviteCode resolves a guest by their door code within the
// tenant scope.  Codes are matched case-insensitively because door
// staff type them by hand.
func (r *GuestRepo) GetByInviteCode(ctx context.Context, tenantID uint64, code string) (*model.Guest, error) {
	const q = `SELECT id, tenant_id, full_name, phone, email, household, total_guests, invite_code, created_at, updated_at
	           FROM guests WHERE tenant_id = ? AND UPPER(invite_code) = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, q, tenantID, strings.ToUpper(strings.TrimSpace(code))))
}

// ListByTenant returns all guests of a tenant ordered by name.
func (r *GuestRepo) ListByTenant(ctx context.Context, tenantID uint64) ([]model.Guest, error) {
	const q = `SELECT id, tenant_id, full_name, phone, email, household, total_guests, invite_code, created_at, updated_at
	           FROM guests WHERE tenant_id = ? ORDER BY full_name`
	rows, err := r.db.QueryContext(ctx, q, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanAll(rows)
}

// ListByIDs returns the subset of ids that exist under the tenant.
// Callers that require all ids to be valid must compare lengths.
func (r *GuestRepo) ListByIDs(ctx context.Context, tenantID uint64, ids []uint64) ([]model.Guest, error) {
	if len(ids) == 0 {
		return []model.Guest{}, nil
	}
	q := `SELECT id, tenant_id, full_name, phone, email, household, total_guests, invite_code, created_at, updated_at
	      FROM guests WHERE tenant_id = ? AND id IN (`
	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, tenantID)
	for i, id := range ids {
		if i > 0 {
			q += ","
		}
		q += "?"
		args = append(args, id)
	}
	q += ")"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanAll(rows)
}

func (r *GuestRepo) scanOne(row *sql.Row) (*model.Guest, error) {
	var g model.Guest
	var household sql.NullString
	err := row.Scan(&g.ID, &g.TenantID, &g.FullName, &g.Phone, &g.Email,
		&household, &g.TotalGuests, &g.InviteCode, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGuestNotFound
		}
		return nil, err
	}
	if household.Valid {
		h := household.String
		g.Household = &h
	}
	return &g, nil
}

func (r *GuestRepo) scanAll(rows *sql.Rows) ([]model.Guest, error) {
	var result []model.Guest
	for rows.Next() {
		var g model.Guest
		var household sql.NullString
		if err := rows.Scan(&g.ID, &g.TenantID, &g.FullName, &g.Phone, &g.Email,
			&household, &g.TotalGuests, &g.InviteCode, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		if household.Valid {
			h := household.String
			g.Household = &h
		}
		result = append(result, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
