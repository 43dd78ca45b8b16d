package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/avivron/weddinghub/internal/model"
)

// EventRepo provides data access to the events table.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo constructs an EventRepo with the given DB handle.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// Create inserts an event record. On success the event's ID is populated.
func (r *EventRepo) Create(ctx context.Context, e *model.Event) error {
	const q = `INSERT INTO events (tenant_id, name, venue, starts_at) VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, e.TenantID, e.Name, e.Venue, e.StartsAt.UTC())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	return nil
}

// GetByIDAndTenant retrieves an event by id within the tenant scope.
func (r *EventRepo) GetByIDAndTenant(ctx context.Context, id, tenantID uint64) (*model.Event, error) {
	const q = `SELECT id, tenant_id, name, venue, starts_at, created_at, updated_at
	           FROM events WHERE id = ? AND tenant_id = ?`
	var e model.Event
	err := r.db.QueryRowContext(ctx, q, id, tenantID).
		Scan(&e.ID, &e.TenantID, &e.Name, &e.Venue, &e.StartsAt, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return &e, nil
}

// ListByTenant returns all events of a tenant ordered by start time.
func (r *EventRepo) ListByTenant(ctx context.Context, tenantID uint64) ([]model.Event, error) {
	const q = `SELECT id, tenant_id, name, venue, starts_at, created_at, updated_at
	           FROM events WHERE tenant_id = ? ORDER BY starts_at`
	rows, err := r.db.QueryContext(ctx, q, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.TenantID, &e.Name, &e.Venue, &e.StartsAt, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// CountByIDsAndTenant returns how many of the given event ids exist
// under the tenant.  Bulk operations use this to pre-validate a
// mixed batch before touching anything.
func (r *EventRepo) CountByIDsAndTenant(ctx context.Context, tenantID uint64, ids []uint64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	q := `SELECT COUNT(*) FROM events WHERE tenant_id = ? AND id IN (`
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
	var n int
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
