package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/avivron/weddinghub/internal/model"
)

// SeatingRepo provides data access to the seating_tables and seats
// tables.  Tenant ownership of a seat is derived transitively:
// seat → table → event → tenant; every scoped query joins that path.
// Two unique keys back the allocator's conflict rules:
//   uq_seats_table_number  (table_id, seat_number)
//   uq_seats_table_guest   (table_id, guest_id)
// MySQL permits multiple NULL guest_id values under the second key,
// so free seats never collide.
type SeatingRepo struct {
	db *sql.DB
}

// NewSeatingRepo constructs a SeatingRepo with the given DB handle.
func NewSeatingRepo(db *sql.DB) *SeatingRepo { return &SeatingRepo{db: db} }

// CreateTable inserts a table and its numbered seats (1..capacity)
// in one transaction.
func (r *SeatingRepo) CreateTable(ctx context.Context, t *model.SeatingTable) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	const q = `INSERT INTO seating_tables (event_id, name, capacity, pos_x, pos_y) VALUES (?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, t.EventID, t.Name, t.Capacity, t.PosX, t.PosY)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)

	if t.Capacity > 0 {
		ins := `INSERT INTO seats (table_id, seat_number) VALUES `
		args := make([]interface{}, 0, int(t.Capacity)*2)
		for n := uint32(1); n <= t.Capacity; n++ {
			if n > 1 {
				ins += ","
			}
			ins += "(?, ?)"
			args = append(args, t.ID, n)
		}
		if _, err := tx.ExecContext(ctx, ins, args...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetTableByIDAndTenant retrieves a table while enforcing tenant
// ownership through the events join.
func (r *SeatingRepo) GetTableByIDAndTenant(ctx context.Context, id, tenantID uint64) (*model.SeatingTable, error) {
	const q = `SELECT t.id, t.event_id, t.name, t.capacity, t.pos_x, t.pos_y, t.created_at, t.updated_at
	           FROM seating_tables t
	           JOIN events e ON e.id = t.event_id
	           WHERE t.id = ? AND e.tenant_id = ?`
	var t model.SeatingTable
	err := r.db.QueryRowContext(ctx, q, id, tenantID).
		Scan(&t.ID, &t.EventID, &t.Name, &t.Capacity, &t.PosX, &t.PosY, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTableNotFound
		}
		return nil, err
	}
	return &t, nil
}

// ListTablesByEvent returns the tables of an event within the tenant
// scope.
func (r *SeatingRepo) ListTablesByEvent(ctx context.Context, eventID, tenantID uint64) ([]model.SeatingTable, error) {
	const q = `SELECT t.id, t.event_id, t.name, t.capacity, t.pos_x, t.pos_y, t.created_at, t.updated_at
	           FROM seating_tables t
	           JOIN events e ON e.id = t.event_id
	           WHERE t.event_id = ? AND e.tenant_id = ?
	           ORDER BY t.id`
	rows, err := r.db.QueryContext(ctx, q, eventID, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.SeatingTable
	for rows.Next() {
		var t model.SeatingTable
		if err := rows.Scan(&t.ID, &t.EventID, &t.Name, &t.Capacity, &t.PosX, &t.PosY, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ListSeats returns all seats of a table ordered by seat number.
func (r *SeatingRepo) ListSeats(ctx context.Context, tableID uint64) ([]model.Seat, error) {
	const q = `SELECT id, table_id, seat_number, guest_id, created_at, updated_at
	           FROM seats WHERE table_id = ? ORDER BY seat_number`
	rows, err := r.db.QueryContext(ctx, q, tableID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Seat
	for rows.Next() {
		var s model.Seat
		var guest sql.NullInt64
		if err := rows.Scan(&s.ID, &s.TableID, &s.SeatNumber, &guest, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		if guest.Valid {
			g := uint64(guest.Int64)
			s.GuestID = &g
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// GetSeatByIDAndTenant retrieves a seat while enforcing tenant
// ownership through the table → event join.
func (r *SeatingRepo) GetSeatByIDAndTenant(ctx context.Context, id, tenantID uint64) (*model.Seat, error) {
	const q = `SELECT s.id, s.table_id, s.seat_number, s.guest_id, s.created_at, s.updated_at
	           FROM seats s
	           JOIN seating_tables t ON t.id = s.table_id
	           JOIN events e ON e.id = t.event_id
	           WHERE s.id = ? AND e.tenant_id = ?`
	var s model.Seat
	var guest sql.NullInt64
	err := r.db.QueryRowContext(ctx, q, id, tenantID).
		Scan(&s.ID, &s.TableID, &s.SeatNumber, &guest, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSeatNotFound
		}
		return nil, err
	}
	if guest.Valid {
		g := uint64(guest.Int64)
		s.GuestID = &g
	}
	return &s, nil
}

// AssignSeat places a guest on (table, seatNumber) with a single
// conditional write.  The update only matches while the seat is free
// or already held by the same guest, so the occupancy check and the
// write cannot be split by a concurrent assignment:
//   - zero matched rows  → the seat is occupied by someone else
//     (ErrSeatTaken) or the seat number does not exist
//     (ErrSeatNotFound); a follow-up read distinguishes the two.
//   - duplicate key on uq_seats_table_guest → the guest already
//     holds a different seat at this table (ErrGuestAlreadySeated).
func (r *SeatingRepo) AssignSeat(ctx context.Context, tableID uint64, seatNumber uint32, guestID uint64) (*model.Seat, error) {
	const q = `UPDATE seats
	           SET guest_id = ?, updated_at = UTC_TIMESTAMP()
	           WHERE table_id = ? AND seat_number = ? AND (guest_id IS NULL OR guest_id = ?)`
	res, err := r.db.ExecContext(ctx, q, guestID, tableID, seatNumber, guestID)
	if err != nil {
		if isDuplicate(err) && strings.Contains(err.Error(), "uq_seats_table_guest") {
			return nil, ErrGuestAlreadySeated
		}
		return nil, err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		if _, lookErr := r.getSeatByNumber(ctx, tableID, seatNumber); lookErr != nil {
			return nil, lookErr
		}
		return nil, ErrSeatTaken
	}
	return r.getSeatByNumber(ctx, tableID, seatNumber)
}

// ClearSeat removes the occupant of a seat.  Clearing an already
// empty seat is a successful no-op.
func (r *SeatingRepo) ClearSeat(ctx context.Context, seatID uint64) error {
	const q = `UPDATE seats SET guest_id = NULL, updated_at = UTC_TIMESTAMP() WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, seatID)
	return err
}

// TablePosition is one table's new canvas coordinates.
type TablePosition struct {
	TableID uint64  `json:"table_id"`
	PosX    float64 `json:"pos_x"`
	PosY    float64 `json:"pos_y"`
}

// CountTablesOwned returns how many of the given table ids belong to
// the tenant.  Batch position moves pre-validate with this before
// writing anything.
func (r *SeatingRepo) CountTablesOwned(ctx context.Context, tenantID uint64, ids []uint64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	q := `SELECT COUNT(*) FROM seating_tables t
	      JOIN events e ON e.id = t.event_id
	      WHERE e.tenant_id = ? AND t.id IN (`
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

// UpdateTablePositions applies all coordinate updates inside one
// transaction.  Callers must have pre-validated ownership of every
// id; the transaction keeps the batch all-or-nothing regardless.
func (r *SeatingRepo) UpdateTablePositions(ctx context.Context, updates []TablePosition) error {
	if len(updates) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	const q = `UPDATE seating_tables SET pos_x = ?, pos_y = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`
	for _, u := range updates {
		if _, err := tx.ExecContext(ctx, q, u.PosX, u.PosY, u.TableID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *SeatingRepo) getSeatByNumber(ctx context.Context, tableID uint64, seatNumber uint32) (*model.Seat, error) {
	const q = `SELECT id, table_id, seat_number, guest_id, created_at, updated_at
	           FROM seats WHERE table_id = ? AND seat_number = ?`
	var s model.Seat
	var guest sql.NullInt64
	err := r.db.QueryRowContext(ctx, q, tableID, seatNumber).
		Scan(&s.ID, &s.TableID, &s.SeatNumber, &guest, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSeatNotFound
		}
		return nil, err
	}
	if guest.Valid {
		g := uint64(guest.Int64)
		s.GuestID = &g
	}
	return &s, nil
}
