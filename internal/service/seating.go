package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/avivron/weddinghub/internal/cache"
	"github.com/avivron/weddinghub/internal/model"
	"github.com/avivron/weddinghub/internal/repository"
)

// SeatStore is the slice of the seating repository the allocator
// consumes.
type SeatStore interface {
	CreateTable(ctx context.Context, t *model.SeatingTable) error
	GetTableByIDAndTenant(ctx context.Context, id, tenantID uint64) (*model.SeatingTable, error)
	ListTablesByEvent(ctx context.Context, eventID, tenantID uint64) ([]model.SeatingTable, error)
	ListSeats(ctx context.Context, tableID uint64) ([]model.Seat, error)
	GetSeatByIDAndTenant(ctx context.Context, id, tenantID uint64) (*model.Seat, error)
	AssignSeat(ctx context.Context, tableID uint64, seatNumber uint32, guestID uint64) (*model.Seat, error)
	ClearSeat(ctx context.Context, seatID uint64) error
	CountTablesOwned(ctx context.Context, tenantID uint64, ids []uint64) (int, error)
	UpdateTablePositions(ctx context.Context, updates []repository.TablePosition) error
}

// EventVerifier confirms an event belongs to the tenant before a
// table is created under it.
type EventVerifier interface {
	GetByIDAndTenant(ctx context.Context, id, tenantID uint64) (*model.Event, error)
}

// Seating is the allocator over tables and their fixed seat grids.
// A seat holds at most one guest and a guest holds at most one seat
// per table; both rules are enforced by the storage layer's
// conditional writes, so concurrent assignments of the same seat
// resolve to exactly one winner.
type Seating struct {
	seats    SeatStore
	events   EventVerifier
	guests   GuestResolver
	versions *cache.Versions
	log      zerolog.Logger
}

// NewSeating constructs the seating allocator.
func NewSeating(seats SeatStore, events EventVerifier, guests GuestResolver, versions *cache.Versions, log zerolog.Logger) *Seating {
	return &Seating{
		seats:    seats,
		events:   events,
		guests:   guests,
		versions: versions,
		log:      log.With().Str("component", "seating").Logger(),
	}
}

// CreateTable creates a table under the event together with its
// capacity-many seats, numbered from 1.
func (s *Seating) CreateTable(ctx context.Context, tenantID uint64, t *model.SeatingTable) (*model.SeatingTable, error) {
	if t.Name == "" {
		return nil, fmt.Errorf("%w: table name is required", ErrValidation)
	}
	if t.Capacity == 0 || t.Capacity > 50 {
		return nil, fmt.Errorf("%w: capacity must be between 1 and 50", ErrValidation)
	}
	if _, err := s.events.GetByIDAndTenant(ctx, t.EventID, tenantID); err != nil {
		return nil, err
	}
	if err := s.seats.CreateTable(ctx, t); err != nil {
		return nil, err
	}
	s.versions.Bump(ctx, tenantID)
	s.log.Info().Uint64("table_id", t.ID).Uint64("event_id", t.EventID).
		Uint32("capacity", t.Capacity).Msg("table created")
	return t, nil
}

// TableView is a table with its seats.
type TableView struct {
	Table *model.SeatingTable `json:"table"`
	Seats []model.Seat        `json:"seats"`
}

// GetTable returns the table with its full seat list.
func (s *Seating) GetTable(ctx context.Context, tenantID, tableID uint64) (*TableView, error) {
	t, err := s.seats.GetTableByIDAndTenant(ctx, tableID, tenantID)
	if err != nil {
		return nil, err
	}
	seats, err := s.seats.ListSeats(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	return &TableView{Table: t, Seats: seats}, nil
}

// ListTables returns the event's tables.
func (s *Seating) ListTables(ctx context.Context, tenantID, eventID uint64) ([]model.SeatingTable, error) {
	if _, err := s.events.GetByIDAndTenant(ctx, eventID, tenantID); err != nil {
		return nil, err
	}
	return s.seats.ListTablesByEvent(ctx, eventID, tenantID)
}

// AssignSeat places the guest on the numbered seat of the table.
// Table, seat and guest must all belong to the tenant.  Re-assigning
// the same guest to the seat they already hold is idempotent; a seat
// held by someone else is ErrSeatTaken and a guest already seated
// elsewhere at the table is ErrGuestAlreadySeated.
func (s *Seating) AssignSeat(ctx context.Context, tenantID, tableID uint64, seatNumber uint32, guestID uint64) (*model.Seat, error) {
	t, err := s.seats.GetTableByIDAndTenant(ctx, tableID, tenantID)
	if err != nil {
		return nil, err
	}
	if seatNumber == 0 || seatNumber > t.Capacity {
		return nil, repository.ErrSeatNotFound
	}
	if _, err := s.guests.GetByIDAndTenant(ctx, guestID, tenantID); err != nil {
		return nil, err
	}
	seat, err := s.seats.AssignSeat(ctx, tableID, seatNumber, guestID)
	if err != nil {
		return nil, err
	}
	s.versions.Bump(ctx, tenantID)
	s.log.Info().Uint64("table_id", tableID).Uint32("seat", seatNumber).
		Uint64("guest_id", guestID).Msg("seat assigned")
	return seat, nil
}

// UnassignSeat frees the seat.  Clearing an already empty seat is a
// no-op, not an error.
func (s *Seating) UnassignSeat(ctx context.Context, tenantID, seatID uint64) error {
	seat, err := s.seats.GetSeatByIDAndTenant(ctx, seatID, tenantID)
	if err != nil {
		return err
	}
	if err := s.seats.ClearSeat(ctx, seat.ID); err != nil {
		return err
	}
	s.versions.Bump(ctx, tenantID)
	return nil
}

// MoveTables applies a set of table position updates atomically.
// Every referenced table must belong to the tenant; otherwise
// nothing moves.
func (s *Seating) MoveTables(ctx context.Context, tenantID uint64, updates []repository.TablePosition) error {
	if len(updates) == 0 {
		return nil
	}
	ids := make([]uint64, 0, len(updates))
	for _, u := range updates {
		ids = append(ids, u.TableID)
	}
	ids = dedupe(ids)
	owned, err := s.seats.CountTablesOwned(ctx, tenantID, ids)
	if err != nil {
		return err
	}
	if owned != len(ids) {
		return repository.ErrTableNotFound
	}
	if err := s.seats.UpdateTablePositions(ctx, updates); err != nil {
		return err
	}
	s.versions.Bump(ctx, tenantID)
	return nil
}
