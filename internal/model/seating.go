package model

import "time"

// SeatingTable is a physical table on the seating canvas of one
// event.  Its tenant ownership is derived transitively through the
// event.  PosX/PosY are canvas coordinates for the planner UI.
//
// Fields:
//  ID        – primary key identifier.
//  EventID   – event this table belongs to.
//  Name      – table label (e.g. "Family", "Table 7").
//  Capacity  – number of seats at the table.
//  PosX      – horizontal canvas coordinate.
//  PosY      – vertical canvas coordinate.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type SeatingTable struct {
	ID        uint64    // seating_tables.id
	EventID   uint64    // seating_tables.event_id
	Name      string    // seating_tables.name
	Capacity  uint32    // seating_tables.capacity
	PosX      float64   // seating_tables.pos_x
	PosY      float64   // seating_tables.pos_y
	CreatedAt time.Time // seating_tables.created_at
	UpdatedAt time.Time // seating_tables.updated_at
}

// Seat is one numbered seat at a table, optionally occupied by a
// guest.  Seat numbers are unique within a table and a guest may
// occupy at most one seat per table; both rules are backed by unique
// keys so concurrent assignments resolve at the database.
//
// Fields:
//  ID         – primary key identifier.
//  TableID    – table this seat belongs to.
//  SeatNumber – 1-based position at the table.
//  GuestID    – occupant, nil while the seat is free.
//  CreatedAt  – creation timestamp.
//  UpdatedAt  – last update timestamp.
type Seat struct {
	ID         uint64    // seats.id
	TableID    uint64    // seats.table_id
	SeatNumber uint32    // seats.seat_number
	GuestID    *uint64   // seats.guest_id (nullable)
	CreatedAt  time.Time // seats.created_at
	UpdatedAt  time.Time // seats.updated_at
}
