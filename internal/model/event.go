package model

import "time"

// Event is one occasion within a wedding (ceremony, reception,
// henna, brunch).  Guests relate to events through invitation
// events, never directly.
//
// Fields:
//  ID        – primary key identifier.
//  TenantID  – owning tenant.
//  Name      – event name shown to guests.
//  Venue     – free-form venue/address text.
//  StartsAt  – scheduled start time in UTC.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Event struct {
	ID        uint64    // events.id
	TenantID  uint64    // events.tenant_id
	Name      string    // events.name
	Venue     string    // events.venue
	StartsAt  time.Time // events.starts_at
	CreatedAt time.Time // events.created_at
	UpdatedAt time.Time // events.updated_at
}
