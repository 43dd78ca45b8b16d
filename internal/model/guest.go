package model

import "time"

// Guest is a person (or the head of a party) invited to a tenant's
// wedding.  The invite code is a short guest-facing identifier used
// for manual check-in lookup; it is unique within a tenant but not
// globally.  TotalGuests is the party size capacity used to compute
// headcounts when the guest accepts.
//
// Fields:
//  ID          – primary key identifier.
//  TenantID    – owning tenant.
//  FullName    – guest display name.
//  Phone       – phone number in whatever format the couple entered.
//  Email       – email address, may be empty.
//  Household   – optional household grouping label.
//  TotalGuests – maximum party size for this guest.
//  InviteCode  – short code unique per tenant, used at the door.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Guest struct {
	ID          uint64    // guests.id
	TenantID    uint64    // guests.tenant_id
	FullName    string    // guests.full_name
	Phone       string    // guests.phone
	Email       string    // guests.email
	Household   *string   // guests.household (nullable)
	TotalGuests uint32    // guests.total_guests
	InviteCode  string    // guests.invite_code (unique per tenant)
	CreatedAt   time.Time // guests.created_at
	UpdatedAt   time.Time // guests.updated_at
}
