package model

import "time"

// Tenant is a single wedding workspace.  Every domain entity in the
// system belongs to exactly one tenant and must never be visible
// across tenant boundaries.
//
// Fields:
//  ID          – primary key identifier.
//  Name        – display name of the wedding (e.g. "Dana & Omer").
//  Slug        – short URL-safe identifier for the tenant.
//  WeddingDate – date of the main event, if set.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Tenant struct {
	ID          uint64     // tenants.id
	Name        string     // tenants.name
	Slug        string     // tenants.slug
	WeddingDate *time.Time // tenants.wedding_date (nullable)
	CreatedAt   time.Time  // tenants.created_at
	UpdatedAt   time.Time  // tenants.updated_at
}
