package model

import "time"

// RSVPStatus enumerates the per-event answer of a guest.  The status
// starts as INVITED and may flip between ACCEPTED and DECLINED on
// repeated submissions; there is no terminal RSVP state.
type RSVPStatus string

const (
	RSVPInvited  RSVPStatus = "invited"
	RSVPAccepted RSVPStatus = "accepted"
	RSVPDeclined RSVPStatus = "declined"
)

// Valid reports whether s is one of the known RSVP statuses.
func (s RSVPStatus) Valid() bool {
	switch s {
	case RSVPInvited, RSVPAccepted, RSVPDeclined:
		return true
	}
	return false
}

// Invitation grants one guest unauthenticated access to their RSVP
// and QR flow through an opaque token.  In the common case each
// guest owns exactly one invitation.
//
// Fields:
//  ID        – primary key identifier.
//  TenantID  – owning tenant.
//  GuestID   – guest this invitation belongs to.
//  Token     – opaque unguessable identifier used in public URLs.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Invitation struct {
	ID        uint64    // invitations.id
	TenantID  uint64    // invitations.tenant_id
	GuestID   uint64    // invitations.guest_id
	Token     string    // invitations.token (unique)
	CreatedAt time.Time // invitations.created_at
	UpdatedAt time.Time // invitations.updated_at
}

// InvitationEvent is the RSVP unit: one invitation's status for one
// event.  At most one row exists per (invitation, event) pair; the
// database enforces this with a unique key so concurrent duplicate
// submissions collapse onto the same row.
//
// Fields:
//  ID           – primary key identifier.
//  InvitationID – the invitation.
//  EventID      – the event.
//  Status       – invited | accepted | declined.
//  Headcount    – party size accepted for this event.
//  RespondedAt  – time of the most recent RSVP submission.
//  CreatedAt    – creation timestamp.
//  UpdatedAt    – last update timestamp.
type InvitationEvent struct {
	ID           uint64     // invitation_events.id
	InvitationID uint64     // invitation_events.invitation_id
	EventID      uint64     // invitation_events.event_id
	Status       RSVPStatus // invitation_events.status
	Headcount    uint32     // invitation_events.headcount
	RespondedAt  *time.Time // invitation_events.responded_at (nullable)
	CreatedAt    time.Time  // invitation_events.created_at
	UpdatedAt    time.Time  // invitation_events.updated_at
}
