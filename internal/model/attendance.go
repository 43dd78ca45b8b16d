package model

import "time"

// Attendance marks a completed check-in for one invitation event.
// The existence of the row *is* the checked-in signal; there is no
// separate boolean.  A unique key on invitation_event_id makes
// creation exactly-once even under duplicate QR scans.
//
// Fields:
//  ID                – primary key identifier.
//  InvitationEventID – the invitation event that was checked in.
//  CheckedInAt       – when the guest first passed the door.
type Attendance struct {
	ID                uint64    // attendance.id
	InvitationEventID uint64    // attendance.invitation_event_id (unique)
	CheckedInAt       time.Time // attendance.checked_in_at
}
