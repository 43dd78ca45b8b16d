package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/avivron/weddinghub/internal/model"
)

// AttendanceRepo provides data access to the attendance table.  The
// table carries a unique key on invitation_event_id, which is what
// turns check-in into an exactly-once operation: the insert either
// creates the single attendance row or collides with the one that
// already exists.
type AttendanceRepo struct {
	db *sql.DB
}

// NewAttendanceRepo constructs an AttendanceRepo with the given DB handle.
func NewAttendanceRepo(db *sql.DB) *AttendanceRepo { return &AttendanceRepo{db: db} }

// Create records a check-in for the invitation event.  The insert is
// the atomic conditional write; no prior existence check is made.
// On a duplicate-key collision the original row is fetched and an
// *AlreadyCheckedInError carrying its timestamp is returned, so
// repeated QR scans all report the same first-entry time.
func (r *AttendanceRepo) Create(ctx context.Context, a *model.Attendance) error {
	const q = `INSERT INTO attendance (invitation_event_id, checked_in_at) VALUES (?, UTC_TIMESTAMP())`
	res, err := r.db.ExecContext(ctx, q, a.InvitationEventID)
	if err != nil {
		if isDuplicate(err) {
			existing, getErr := r.GetByInvitationEvent(ctx, a.InvitationEventID)
			if getErr != nil {
				// The row must exist for the insert to have collided;
				// treat a read failure here as infrastructure trouble.
				return getErr
			}
			return &AlreadyCheckedInError{At: existing.CheckedInAt}
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	fresh, err := r.GetByInvitationEvent(ctx, a.InvitationEventID)
	if err == nil {
		a.CheckedInAt = fresh.CheckedInAt
	}
	return nil
}

// GetByInvitationEvent returns the attendance row for an invitation
// event, or ErrInvitationEventNotFound when no check-in was recorded.
func (r *AttendanceRepo) GetByInvitationEvent(ctx context.Context, invitationEventID uint64) (*model.Attendance, error) {
	const q = `SELECT id, invitation_event_id, checked_in_at FROM attendance WHERE invitation_event_id = ?`
	var a model.Attendance
	err := r.db.QueryRowContext(ctx, q, invitationEventID).
		Scan(&a.ID, &a.InvitationEventID, &a.CheckedInAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvitationEventNotFound
		}
		return nil, err
	}
	return &a, nil
}

// CountByEvent returns how many invitation events of the given event
// have been checked in.  Used for the live headcount on the door
// dashboard.
func (r *AttendanceRepo) CountByEvent(ctx context.Context, eventID uint64) (int, error) {
	const q = `SELECT COUNT(*) FROM attendance a
	           JOIN invitation_events ie ON ie.id = a.invitation_event_id
	           WHERE ie.event_id = ?`
	var n int
	if err := r.db.QueryRowContext(ctx, q, eventID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
