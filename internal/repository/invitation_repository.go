package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/avivron/weddinghub/internal/model"
)

// InvitationRepo provides data access to the invitations and
// invitation_events tables.  The invitation token is the capability
// for unauthenticated flows: lookups by token carry no tenant filter
// (an unguessable token *is* the scope), but every row returned
// includes its tenant id so all follow-up queries can be scoped.
type InvitationRepo struct {
	db *sql.DB
}

// NewInvitationRepo constructs an InvitationRepo with the given DB handle.
func NewInvitationRepo(db *sql.DB) *InvitationRepo { return &InvitationRepo{db: db} }

// Create inserts an invitation for a guest.  On success the ID is
// populated.  A token collision surfaces as ErrConflict so the
// caller can regenerate and retry.
func (r *InvitationRepo) Create(ctx context.Context, inv *model.Invitation) error {
	const q = `INSERT INTO invitations (tenant_id, guest_id, token) VALUES (?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, inv.TenantID, inv.GuestID, inv.Token)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	inv.ID = uint64(id)
	return nil
}

// GetByToken resolves an invitation by its opaque token.
func (r *InvitationRepo) GetByToken(ctx context.Context, token string) (*model.Invitation, error) {
	const q = `SELECT id, tenant_id, guest_id, token, created_at, updated_at
	           FROM invitations WHERE token = ?`
	var inv model.Invitation
	err := r.db.QueryRowContext(ctx, q, token).
		Scan(&inv.ID, &inv.TenantID, &inv.GuestID, &inv.Token, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvitationNotFound
		}
		return nil, err
	}
	return &inv, nil
}

// GetByGuest returns the invitation owned by a guest within the
// tenant scope.
func (r *InvitationRepo) GetByGuest(ctx context.Context, tenantID, guestID uint64) (*model.Invitation, error) {
	const q = `SELECT id, tenant_id, guest_id, token, created_at, updated_at
	           FROM invitations WHERE tenant_id = ? AND guest_id = ?`
	var inv model.Invitation
	err := r.db.QueryRowContext(ctx, q, tenantID, guestID).
		Scan(&inv.ID, &inv.TenantID, &inv.GuestID, &inv.Token, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvitationNotFound
		}
		return nil, err
	}
	return &inv, nil
}

// InviteToEvents creates invitation_events rows with status
// "invited" for every given event.  Existing (invitation, event)
// pairs are left untouched: the unique key plus INSERT IGNORE makes
// repeated invites duplicate-safe.
func (r *InvitationRepo) InviteToEvents(ctx context.Context, invitationID uint64, eventIDs []uint64) error {
	if len(eventIDs) == 0 {
		return nil
	}
	q := `INSERT IGNORE INTO invitation_events (invitation_id, event_id, status, headcount) VALUES `
	args := make([]interface{}, 0, len(eventIDs)*4)
	for i, eid := range eventIDs {
		if i > 0 {
			q += ","
		}
		q += "(?, ?, ?, 0)"
		args = append(args, invitationID, eid, model.RSVPInvited)
	}
	_, err := r.db.ExecContext(ctx, q, args...)
	return err
}

// GetEvent returns the invitation_event for an (invitation, event) pair.
func (r *InvitationRepo) GetEvent(ctx context.Context, invitationID, eventID uint64) (*model.InvitationEvent, error) {
	const q = `SELECT id, invitation_id, event_id, status, headcount, responded_at, created_at, updated_at
	           FROM invitation_events WHERE invitation_id = ? AND event_id = ?`
	return r.scanEvent(r.db.QueryRowContext(ctx, q, invitationID, eventID))
}

// GetSoleEvent returns the invitation's only invitation_event.  It
// is used by token-only check-in for single-event weddings and
// reports ErrConflict when the invitation spans several events, so
// the caller knows an event id is required.
func (r *InvitationRepo) GetSoleEvent(ctx context.Context, invitationID uint64) (*model.InvitationEvent, error) {
	const countQ = `SELECT COUNT(*) FROM invitation_events WHERE invitation_id = ?`
	var n int
	if err := r.db.QueryRowContext(ctx, countQ, invitationID).Scan(&n); err != nil {
		return nil, err
	}
	switch {
	case n == 0:
		return nil, ErrInvitationEventNotFound
	case n > 1:
		return nil, ErrConflict
	}
	const q = `SELECT id, invitation_id, event_id, status, headcount, responded_at, created_at, updated_at
	           FROM invitation_events WHERE invitation_id = ?`
	return r.scanEvent(r.db.QueryRowContext(ctx, q, invitationID))
}

// InvitationEventDetail joins an invitation_event with its event for
// display on the public RSVP page.
type InvitationEventDetail struct {
	model.InvitationEvent
	EventName string    `json:"event_name"`
	Venue     string    `json:"venue"`
	StartsAt  time.Time `json:"starts_at"`
}

// ListEvents returns all invitation_events of an invitation together
// with their event details, ordered by event start time.
func (r *InvitationRepo) ListEvents(ctx context.Context, invitationID uint64) ([]InvitationEventDetail, error) {
	const q = `SELECT ie.id, ie.invitation_id, ie.event_id, ie.status, ie.headcount, ie.responded_at,
	                  ie.created_at, ie.updated_at, e.name, e.venue, e.starts_at
	           FROM invitation_events ie
	           JOIN events e ON e.id = ie.event_id
	           WHERE ie.invitation_id = ?
	           ORDER BY e.starts_at`
	rows, err := r.db.QueryContext(ctx, q, invitationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []InvitationEventDetail
	for rows.Next() {
		var d InvitationEventDetail
		var responded sql.NullTime
		if err := rows.Scan(&d.ID, &d.InvitationID, &d.EventID, &d.Status, &d.Headcount,
			&responded, &d.CreatedAt, &d.UpdatedAt, &d.EventName, &d.Venue, &d.StartsAt); err != nil {
			return nil, err
		}
		if responded.Valid {
			t := responded.Time
			d.RespondedAt = &t
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateRSVP overwrites the status and headcount of the
// invitation_event addressed by (token, event) in one statement.
// Joining through invitations keeps resolution and write atomic, so
// concurrent duplicate submissions cannot interleave partial
// updates; the last write wins.  Zero matched rows means no such
// invitation_event exists.
//
// The connection must be opened with clientFoundRows so that a
// value-identical resubmission still counts as a match.
func (r *InvitationRepo) UpdateRSVP(ctx context.Context, token string, eventID uint64, status model.RSVPStatus, headcount uint32) error {
	const q = `UPDATE invitation_events ie
	           JOIN invitations i ON i.id = ie.invitation_id
	           SET ie.status = ?, ie.headcount = ?, ie.responded_at = UTC_TIMESTAMP(), ie.updated_at = UTC_TIMESTAMP()
	           WHERE i.token = ? AND ie.event_id = ?`
	res, err := r.db.ExecContext(ctx, q, status, headcount, token, eventID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrInvitationEventNotFound
	}
	return nil
}

// InviteTarget is one deliverable invitation for a bulk-invite run:
// the invitation plus the contact details of its guest.
type InviteTarget struct {
	InvitationID uint64
	Token        string
	GuestID      uint64
	GuestName    string
	Phone        string
	Email        string
}

// ListInviteTargets returns the distinct invitations that have an
// invitation_event in any of the given events, scoped to the tenant.
func (r *InvitationRepo) ListInviteTargets(ctx context.Context, tenantID uint64, eventIDs []uint64) ([]InviteTarget, error) {
	if len(eventIDs) == 0 {
		return []InviteTarget{}, nil
	}
	q := `SELECT DISTINCT i.id, i.token, g.id, g.full_name, g.phone, g.email
	      FROM invitations i
	      JOIN invitation_events ie ON ie.invitation_id = i.id
	      JOIN guests g ON g.id = i.guest_id
	      WHERE i.tenant_id = ? AND ie.event_id IN (`
	args := make([]interface{}, 0, len(eventIDs)+1)
	args = append(args, tenantID)
	for i, eid := range eventIDs {
		if i > 0 {
			q += ","
		}
		q += "?"
		args = append(args, eid)
	}
	q += ") ORDER BY g.full_name"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []InviteTarget
	for rows.Next() {
		var t InviteTarget
		if err := rows.Scan(&t.InvitationID, &t.Token, &t.GuestID, &t.GuestName, &t.Phone, &t.Email); err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *InvitationRepo) scanEvent(row *sql.Row) (*model.InvitationEvent, error) {
	var ie model.InvitationEvent
	var responded sql.NullTime
	err := row.Scan(&ie.ID, &ie.InvitationID, &ie.EventID, &ie.Status, &ie.Headcount,
		&responded, &ie.CreatedAt, &ie.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvitationEventNotFound
		}
		return nil, err
	}
	if responded.Valid {
		t := responded.Time
		ie.RespondedAt = &t
	}
	return &ie, nil
}
