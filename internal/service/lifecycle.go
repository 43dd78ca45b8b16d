// Package service implements the guest-communication and attendance
// engine: RSVP/check-in lifecycle, the daily notify limiter, the
// resumable batch dispatcher and the seating allocator.  Services
// accept narrow store interfaces so tests can substitute in-memory
// fakes with deterministic time.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/avivron/weddinghub/internal/cache"
	"github.com/avivron/weddinghub/internal/model"
	"github.com/avivron/weddinghub/internal/queue"
	"github.com/avivron/weddinghub/internal/repository"
)

// ErrValidation marks malformed caller input; handlers translate it
// to HTTP 400.
var ErrValidation = errors.New("invalid input")

// InvitationStore is the slice of the invitation repository the
// lifecycle service needs.
type InvitationStore interface {
	GetByToken(ctx context.Context, token string) (*model.Invitation, error)
	GetByGuest(ctx context.Context, tenantID, guestID uint64) (*model.Invitation, error)
	GetEvent(ctx context.Context, invitationID, eventID uint64) (*model.InvitationEvent, error)
	GetSoleEvent(ctx context.Context, invitationID uint64) (*model.InvitationEvent, error)
	UpdateRSVP(ctx context.Context, token string, eventID uint64, status model.RSVPStatus, headcount uint32) error
}

// GuestResolver resolves guests for door check-in.
type GuestResolver interface {
	GetByInviteCode(ctx context.Context, tenantID uint64, code string) (*model.Guest, error)
	GetByIDAndTenant(ctx context.Context, id, tenantID uint64) (*model.Guest, error)
}

// AttendanceStore creates exactly-once attendance rows.
type AttendanceStore interface {
	Create(ctx context.Context, a *model.Attendance) error
}

// Publisher emits domain events to the broker after commits.  A nil
// publisher is allowed and disables events.
type Publisher interface {
	GuestCheckedIn(ctx context.Context, ev queue.GuestCheckedInEvent)
	RSVPRecorded(ctx context.Context, ev queue.RSVPRecordedEvent)
	AnnouncementCompleted(ctx context.Context, ev queue.AnnouncementCompletedEvent)
}

// Lifecycle is the authoritative state machine for InvitationEvent
// status and attendance.  Per invitation event the RSVP moves
// invited → {accepted, declined} and may flip between the two on
// repeated submissions; attendance moves one-way from "no record" to
// "record exists" and is only reachable from accepted.
type Lifecycle struct {
	invitations InvitationStore
	guests      GuestResolver
	attendance  AttendanceStore
	versions    *cache.Versions
	pub         Publisher
	maxParty    uint32
	log         zerolog.Logger
}

// NewLifecycle constructs the lifecycle service.  maxParty caps the
// headcount any single RSVP may claim.
func NewLifecycle(inv InvitationStore, guests GuestResolver, att AttendanceStore,
	versions *cache.Versions, pub Publisher, maxParty uint32, log zerolog.Logger) *Lifecycle {
	if maxParty == 0 {
		maxParty = 12
	}
	return &Lifecycle{
		invitations: inv,
		guests:      guests,
		attendance:  att,
		versions:    versions,
		pub:         pub,
		maxParty:    maxParty,
		log:         log.With().Str("component", "lifecycle").Logger(),
	}
}

// RecordRSVP overwrites the RSVP answer of the invitation event
// addressed by (token, event).  Resubmitting the same answer is
// idempotent: the single row is updated in place, never duplicated,
// and the last write wins.  The headcount is clamped to the
// configured party-size limit.  tenantID may be zero for the public
// token flow; when non-zero it is double-checked against the
// invitation's tenant.
func (s *Lifecycle) RecordRSVP(ctx context.Context, tenantID uint64, token string, eventID uint64, response model.RSVPStatus, headcount uint32) (*model.InvitationEvent, error) {
	if response != model.RSVPAccepted && response != model.RSVPDeclined {
		return nil, fmt.Errorf("%w: response must be accepted or declined", ErrValidation)
	}
	inv, err := s.invitations.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if tenantID != 0 && inv.TenantID != tenantID {
		// Cross-tenant references read as absent.
		return nil, repository.ErrInvitationNotFound
	}
	if response == model.RSVPDeclined {
		headcount = 0
	}
	if headcount > s.maxParty {
		headcount = s.maxParty
	}
	if err := s.invitations.UpdateRSVP(ctx, token, eventID, response, headcount); err != nil {
		return nil, err
	}
	ie, err := s.invitations.GetEvent(ctx, inv.ID, eventID)
	if err != nil {
		return nil, err
	}
	s.versions.Bump(ctx, inv.TenantID)
	if s.pub != nil {
		s.pub.RSVPRecorded(ctx, queue.RSVPRecordedEvent{
			TenantID:     inv.TenantID,
			InvitationID: inv.ID,
			EventID:      eventID,
			Status:       string(response),
			Headcount:    headcount,
			RecordedAt:   time.Now().UTC().Format(time.RFC3339),
		})
	}
	s.log.Info().Uint64("tenant_id", inv.TenantID).Uint64("event_id", eventID).
		Str("status", string(response)).Uint32("headcount", headcount).Msg("rsvp recorded")
	return ie, nil
}

// CheckInResult reports a completed (or already completed) check-in.
type CheckInResult struct {
	GuestName   string    `json:"guest_name"`
	Headcount   uint32    `json:"headcount"`
	EventID     uint64    `json:"event_id"`
	CheckedInAt time.Time `json:"checked_in_at"`
}

// CheckIn marks the guest as attended for the event, resolved by
// their door code.  The invitation event must have been accepted.
// Creation is exactly-once: under N concurrent scans exactly one
// succeeds and the rest receive ErrAlreadyCheckedIn carrying the
// surviving row's timestamp.
func (s *Lifecycle) CheckIn(ctx context.Context, tenantID uint64, inviteCode string, eventID uint64) (*CheckInResult, error) {
	guest, err := s.guests.GetByInviteCode(ctx, tenantID, inviteCode)
	if err != nil {
		return nil, err
	}
	inv, err := s.invitations.GetByGuest(ctx, tenantID, guest.ID)
	if err != nil {
		return nil, err
	}
	ie, err := s.invitations.GetEvent(ctx, inv.ID, eventID)
	if err != nil {
		return nil, err
	}
	return s.complete(ctx, inv, guest.FullName, ie)
}

// CheckInByToken is the single-event variant used by QR scans: the
// invitation token alone identifies the invitation event.  It fails
// with a conflict when the invitation spans multiple events, since
// the scanner then has to say which event it is working.
func (s *Lifecycle) CheckInByToken(ctx context.Context, tenantID uint64, token string) (*CheckInResult, error) {
	inv, err := s.invitations.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if tenantID != 0 && inv.TenantID != tenantID {
		return nil, repository.ErrInvitationNotFound
	}
	ie, err := s.invitations.GetSoleEvent(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	name := ""
	if guest, gerr := s.guests.GetByIDAndTenant(ctx, inv.GuestID, inv.TenantID); gerr == nil {
		name = guest.FullName
	}
	return s.complete(ctx, inv, name, ie)
}

func (s *Lifecycle) complete(ctx context.Context, inv *model.Invitation, guestName string, ie *model.InvitationEvent) (*CheckInResult, error) {
	if ie.Status != model.RSVPAccepted {
		return nil, repository.ErrNotAccepted
	}
	att := &model.Attendance{InvitationEventID: ie.ID}
	if err := s.attendance.Create(ctx, att); err != nil {
		return nil, err
	}
	s.versions.Bump(ctx, inv.TenantID)
	if s.pub != nil {
		s.pub.GuestCheckedIn(ctx, queue.GuestCheckedInEvent{
			TenantID:    inv.TenantID,
			GuestID:     inv.GuestID,
			GuestName:   guestName,
			EventID:     ie.EventID,
			Headcount:   ie.Headcount,
			CheckedInAt: att.CheckedInAt.UTC().Format(time.RFC3339),
		})
	}
	s.log.Info().Uint64("tenant_id", inv.TenantID).Uint64("guest_id", inv.GuestID).
		Uint64("event_id", ie.EventID).Msg("guest checked in")
	return &CheckInResult{
		GuestName:   guestName,
		Headcount:   ie.Headcount,
		EventID:     ie.EventID,
		CheckedInAt: att.CheckedInAt,
	}, nil
}
