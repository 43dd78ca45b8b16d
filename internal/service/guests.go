package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/avivron/weddinghub/internal/cache"
	"github.com/avivron/weddinghub/internal/model"
	"github.com/avivron/weddinghub/internal/repository"
	"github.com/avivron/weddinghub/internal/utils"
)

// GuestWriter is the slice of the guest repository the onboarding
// service uses.
type GuestWriter interface {
	Create(ctx context.Context, g *model.Guest) error
	GetByIDAndTenant(ctx context.Context, id, tenantID uint64) (*model.Guest, error)
	ListByTenant(ctx context.Context, tenantID uint64) ([]model.Guest, error)
}

// InvitationWriter creates and reads invitations for the onboarding
// service.
type InvitationWriter interface {
	Create(ctx context.Context, inv *model.Invitation) error
	GetByToken(ctx context.Context, token string) (*model.Invitation, error)
	GetByGuest(ctx context.Context, tenantID, guestID uint64) (*model.Invitation, error)
	InviteToEvents(ctx context.Context, invitationID uint64, eventIDs []uint64) error
	ListEvents(ctx context.Context, invitationID uint64) ([]repository.InvitationEventDetail, error)
}

// Guests handles guest onboarding: each created guest gets exactly
// one invitation carrying the RSVP token and the door code, plus one
// invitation_event row per event they are invited to.
type Guests struct {
	guests      GuestWriter
	invitations InvitationWriter
	events      EventVerifier
	versions    *cache.Versions
	log         zerolog.Logger
}

// NewGuests constructs the guest onboarding service.
func NewGuests(guests GuestWriter, invitations InvitationWriter, events EventVerifier, versions *cache.Versions, log zerolog.Logger) *Guests {
	return &Guests{
		guests:      guests,
		invitations: invitations,
		events:      events,
		versions:    versions,
		log:         log.With().Str("component", "guests").Logger(),
	}
}

// GuestDetail is a guest together with their invitation and per-event
// RSVP state.
type GuestDetail struct {
	Guest      *model.Guest                       `json:"guest"`
	Invitation *model.Invitation                  `json:"invitation"`
	Events     []repository.InvitationEventDetail `json:"events"`
}

// Create inserts the guest, mints their invitation token and door
// code, and invites them to the given events.  Every event must
// belong to the tenant.  A duplicate door code is retried a few
// times before giving up; the space is large enough that collisions
// are freak occurrences.
func (s *Guests) Create(ctx context.Context, tenantID uint64, g *model.Guest, eventIDs []uint64) (*GuestDetail, error) {
	if g.FullName == "" {
		return nil, fmt.Errorf("%w: full name is required", ErrValidation)
	}
	if g.Phone == "" && g.Email == "" {
		return nil, fmt.Errorf("%w: at least one of phone or email is required", ErrValidation)
	}
	if g.TotalGuests == 0 {
		g.TotalGuests = 1
	}
	for _, eventID := range eventIDs {
		if _, err := s.events.GetByIDAndTenant(ctx, eventID, tenantID); err != nil {
			return nil, err
		}
	}

	g.TenantID = tenantID
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		g.InviteCode, err = utils.NewInviteCode()
		if err != nil {
			return nil, err
		}
		err = s.guests.Create(ctx, g)
		if err == nil || !errors.Is(err, repository.ErrConflict) {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	token, err := utils.NewInvitationToken()
	if err != nil {
		return nil, err
	}
	inv := &model.Invitation{TenantID: tenantID, GuestID: g.ID, Token: token}
	if err := s.invitations.Create(ctx, inv); err != nil {
		return nil, err
	}
	if len(eventIDs) > 0 {
		if err := s.invitations.InviteToEvents(ctx, inv.ID, dedupe(eventIDs)); err != nil {
			return nil, err
		}
	}
	s.versions.Bump(ctx, tenantID)
	s.log.Info().Uint64("tenant_id", tenantID).Uint64("guest_id", g.ID).
		Int("events", len(eventIDs)).Msg("guest created")

	events, err := s.invitations.ListEvents(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	return &GuestDetail{Guest: g, Invitation: inv, Events: events}, nil
}

// Invite adds the guest's existing invitation to more events.
// Already-invited events are left untouched.
func (s *Guests) Invite(ctx context.Context, tenantID, guestID uint64, eventIDs []uint64) error {
	if len(eventIDs) == 0 {
		return fmt.Errorf("%w: no events given", ErrValidation)
	}
	for _, eventID := range eventIDs {
		if _, err := s.events.GetByIDAndTenant(ctx, eventID, tenantID); err != nil {
			return err
		}
	}
	inv, err := s.invitations.GetByGuest(ctx, tenantID, guestID)
	if err != nil {
		return err
	}
	if err := s.invitations.InviteToEvents(ctx, inv.ID, dedupe(eventIDs)); err != nil {
		return err
	}
	s.versions.Bump(ctx, tenantID)
	return nil
}

// Get returns the guest with their invitation and RSVP breakdown.
func (s *Guests) Get(ctx context.Context, tenantID, guestID uint64) (*GuestDetail, error) {
	g, err := s.guests.GetByIDAndTenant(ctx, guestID, tenantID)
	if err != nil {
		return nil, err
	}
	inv, err := s.invitations.GetByGuest(ctx, tenantID, guestID)
	if err != nil {
		return nil, err
	}
	events, err := s.invitations.ListEvents(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	return &GuestDetail{Guest: g, Invitation: inv, Events: events}, nil
}

// List returns the tenant's guests.
func (s *Guests) List(ctx context.Context, tenantID uint64) ([]model.Guest, error) {
	return s.guests.ListByTenant(ctx, tenantID)
}

// InvitationView is what the public RSVP page sees: the guest's name
// and their per-event invitation state, nothing tenant-internal.
type InvitationView struct {
	GuestName string                             `json:"guest_name"`
	Household *string                            `json:"household,omitempty"`
	Events    []repository.InvitationEventDetail `json:"events"`
}

// ViewByToken resolves the public RSVP page for an invitation token.
// The token alone is the capability; no authentication is involved.
func (s *Guests) ViewByToken(ctx context.Context, token string) (*InvitationView, error) {
	inv, err := s.invitations.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	g, err := s.guests.GetByIDAndTenant(ctx, inv.GuestID, inv.TenantID)
	if err != nil {
		return nil, err
	}
	events, err := s.invitations.ListEvents(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	return &InvitationView{GuestName: g.FullName, Household: g.Household, Events: events}, nil
}
