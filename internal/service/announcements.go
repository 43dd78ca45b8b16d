package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/avivron/weddinghub/internal/cache"
	"github.com/avivron/weddinghub/internal/model"
	"github.com/avivron/weddinghub/internal/repository"
)

// AnnouncementAdmin is the slice of the announcement repository the
// lifecycle-management side uses (as opposed to the dispatch side).
type AnnouncementAdmin interface {
	Create(ctx context.Context, a *model.Announcement, guestIDs []uint64) error
	GetByIDAndTenant(ctx context.Context, id string, tenantID uint64) (*model.Announcement, error)
	ListByTenant(ctx context.Context, tenantID uint64) ([]model.Announcement, error)
	TransitionStatus(ctx context.Context, id string, from []model.AnnouncementStatus, to model.AnnouncementStatus) error
	ListBatches(ctx context.Context, announcementID string) ([]model.AnnouncementBatch, error)
	CountRecipientStatuses(ctx context.Context, announcementID string) (map[model.RecipientStatus]int, error)
}

// GuestSource resolves announcement audiences.
type GuestSource interface {
	ListByTenant(ctx context.Context, tenantID uint64) ([]model.Guest, error)
	ListByIDs(ctx context.Context, tenantID uint64, ids []uint64) ([]model.Guest, error)
}

// Announcements manages the announcement lifecycle outside of
// dispatch: creation with audience resolution, cancellation and
// progress reporting.
type Announcements struct {
	store    AnnouncementAdmin
	guests   GuestSource
	versions *cache.Versions
	log      zerolog.Logger
}

// NewAnnouncements constructs the announcement admin service.
func NewAnnouncements(store AnnouncementAdmin, guests GuestSource, versions *cache.Versions, log zerolog.Logger) *Announcements {
	return &Announcements{
		store:    store,
		guests:   guests,
		versions: versions,
		log:      log.With().Str("component", "announcements").Logger(),
	}
}

// CreateAnnouncementInput is the creation request.  Either GuestIDs
// or SendToAll selects the audience; BatchSize zero takes the
// default and out-of-range values are clamped.
type CreateAnnouncementInput struct {
	Title       string
	Body        string
	Channel     model.Channel
	GuestIDs    []uint64
	SendToAll   bool
	BatchSize   uint32
	ScheduledAt *time.Time
}

// Create persists a new announcement with one pending recipient per
// audience guest.  Every explicit guest ID must belong to the tenant
// or nothing is created.  A future ScheduledAt puts the announcement
// in scheduled state for the worker to pick up; otherwise it stays a
// draft until dispatched.
func (s *Announcements) Create(ctx context.Context, tenantID uint64, in CreateAnnouncementInput) (*model.Announcement, error) {
	if in.Title == "" || in.Body == "" {
		return nil, fmt.Errorf("%w: title and body are required", ErrValidation)
	}
	if !in.Channel.Valid() {
		return nil, fmt.Errorf("%w: unknown channel %q", ErrValidation, in.Channel)
	}
	if !in.SendToAll && len(in.GuestIDs) == 0 {
		return nil, fmt.Errorf("%w: audience is empty", ErrValidation)
	}

	var guestIDs []uint64
	if in.SendToAll {
		guests, err := s.guests.ListByTenant(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		for _, g := range guests {
			guestIDs = append(guestIDs, g.ID)
		}
	} else {
		wanted := dedupe(in.GuestIDs)
		guests, err := s.guests.ListByIDs(ctx, tenantID, wanted)
		if err != nil {
			return nil, err
		}
		if len(guests) != len(wanted) {
			// At least one ID is missing or belongs to another tenant.
			return nil, repository.ErrGuestNotFound
		}
		guestIDs = wanted
	}

	status := model.AnnouncementDraft
	if in.ScheduledAt != nil {
		status = model.AnnouncementScheduled
	}
	a := &model.Announcement{
		ID:          uuid.NewString(),
		TenantID:    tenantID,
		Title:       in.Title,
		Body:        in.Body,
		Channel:     in.Channel,
		BatchSize:   clampBatchSize(in.BatchSize),
		SendToAll:   in.SendToAll,
		ScheduledAt: in.ScheduledAt,
		Status:      status,
	}
	if err := s.store.Create(ctx, a, guestIDs); err != nil {
		return nil, err
	}
	s.versions.Bump(ctx, tenantID)
	s.log.Info().Str("announcement_id", a.ID).Uint64("tenant_id", tenantID).
		Int("recipients", len(guestIDs)).Str("status", string(status)).Msg("announcement created")
	return a, nil
}

// Cancel stops an announcement that has not started sending.  Only
// draft and scheduled announcements can be cancelled; anything
// further along returns a conflict.
func (s *Announcements) Cancel(ctx context.Context, tenantID uint64, id string) error {
	if _, err := s.store.GetByIDAndTenant(ctx, id, tenantID); err != nil {
		return err
	}
	err := s.store.TransitionStatus(ctx, id,
		[]model.AnnouncementStatus{model.AnnouncementDraft, model.AnnouncementScheduled},
		model.AnnouncementCancelled)
	if err != nil {
		return err
	}
	s.versions.Bump(ctx, tenantID)
	return nil
}

// Progress is the live status view of one announcement.
type Progress struct {
	Announcement *model.Announcement           `json:"announcement"`
	Batches      []model.AnnouncementBatch     `json:"batches"`
	Recipients   map[model.RecipientStatus]int `json:"recipients"`
}

// Get returns the announcement with its batch breakdown and the
// recipient tally per status.
func (s *Announcements) Get(ctx context.Context, tenantID uint64, id string) (*Progress, error) {
	a, err := s.store.GetByIDAndTenant(ctx, id, tenantID)
	if err != nil {
		return nil, err
	}
	batches, err := s.store.ListBatches(ctx, id)
	if err != nil {
		return nil, err
	}
	counts, err := s.store.CountRecipientStatuses(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Progress{Announcement: a, Batches: batches, Recipients: counts}, nil
}

// List returns the tenant's announcements, newest first.
func (s *Announcements) List(ctx context.Context, tenantID uint64) ([]model.Announcement, error) {
	return s.store.ListByTenant(ctx, tenantID)
}
