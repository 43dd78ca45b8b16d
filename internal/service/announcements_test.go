package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/avivron/weddinghub/internal/model"
	"github.com/avivron/weddinghub/internal/repository"
)

// AnnouncementAdmin methods of memAnnouncementStore that the dispatch
// side does not use.

func (m *memAnnouncementStore) Create(_ context.Context, a *model.Announcement, guestIDs []uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.ann[a.ID] = &cp
	for _, gid := range guestIDs {
		m.nextRecipID++
		m.recipients = append(m.recipients, &model.AnnouncementRecipient{
			ID:             m.nextRecipID,
			AnnouncementID: a.ID,
			GuestID:        gid,
			Status:         model.RecipientPending,
		})
	}
	return nil
}

func (m *memAnnouncementStore) ListByTenant(_ context.Context, tenantID uint64) ([]model.Announcement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Announcement
	for _, a := range m.ann {
		if a.TenantID == tenantID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memAnnouncementStore) ListBatches(_ context.Context, announcementID string) ([]model.AnnouncementBatch, error) {
	return m.batchSummary(announcementID), nil
}

// memGuestSource resolves announcement audiences from a fixed guest
// list.
type memGuestSource struct {
	guests []model.Guest
}

func (m *memGuestSource) ListByTenant(_ context.Context, tenantID uint64) ([]model.Guest, error) {
	var out []model.Guest
	for _, g := range m.guests {
		if g.TenantID == tenantID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *memGuestSource) ListByIDs(_ context.Context, tenantID uint64, ids []uint64) ([]model.Guest, error) {
	var out []model.Guest
	for _, id := range ids {
		for _, g := range m.guests {
			if g.ID == id && g.TenantID == tenantID {
				out = append(out, g)
			}
		}
	}
	return out, nil
}

func newAnnouncementsFixture(t *testing.T) (*Announcements, *memAnnouncementStore) {
	t.Helper()
	store := newMemAnnouncementStore()
	guests := &memGuestSource{guests: []model.Guest{
		{ID: 1, TenantID: 7, FullName: "Avi"},
		{ID: 2, TenantID: 7, FullName: "Noa"},
		{ID: 3, TenantID: 7, FullName: "Dana"},
		{ID: 4, TenantID: 8, FullName: "Other Tenant"},
	}}
	return NewAnnouncements(store, guests, testVersions(), zerolog.Nop()), store
}

func TestCreateAnnouncementExplicitAudience(t *testing.T) {
	svc, store := newAnnouncementsFixture(t)
	a, err := svc.Create(context.Background(), 7, CreateAnnouncementInput{
		Title:    "Venue update",
		Body:     "New address attached.",
		Channel:  model.ChannelEmail,
		GuestIDs: []uint64{1, 2, 2}, // duplicate collapses
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if a.Status != model.AnnouncementDraft {
		t.Fatalf("status = %s, want draft", a.Status)
	}
	if a.BatchSize != model.DefaultBatchSize {
		t.Fatalf("batch size = %d, want default %d", a.BatchSize, model.DefaultBatchSize)
	}
	counts, _ := store.CountRecipientStatuses(context.Background(), a.ID)
	if counts[model.RecipientPending] != 2 {
		t.Fatalf("pending recipients = %d, want 2", counts[model.RecipientPending])
	}
}

func TestCreateAnnouncementSendToAll(t *testing.T) {
	svc, store := newAnnouncementsFixture(t)
	a, err := svc.Create(context.Background(), 7, CreateAnnouncementInput{
		Title:     "Thank you",
		Body:      "See you there!",
		Channel:   model.ChannelSMS,
		SendToAll: true,
		BatchSize: 7, // below the minimum, gets clamped up
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if a.BatchSize != model.MinBatchSize {
		t.Fatalf("batch size = %d, want clamped to %d", a.BatchSize, model.MinBatchSize)
	}
	counts, _ := store.CountRecipientStatuses(context.Background(), a.ID)
	if counts[model.RecipientPending] != 3 {
		t.Fatalf("pending recipients = %d, want the tenant's 3 guests", counts[model.RecipientPending])
	}
}

func TestCreateAnnouncementScheduled(t *testing.T) {
	svc, _ := newAnnouncementsFixture(t)
	at := time.Now().Add(2 * time.Hour)
	a, err := svc.Create(context.Background(), 7, CreateAnnouncementInput{
		Title: "Reminder", Body: "Tomorrow!", Channel: model.ChannelEmail,
		SendToAll: true, ScheduledAt: &at,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if a.Status != model.AnnouncementScheduled {
		t.Fatalf("status = %s, want scheduled", a.Status)
	}
}

func TestCreateAnnouncementValidation(t *testing.T) {
	svc, _ := newAnnouncementsFixture(t)
	ctx := context.Background()
	cases := []CreateAnnouncementInput{
		{Body: "b", Channel: model.ChannelEmail, SendToAll: true},                // no title
		{Title: "t", Channel: model.ChannelEmail, SendToAll: true},               // no body
		{Title: "t", Body: "b", Channel: model.Channel("fax"), SendToAll: true},  // bad channel
		{Title: "t", Body: "b", Channel: model.ChannelEmail},                     // no audience
	}
	for i, in := range cases {
		if _, err := svc.Create(ctx, 7, in); !errors.Is(err, ErrValidation) {
			t.Errorf("case %d: err = %v, want ErrValidation", i, err)
		}
	}

	// A guest of another tenant poisons the whole audience.
	_, err := svc.Create(ctx, 7, CreateAnnouncementInput{
		Title: "t", Body: "b", Channel: model.ChannelEmail, GuestIDs: []uint64{1, 4},
	})
	if !errors.Is(err, repository.ErrGuestNotFound) {
		t.Fatalf("foreign guest err = %v, want ErrGuestNotFound", err)
	}
}

func TestCancelAnnouncement(t *testing.T) {
	svc, store := newAnnouncementsFixture(t)
	ctx := context.Background()
	a, err := svc.Create(ctx, 7, CreateAnnouncementInput{
		Title: "t", Body: "b", Channel: model.ChannelEmail, SendToAll: true,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.Cancel(ctx, 7, a.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if got := store.status(a.ID); got != model.AnnouncementCancelled {
		t.Fatalf("status = %s, want cancelled", got)
	}

	// Once sending has begun there is nothing to cancel.
	b, _ := svc.Create(ctx, 7, CreateAnnouncementInput{
		Title: "t2", Body: "b2", Channel: model.ChannelEmail, SendToAll: true,
	})
	store.mu.Lock()
	store.ann[b.ID].Status = model.AnnouncementSending
	store.mu.Unlock()
	if err := svc.Cancel(ctx, 7, b.ID); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("cancel while sending err = %v, want ErrConflict", err)
	}
}

func TestAnnouncementProgress(t *testing.T) {
	svc, store := newAnnouncementsFixture(t)
	ctx := context.Background()
	a, err := svc.Create(ctx, 7, CreateAnnouncementInput{
		Title: "t", Body: "b", Channel: model.ChannelEmail, SendToAll: true,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	store.mark(1, model.RecipientSent, "")

	p, err := svc.Get(ctx, 7, a.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p.Recipients[model.RecipientSent] != 1 || p.Recipients[model.RecipientPending] != 2 {
		t.Fatalf("recipient tally = %+v", p.Recipients)
	}

	if _, err := svc.Get(ctx, 99, a.ID); !errors.Is(err, repository.ErrAnnouncementNotFound) {
		t.Fatalf("cross-tenant get err = %v, want ErrAnnouncementNotFound", err)
	}
}
