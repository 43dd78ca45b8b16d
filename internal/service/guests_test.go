package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/avivron/weddinghub/internal/model"
	"github.com/avivron/weddinghub/internal/repository"
)

// memGuestWriter stores guests and can be primed to reject the first
// few creates with a duplicate-code conflict.
type memGuestWriter struct {
	mu        sync.Mutex
	guests    []*model.Guest
	nextID    uint64
	conflicts int
	codesSeen []string
}

func (m *memGuestWriter) Create(_ context.Context, g *model.Guest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codesSeen = append(m.codesSeen, g.InviteCode)
	if m.conflicts > 0 {
		m.conflicts--
		return repository.ErrConflict
	}
	m.nextID++
	g.ID = m.nextID
	cp := *g
	m.guests = append(m.guests, &cp)
	return nil
}

func (m *memGuestWriter) GetByIDAndTenant(_ context.Context, id, tenantID uint64) (*model.Guest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range m.guests {
		if g.ID == id && g.TenantID == tenantID {
			cp := *g
			return &cp, nil
		}
	}
	return nil, repository.ErrGuestNotFound
}

func (m *memGuestWriter) ListByTenant(_ context.Context, tenantID uint64) ([]model.Guest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Guest
	for _, g := range m.guests {
		if g.TenantID == tenantID {
			out = append(out, *g)
		}
	}
	return out, nil
}

// memInvitationWriter implements InvitationWriter; invited events are
// tracked as bare ids.
type memInvitationWriter struct {
	mu          sync.Mutex
	invitations []*model.Invitation
	invited     map[uint64][]uint64 // invitationID -> eventIDs
	nextID      uint64
}

func newMemInvitationWriter() *memInvitationWriter {
	return &memInvitationWriter{invited: make(map[uint64][]uint64)}
}

func (m *memInvitationWriter) Create(_ context.Context, inv *model.Invitation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	inv.ID = m.nextID
	cp := *inv
	m.invitations = append(m.invitations, &cp)
	return nil
}

func (m *memInvitationWriter) GetByToken(_ context.Context, token string) (*model.Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.invitations {
		if inv.Token == token {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, repository.ErrInvitationNotFound
}

func (m *memInvitationWriter) GetByGuest(_ context.Context, tenantID, guestID uint64) (*model.Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.invitations {
		if inv.TenantID == tenantID && inv.GuestID == guestID {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, repository.ErrInvitationNotFound
}

func (m *memInvitationWriter) InviteToEvents(_ context.Context, invitationID uint64, eventIDs []uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range eventIDs {
		already := false
		for _, have := range m.invited[invitationID] {
			if have == id {
				already = true
				break
			}
		}
		if !already {
			m.invited[invitationID] = append(m.invited[invitationID], id)
		}
	}
	return nil
}

func (m *memInvitationWriter) ListEvents(_ context.Context, invitationID uint64) ([]repository.InvitationEventDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repository.InvitationEventDetail
	for _, eventID := range m.invited[invitationID] {
		out = append(out, repository.InvitationEventDetail{
			InvitationEvent: model.InvitationEvent{
				InvitationID: invitationID,
				EventID:      eventID,
				Status:       model.RSVPInvited,
			},
		})
	}
	return out, nil
}

func newGuestsFixture(t *testing.T) (*Guests, *memGuestWriter, *memInvitationWriter) {
	t.Helper()
	guests := &memGuestWriter{}
	invs := newMemInvitationWriter()
	events := &memEventVerifier{owners: map[uint64]uint64{100: 7, 101: 7}}
	return NewGuests(guests, invs, events, testVersions(), zerolog.Nop()), guests, invs
}

func TestCreateGuestMintsCredentials(t *testing.T) {
	svc, _, invs := newGuestsFixture(t)
	detail, err := svc.Create(context.Background(), 7, &model.Guest{
		FullName: "Avi Cohen",
		Phone:    "0501234567",
	}, []uint64{100, 101, 101})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	g := detail.Guest
	if g.InviteCode == "" {
		t.Fatal("invite code not minted")
	}
	if g.TotalGuests != 1 {
		t.Fatalf("TotalGuests = %d, want defaulted to 1", g.TotalGuests)
	}
	if len(detail.Invitation.Token) != 48 {
		t.Fatalf("token length = %d, want 48", len(detail.Invitation.Token))
	}
	if len(detail.Events) != 2 {
		t.Fatalf("invited events = %d, want the duplicate collapsed to 2", len(detail.Events))
	}
	if len(invs.invitations) != 1 {
		t.Fatalf("invitations = %d, want 1", len(invs.invitations))
	}
}

func TestCreateGuestValidation(t *testing.T) {
	svc, _, _ := newGuestsFixture(t)
	ctx := context.Background()
	if _, err := svc.Create(ctx, 7, &model.Guest{Phone: "050"}, nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("missing name err = %v, want ErrValidation", err)
	}
	if _, err := svc.Create(ctx, 7, &model.Guest{FullName: "X"}, nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("missing contact err = %v, want ErrValidation", err)
	}
	if _, err := svc.Create(ctx, 7, &model.Guest{FullName: "X", Phone: "050"}, []uint64{999}); !errors.Is(err, repository.ErrEventNotFound) {
		t.Fatalf("foreign event err = %v, want ErrEventNotFound", err)
	}
}

func TestCreateGuestRetriesDuplicateCode(t *testing.T) {
	svc, guests, _ := newGuestsFixture(t)
	guests.conflicts = 2

	detail, err := svc.Create(context.Background(), 7, &model.Guest{
		FullName: "Noa Bar", Email: "noa@example.com",
	}, nil)
	if err != nil {
		t.Fatalf("Create should survive two code collisions: %v", err)
	}
	if len(guests.codesSeen) != 3 {
		t.Fatalf("create attempts = %d, want 3", len(guests.codesSeen))
	}
	if guests.codesSeen[2] == guests.codesSeen[0] {
		t.Fatal("retry reused the colliding code")
	}
	if detail.Guest.ID == 0 {
		t.Fatal("guest not persisted")
	}

	// A persistent conflict eventually surfaces.
	guests.conflicts = 3
	_, err = svc.Create(context.Background(), 7, &model.Guest{
		FullName: "Dan", Email: "dan@example.com",
	}, nil)
	if !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("exhausted retries err = %v, want ErrConflict", err)
	}
}

func TestInviteAddsEvents(t *testing.T) {
	svc, _, invs := newGuestsFixture(t)
	detail, err := svc.Create(context.Background(), 7, &model.Guest{
		FullName: "Avi", Phone: "0501234567",
	}, []uint64{100})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := svc.Invite(context.Background(), 7, detail.Guest.ID, []uint64{100, 101}); err != nil {
		t.Fatalf("Invite: %v", err)
	}
	events, _ := invs.ListEvents(context.Background(), detail.Invitation.ID)
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2 with the existing one untouched", len(events))
	}

	if err := svc.Invite(context.Background(), 7, detail.Guest.ID, nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("empty invite err = %v, want ErrValidation", err)
	}
}

func TestViewByToken(t *testing.T) {
	svc, _, _ := newGuestsFixture(t)
	detail, err := svc.Create(context.Background(), 7, &model.Guest{
		FullName: "Avi", Phone: "0501234567",
	}, []uint64{100})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	view, err := svc.ViewByToken(context.Background(), detail.Invitation.Token)
	if err != nil {
		t.Fatalf("ViewByToken: %v", err)
	}
	if view.GuestName != "Avi" || len(view.Events) != 1 {
		t.Fatalf("view = %+v", view)
	}

	if _, err := svc.ViewByToken(context.Background(), "bogus"); !errors.Is(err, repository.ErrInvitationNotFound) {
		t.Fatalf("unknown token err = %v, want ErrInvitationNotFound", err)
	}
}
