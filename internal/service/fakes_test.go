package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/avivron/weddinghub/internal/cache"
	"github.com/avivron/weddinghub/internal/model"
	"github.com/avivron/weddinghub/internal/queue"
	"github.com/avivron/weddinghub/internal/repository"
)

func testVersions() *cache.Versions {
	return cache.NewVersions(nil, zerolog.Nop())
}

// memGuestStore holds guests in memory and implements GuestResolver.
type memGuestStore struct {
	mu     sync.Mutex
	guests []*model.Guest
}

func (m *memGuestStore) GetByInviteCode(_ context.Context, tenantID uint64, code string) (*model.Guest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range m.guests {
		if g.TenantID == tenantID && g.InviteCode == code {
			cp := *g
			return &cp, nil
		}
	}
	return nil, repository.ErrGuestNotFound
}

func (m *memGuestStore) GetByIDAndTenant(_ context.Context, id, tenantID uint64) (*model.Guest, error) {
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

// memInvitationStore implements InvitationStore over slices, with the
// same one-row-per-(invitation, event) rule the database enforces.
type memInvitationStore struct {
	mu          sync.Mutex
	invitations []*model.Invitation
	events      []*model.InvitationEvent
	nextEventID uint64
}

func (m *memInvitationStore) GetByToken(_ context.Context, token string) (*model.Invitation, error) {
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

func (m *memInvitationStore) GetByGuest(_ context.Context, tenantID, guestID uint64) (*model.Invitation, error) {
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

func (m *memInvitationStore) GetEvent(_ context.Context, invitationID, eventID uint64) (*model.InvitationEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ie := range m.events {
		if ie.InvitationID == invitationID && ie.EventID == eventID {
			cp := *ie
			return &cp, nil
		}
	}
	return nil, repository.ErrInvitationEventNotFound
}

func (m *memInvitationStore) GetSoleEvent(_ context.Context, invitationID uint64) (*model.InvitationEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var found *model.InvitationEvent
	for _, ie := range m.events {
		if ie.InvitationID == invitationID {
			if found != nil {
				return nil, repository.ErrConflict
			}
			found = ie
		}
	}
	if found == nil {
		return nil, repository.ErrInvitationEventNotFound
	}
	cp := *found
	return &cp, nil
}

func (m *memInvitationStore) UpdateRSVP(_ context.Context, token string, eventID uint64, status model.RSVPStatus, headcount uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var inv *model.Invitation
	for _, i := range m.invitations {
		if i.Token == token {
			inv = i
			break
		}
	}
	if inv == nil {
		return repository.ErrInvitationNotFound
	}
	for _, ie := range m.events {
		if ie.InvitationID == inv.ID && ie.EventID == eventID {
			now := time.Now()
			ie.Status = status
			ie.Headcount = headcount
			ie.RespondedAt = &now
			return nil
		}
	}
	return repository.ErrInvitationEventNotFound
}

func (m *memInvitationStore) addEvent(invitationID, eventID uint64, status model.RSVPStatus, headcount uint32) *model.InvitationEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextEventID++
	ie := &model.InvitationEvent{
		ID:           m.nextEventID,
		InvitationID: invitationID,
		EventID:      eventID,
		Status:       status,
		Headcount:    headcount,
	}
	m.events = append(m.events, ie)
	return ie
}

// memAttendanceStore enforces the one-row-per-invitation-event rule
// under its own lock, like the unique key does in MySQL.
type memAttendanceStore struct {
	mu     sync.Mutex
	nextID uint64
	rows   map[uint64]time.Time
}

func newMemAttendanceStore() *memAttendanceStore {
	return &memAttendanceStore{rows: make(map[uint64]time.Time)}
}

func (m *memAttendanceStore) Create(_ context.Context, a *model.Attendance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if at, ok := m.rows[a.InvitationEventID]; ok {
		return &repository.AlreadyCheckedInError{At: at}
	}
	m.nextID++
	a.ID = m.nextID
	a.CheckedInAt = time.Now().UTC()
	m.rows[a.InvitationEventID] = a.CheckedInAt
	return nil
}

// memPublisher records every published event.
type memPublisher struct {
	mu        sync.Mutex
	checkins  []queue.GuestCheckedInEvent
	rsvps     []queue.RSVPRecordedEvent
	completed []queue.AnnouncementCompletedEvent
}

func (m *memPublisher) GuestCheckedIn(_ context.Context, ev queue.GuestCheckedInEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkins = append(m.checkins, ev)
}

func (m *memPublisher) RSVPRecorded(_ context.Context, ev queue.RSVPRecordedEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rsvps = append(m.rsvps, ev)
}

func (m *memPublisher) AnnouncementCompleted(_ context.Context, ev queue.AnnouncementCompletedEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completed = append(m.completed, ev)
}

// memSendLog implements both SendLogCounter and SendLogWriter, so
// limiter reads observe dispatcher writes like they do in MySQL.
type memSendLog struct {
	mu   sync.Mutex
	rows []model.MailLog
	now  func() time.Time
}

func newMemSendLog(now func() time.Time) *memSendLog {
	if now == nil {
		now = time.Now
	}
	return &memSendLog{now: now}
}

func (m *memSendLog) Insert(_ context.Context, log *model.MailLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	log.SentAt = m.now()
	m.rows = append(m.rows, *log)
	return nil
}

func (m *memSendLog) CountSince(_ context.Context, token string, channel model.Channel, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.rows {
		if r.InvitationToken == token && r.Channel == channel && !r.SentAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *memSendLog) seed(token string, channel model.Channel, at time.Time, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < count; i++ {
		m.rows = append(m.rows, model.MailLog{
			InvitationToken: token,
			Channel:         channel,
			Status:          "sent",
			SentAt:          at,
		})
	}
}
