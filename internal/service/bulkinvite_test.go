package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/avivron/weddinghub/internal/model"
	"github.com/avivron/weddinghub/internal/notify"
	"github.com/avivron/weddinghub/internal/repository"
)

// memEventCounter maps event id to owning tenant.
type memEventCounter struct {
	owners map[uint64]uint64
}

func (m *memEventCounter) CountByIDsAndTenant(_ context.Context, tenantID uint64, ids []uint64) (int, error) {
	seen := make(map[uint64]struct{})
	n := 0
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if m.owners[id] == tenantID {
			n++
		}
	}
	return n, nil
}

type memInviteLister struct {
	targets []repository.InviteTarget
}

func (m *memInviteLister) ListInviteTargets(_ context.Context, _ uint64, _ []uint64) ([]repository.InviteTarget, error) {
	return m.targets, nil
}

func newBulkInviteFixture(t *testing.T, targets []repository.InviteTarget) (*Dispatcher, *fakeSender, *memSendLog) {
	t.Helper()
	sender := newFakeSender(model.ChannelSMS)
	logs := newMemSendLog(nil)
	events := &memEventCounter{owners: map[uint64]uint64{100: 7, 101: 7}}
	invites := &memInviteLister{targets: targets}
	d := NewDispatcher(newMemAnnouncementStore(), events, invites,
		NewNotifyLimiter(logs, 3, nil), logs, notify.NewRegistry(sender),
		testVersions(), nil, 4, "https://rsvp.example.com/", zerolog.Nop())
	return d, sender, logs
}

func TestBulkInviteSendsAndRendersLink(t *testing.T) {
	d, sender, logs := newBulkInviteFixture(t, []repository.InviteTarget{
		{InvitationID: 1, Token: "tok-a", GuestID: 1, GuestName: "Avi", Phone: "050-1234567"},
		{InvitationID: 2, Token: "tok-b", GuestID: 2, GuestName: "Noa", Phone: "0529876543"},
	})

	sum, err := d.BulkInvite(context.Background(), 7, []uint64{100}, model.ChannelSMS, false)
	if err != nil {
		t.Fatalf("BulkInvite: %v", err)
	}
	if sum.Processed != 2 || sum.Sent != 2 {
		t.Fatalf("summary = %+v, want 2 sent", sum)
	}

	sender.mu.Lock()
	defer sender.mu.Unlock()
	for _, msg := range sender.sent {
		if !strings.HasPrefix(msg.To, "972") {
			t.Errorf("phone not normalized: %q", msg.To)
		}
		if !strings.Contains(msg.Body, "https://rsvp.example.com/rsvp/tok-") {
			t.Errorf("rsvp link not rendered: %q", msg.Body)
		}
		if !strings.Contains(msg.Body, "Hi ") {
			t.Errorf("name not rendered: %q", msg.Body)
		}
	}

	logs.mu.Lock()
	defer logs.mu.Unlock()
	if len(logs.rows) != 2 {
		t.Fatalf("mail log rows = %d, want 2", len(logs.rows))
	}
	for _, r := range logs.rows {
		if r.Kind != model.MailKindInvite || r.Status != "sent" {
			t.Errorf("log row = %+v, want sent invite", r)
		}
	}
}

func TestBulkInviteFailsTargetsWithoutContact(t *testing.T) {
	d, _, _ := newBulkInviteFixture(t, []repository.InviteTarget{
		{InvitationID: 1, Token: "tok-a", GuestID: 1, GuestName: "Avi", Phone: "0501234567"},
		{InvitationID: 2, Token: "tok-b", GuestID: 2, GuestName: "Noa"},
	})

	sum, err := d.BulkInvite(context.Background(), 7, []uint64{100}, model.ChannelSMS, false)
	if err != nil {
		t.Fatalf("BulkInvite: %v", err)
	}
	if sum.Sent != 1 || sum.Failed != 1 {
		t.Fatalf("summary = %+v, want 1 sent and 1 failed", sum)
	}
	if len(sum.Errors) != 1 || sum.Errors[0].GuestID != 2 {
		t.Fatalf("errors = %+v, want guest 2", sum.Errors)
	}
}

func TestBulkInviteSkipsOverQuotaUnlessIgnored(t *testing.T) {
	targets := []repository.InviteTarget{
		{InvitationID: 1, Token: "tok-a", GuestID: 1, GuestName: "Avi", Phone: "0501234567"},
	}
	d, sender, logs := newBulkInviteFixture(t, targets)
	logs.seed("tok-a", model.ChannelSMS, time.Now().UTC().Add(time.Hour), 3)

	sum, err := d.BulkInvite(context.Background(), 7, []uint64{100}, model.ChannelSMS, false)
	if err != nil {
		t.Fatalf("BulkInvite: %v", err)
	}
	if sum.Skipped != 1 || sum.Sent != 0 {
		t.Fatalf("summary = %+v, want the target skipped", sum)
	}
	if sender.sentCount() != 0 {
		t.Fatalf("quota-limited target must not be contacted")
	}

	sum, err = d.BulkInvite(context.Background(), 7, []uint64{100}, model.ChannelSMS, true)
	if err != nil {
		t.Fatalf("BulkInvite ignoreLimit: %v", err)
	}
	if sum.Sent != 1 {
		t.Fatalf("summary = %+v, want the forced send to go through", sum)
	}
}

func TestBulkInviteRejectsForeignEvents(t *testing.T) {
	d, sender, _ := newBulkInviteFixture(t, []repository.InviteTarget{
		{InvitationID: 1, Token: "tok-a", GuestID: 1, Phone: "0501234567"},
	})

	// Event 999 belongs to nobody; the whole run is rejected.
	_, err := d.BulkInvite(context.Background(), 7, []uint64{100, 999}, model.ChannelSMS, false)
	if !errors.Is(err, repository.ErrEventNotFound) {
		t.Fatalf("err = %v, want ErrEventNotFound", err)
	}
	if sender.sentCount() != 0 {
		t.Fatalf("nothing may be sent when ownership fails")
	}
}

func TestBulkInviteValidatesInput(t *testing.T) {
	d, _, _ := newBulkInviteFixture(t, nil)
	if _, err := d.BulkInvite(context.Background(), 7, []uint64{100}, model.Channel("pigeon"), false); !errors.Is(err, ErrValidation) {
		t.Fatalf("unknown channel err = %v, want ErrValidation", err)
	}
	if _, err := d.BulkInvite(context.Background(), 7, nil, model.ChannelSMS, false); !errors.Is(err, ErrValidation) {
		t.Fatalf("empty events err = %v, want ErrValidation", err)
	}
}
