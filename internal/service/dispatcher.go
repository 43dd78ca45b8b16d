package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/avivron/weddinghub/internal/cache"
	"github.com/avivron/weddinghub/internal/model"
	"github.com/avivron/weddinghub/internal/notify"
	"github.com/avivron/weddinghub/internal/queue"
	"github.com/avivron/weddinghub/internal/repository"
)

// AnnouncementStore is the slice of the announcement repository the
// dispatcher drives.
type AnnouncementStore interface {
	GetByIDAndTenant(ctx context.Context, id string, tenantID uint64) (*model.Announcement, error)
	TransitionStatus(ctx context.Context, id string, from []model.AnnouncementStatus, to model.AnnouncementStatus) error
	ListUnbatchedPending(ctx context.Context, announcementID string) ([]model.AnnouncementRecipient, error)
	CreateBatch(ctx context.Context, b *model.AnnouncementBatch) error
	AssignBatch(ctx context.Context, batchID uint64, recipientIDs []uint64) error
	MaxBatchSeq(ctx context.Context, announcementID string) (uint32, error)
	ListRunnableBatches(ctx context.Context, announcementID string) ([]model.AnnouncementBatch, error)
	ListBatchRecipients(ctx context.Context, batchID uint64) ([]repository.RecipientDetail, error)
	MarkRecipientSent(ctx context.Context, recipientID uint64) (bool, error)
	MarkRecipientFailed(ctx context.Context, recipientID uint64, msg string) (bool, error)
	MarkRecipientSkipped(ctx context.Context, recipientID uint64, reason string) (bool, error)
	UpdateBatchProgress(ctx context.Context, batchID uint64, sent, failed uint32, status model.BatchStatus) error
	CountRecipientStatuses(ctx context.Context, announcementID string) (map[model.RecipientStatus]int, error)
	SetAggregate(ctx context.Context, id string, sent, failed uint32, status model.AnnouncementStatus) error
	ResetForResend(ctx context.Context, announcementID string) (int64, error)
}

// EventCounter verifies event ownership before a bulk send touches
// anything.
type EventCounter interface {
	CountByIDsAndTenant(ctx context.Context, tenantID uint64, ids []uint64) (int, error)
}

// InviteLister resolves the invitations behind a set of events for
// bulk invite sends.
type InviteLister interface {
	ListInviteTargets(ctx context.Context, tenantID uint64, eventIDs []uint64) ([]repository.InviteTarget, error)
}

// SendLogWriter records one mail-log row per send attempt.
type SendLogWriter interface {
	Insert(ctx context.Context, m *model.MailLog) error
}

// SendError describes one recipient that could not be delivered to.
type SendError struct {
	GuestID uint64 `json:"guest_id"`
	Reason  string `json:"reason"`
}

// RunSummary is what a dispatch or bulk-invite run reports back.
// Processed counts only the recipients this run actually worked;
// rows already terminal from an earlier run are not re-counted.
type RunSummary struct {
	Processed int         `json:"processed"`
	Sent      int         `json:"sent"`
	Failed    int         `json:"failed"`
	Skipped   int         `json:"skipped"`
	Errors    []SendError `json:"errors,omitempty"`
}

const maxReportedErrors = 20

func (s *RunSummary) addError(guestID uint64, reason string) {
	if len(s.Errors) < maxReportedErrors {
		s.Errors = append(s.Errors, SendError{GuestID: guestID, Reason: reason})
	}
}

// Dispatcher runs announcement sends in sequential batches with a
// bounded worker pool inside each batch.  All progress lives in the
// database, so a run that dies mid-batch can be re-invoked and will
// continue from the first incomplete batch without double-sending:
// terminal recipient rows are skipped on re-read and guarded again at
// the SQL level.
type Dispatcher struct {
	store    AnnouncementStore
	events   EventCounter
	invites  InviteLister
	limiter  *NotifyLimiter
	sendLog  SendLogWriter
	senders  notify.Registry
	versions *cache.Versions
	pub      Publisher
	workers  int
	baseURL  string
	log      zerolog.Logger
}

// NewDispatcher constructs a Dispatcher.  workers bounds in-flight
// sends per batch; values below 1 fall back to 5.  baseURL is the
// public origin used to build RSVP links in message bodies.
func NewDispatcher(store AnnouncementStore, events EventCounter, invites InviteLister,
	limiter *NotifyLimiter, sendLog SendLogWriter, senders notify.Registry,
	versions *cache.Versions, pub Publisher, workers int, baseURL string, log zerolog.Logger) *Dispatcher {
	if workers < 1 {
		workers = 5
	}
	return &Dispatcher{
		store:    store,
		events:   events,
		invites:  invites,
		limiter:  limiter,
		sendLog:  sendLog,
		senders:  senders,
		versions: versions,
		pub:      pub,
		workers:  workers,
		baseURL:  strings.TrimRight(baseURL, "/"),
		log:      log.With().Str("component", "dispatcher").Logger(),
	}
}

// clampBatchSize bounds a requested batch size to the allowed range.
// Zero means "use the default".
func clampBatchSize(n uint32) uint32 {
	switch {
	case n == 0:
		return model.DefaultBatchSize
	case n < model.MinBatchSize:
		return model.MinBatchSize
	case n > model.MaxBatchSize:
		return model.MaxBatchSize
	}
	return n
}

// Run executes (or resumes) the dispatch of an announcement.  Pending
// recipients without a batch are partitioned into new batches first,
// then every incomplete batch is worked in seq order.  Context
// cancellation is honored between batches; the announcement is left
// in sending state and a later Run picks it up.
func (d *Dispatcher) Run(ctx context.Context, tenantID uint64, announcementID string) (*RunSummary, error) {
	a, err := d.store.GetByIDAndTenant(ctx, announcementID, tenantID)
	if err != nil {
		return nil, err
	}
	sender := d.senders.For(a.Channel)
	if sender == nil {
		return nil, fmt.Errorf("no sender configured for channel %s", a.Channel)
	}
	// Cancelled is the only state a run may not start from.
	err = d.store.TransitionStatus(ctx, a.ID, []model.AnnouncementStatus{
		model.AnnouncementDraft, model.AnnouncementScheduled, model.AnnouncementSending,
		model.AnnouncementSent, model.AnnouncementFailed,
	}, model.AnnouncementSending)
	if err != nil {
		return nil, err
	}

	if err := d.partition(ctx, a); err != nil {
		return nil, err
	}

	batches, err := d.store.ListRunnableBatches(ctx, a.ID)
	if err != nil {
		return nil, err
	}

	sum := &RunSummary{}
	for _, b := range batches {
		if err := ctx.Err(); err != nil {
			// Stop at the batch boundary; everything written so far
			// stays and the run resumes later.
			d.log.Warn().Str("announcement_id", a.ID).Uint32("seq", b.Seq).
				Msg("dispatch cancelled at batch boundary")
			return sum, err
		}
		if err := d.runBatch(ctx, a, sender, &b, sum); err != nil {
			return sum, err
		}
	}

	if err := d.finalize(ctx, a, sum); err != nil {
		return sum, err
	}
	return sum, nil
}

// partition assigns every unbatched pending recipient to a fresh
// batch of the announcement's clamped batch size, continuing the seq
// numbering after any batches from earlier runs.
func (d *Dispatcher) partition(ctx context.Context, a *model.Announcement) error {
	unbatched, err := d.store.ListUnbatchedPending(ctx, a.ID)
	if err != nil {
		return err
	}
	if len(unbatched) == 0 {
		return nil
	}
	seq, err := d.store.MaxBatchSeq(ctx, a.ID)
	if err != nil {
		return err
	}
	size := int(clampBatchSize(a.BatchSize))
	for start := 0; start < len(unbatched); start += size {
		end := start + size
		if end > len(unbatched) {
			end = len(unbatched)
		}
		seq++
		b := &model.AnnouncementBatch{AnnouncementID: a.ID, Seq: seq, Status: model.BatchPending}
		if err := d.store.CreateBatch(ctx, b); err != nil {
			return err
		}
		ids := make([]uint64, 0, end-start)
		for _, rec := range unbatched[start:end] {
			ids = append(ids, rec.ID)
		}
		if err := d.store.AssignBatch(ctx, b.ID, ids); err != nil {
			return err
		}
	}
	return nil
}

// runBatch works one batch to completion with the bounded pool.
// Batch counters are recomputed from the recipient rows, so partially
// processed batches from a crashed run end up with correct totals.
func (d *Dispatcher) runBatch(ctx context.Context, a *model.Announcement, sender notify.Sender, b *model.AnnouncementBatch, sum *RunSummary) error {
	if err := d.store.UpdateBatchProgress(ctx, b.ID, b.SentCount, b.FailedCount, model.BatchProcessing); err != nil {
		return err
	}
	recips, err := d.store.ListBatchRecipients(ctx, b.ID)
	if err != nil {
		return err
	}

	var mu sync.Mutex
	var sent, failed uint32
	for _, rec := range recips {
		// Terminal rows from an earlier run only feed the counters.
		if rec.Status == model.RecipientSent {
			sent++
		} else if rec.Status == model.RecipientFailed {
			failed++
		}
	}

	sem := make(chan struct{}, d.workers)
	var wg sync.WaitGroup
	for i := range recips {
		rec := recips[i]
		if rec.Status.Terminal() {
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			outcome := d.deliver(ctx, a, sender, &rec)
			mu.Lock()
			defer mu.Unlock()
			sum.Processed++
			switch outcome.status {
			case model.RecipientSent:
				sent++
				sum.Sent++
			case model.RecipientFailed:
				failed++
				sum.Failed++
				sum.addError(rec.GuestID, outcome.reason)
			case model.RecipientSkipped:
				sum.Skipped++
			}
		}()
	}
	wg.Wait()

	return d.store.UpdateBatchProgress(ctx, b.ID, sent, failed, model.BatchCompleted)
}

type deliverOutcome struct {
	status model.RecipientStatus
	reason string
}

// deliver sends to one recipient and writes its terminal state.  A
// false return from the terminal-state write means a concurrent run
// already finished this recipient; the outcome then reports pending
// so the caller counts nothing.
func (d *Dispatcher) deliver(ctx context.Context, a *model.Announcement, sender notify.Sender, rec *repository.RecipientDetail) deliverOutcome {
	tenantID, channel := a.TenantID, a.Channel
	if err := d.limiter.CheckAndConsume(ctx, rec.Token, channel, false); err != nil {
		if errors.Is(err, repository.ErrRateLimited) {
			if ok, _ := d.store.MarkRecipientSkipped(ctx, rec.ID, "daily send limit reached"); ok {
				return deliverOutcome{status: model.RecipientSkipped}
			}
			return deliverOutcome{}
		}
		if ok, _ := d.store.MarkRecipientFailed(ctx, rec.ID, "rate limit check: "+err.Error()); ok {
			return deliverOutcome{status: model.RecipientFailed, reason: err.Error()}
		}
		return deliverOutcome{}
	}

	to := contactFor(channel, rec.Email, rec.Phone)
	if to == "" {
		reason := "no " + string(channel) + " contact on file"
		d.record(ctx, tenantID, rec.Token, channel, model.MailKindAnnouncement, "", errors.New(reason))
		if ok, _ := d.store.MarkRecipientFailed(ctx, rec.ID, reason); ok {
			return deliverOutcome{status: model.RecipientFailed, reason: reason}
		}
		return deliverOutcome{}
	}

	msg := notify.Message{
		To:      to,
		Name:    rec.GuestName,
		Subject: a.Title,
		Body:    d.render(a.Body, rec.GuestName, rec.Token),
	}
	providerID, sendErr := sender.Send(ctx, msg)
	d.record(ctx, tenantID, rec.Token, channel, model.MailKindAnnouncement, providerID, sendErr)
	if sendErr != nil {
		d.log.Warn().Err(sendErr).Uint64("guest_id", rec.GuestID).Str("channel", string(channel)).Msg("send failed")
		if ok, _ := d.store.MarkRecipientFailed(ctx, rec.ID, sendErr.Error()); ok {
			return deliverOutcome{status: model.RecipientFailed, reason: sendErr.Error()}
		}
		return deliverOutcome{}
	}
	if ok, _ := d.store.MarkRecipientSent(ctx, rec.ID); ok {
		return deliverOutcome{status: model.RecipientSent}
	}
	return deliverOutcome{}
}

// finalize computes the aggregate outcome from the recipient tally.
// The announcement lands on sent unless every recipient failed.
func (d *Dispatcher) finalize(ctx context.Context, a *model.Announcement, sum *RunSummary) error {
	counts, err := d.store.CountRecipientStatuses(ctx, a.ID)
	if err != nil {
		return err
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	sent := uint32(counts[model.RecipientSent])
	failed := uint32(counts[model.RecipientFailed])
	status := model.AnnouncementSent
	if total > 0 && counts[model.RecipientFailed] == total {
		status = model.AnnouncementFailed
	}
	if err := d.store.SetAggregate(ctx, a.ID, sent, failed, status); err != nil {
		return err
	}
	d.versions.Bump(ctx, a.TenantID)
	if d.pub != nil {
		d.pub.AnnouncementCompleted(ctx, queue.AnnouncementCompletedEvent{
			TenantID:       a.TenantID,
			AnnouncementID: a.ID,
			Title:          a.Title,
			Channel:        string(a.Channel),
			SentCount:      sent,
			FailedCount:    failed,
			SkippedCount:   uint32(counts[model.RecipientSkipped]),
			Status:         string(status),
			CompletedAt:    time.Now().UTC().Format(time.RFC3339),
		})
	}
	d.log.Info().Str("announcement_id", a.ID).Uint32("sent", sent).Uint32("failed", failed).
		Str("status", string(status)).Msg("dispatch finished")
	return nil
}

// Resend re-dispatches an announcement: failed recipients flip back
// to pending, already-sent and skipped recipients stay untouched, and
// a fresh run partitions the eligible rows into new batches.
func (d *Dispatcher) Resend(ctx context.Context, tenantID uint64, announcementID string) (*RunSummary, error) {
	if _, err := d.store.GetByIDAndTenant(ctx, announcementID, tenantID); err != nil {
		return nil, err
	}
	eligible, err := d.store.ResetForResend(ctx, announcementID)
	if err != nil {
		return nil, err
	}
	d.log.Info().Str("announcement_id", announcementID).Int64("eligible", eligible).Msg("resend requested")
	return d.Run(ctx, tenantID, announcementID)
}

// BulkInvite sends invitation messages for the given events over one
// channel.  All event IDs must belong to the tenant or nothing is
// sent.  Each invitation passes through the daily limiter unless
// ignoreLimit is set; limited invitations are counted as skipped, the
// rest of the run continues.
func (d *Dispatcher) BulkInvite(ctx context.Context, tenantID uint64, eventIDs []uint64, channel model.Channel, ignoreLimit bool) (*RunSummary, error) {
	if !channel.Valid() {
		return nil, fmt.Errorf("%w: unknown channel %q", ErrValidation, channel)
	}
	if len(eventIDs) == 0 {
		return nil, fmt.Errorf("%w: no events given", ErrValidation)
	}
	sender := d.senders.For(channel)
	if sender == nil {
		return nil, fmt.Errorf("no sender configured for channel %s", channel)
	}
	owned, err := d.events.CountByIDsAndTenant(ctx, tenantID, eventIDs)
	if err != nil {
		return nil, err
	}
	if owned != len(dedupe(eventIDs)) {
		return nil, repository.ErrEventNotFound
	}
	targets, err := d.invites.ListInviteTargets(ctx, tenantID, eventIDs)
	if err != nil {
		return nil, err
	}

	sum := &RunSummary{}
	var mu sync.Mutex
	sem := make(chan struct{}, d.workers)
	var wg sync.WaitGroup
	for i := range targets {
		t := targets[i]
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			status, reason := d.sendInvite(ctx, tenantID, channel, sender, &t, ignoreLimit)
			mu.Lock()
			defer mu.Unlock()
			sum.Processed++
			switch status {
			case model.RecipientSent:
				sum.Sent++
			case model.RecipientFailed:
				sum.Failed++
				sum.addError(t.GuestID, reason)
			case model.RecipientSkipped:
				sum.Skipped++
			}
		}()
	}
	wg.Wait()

	d.versions.Bump(ctx, tenantID)
	d.log.Info().Uint64("tenant_id", tenantID).Int("processed", sum.Processed).
		Int("sent", sum.Sent).Int("failed", sum.Failed).Int("skipped", sum.Skipped).
		Msg("bulk invite finished")
	return sum, nil
}

func (d *Dispatcher) sendInvite(ctx context.Context, tenantID uint64, channel model.Channel, sender notify.Sender, t *repository.InviteTarget, ignoreLimit bool) (model.RecipientStatus, string) {
	if err := d.limiter.CheckAndConsume(ctx, t.Token, channel, ignoreLimit); err != nil {
		if errors.Is(err, repository.ErrRateLimited) {
			return model.RecipientSkipped, ""
		}
		return model.RecipientFailed, err.Error()
	}
	to := contactFor(channel, t.Email, t.Phone)
	if to == "" {
		reason := "no " + string(channel) + " contact on file"
		d.record(ctx, tenantID, t.Token, channel, model.MailKindInvite, "", errors.New(reason))
		return model.RecipientFailed, reason
	}
	msg := notify.Message{
		To:      to,
		Name:    t.GuestName,
		Subject: "You're invited!",
		Body:    d.render(inviteTemplate, t.GuestName, t.Token),
	}
	providerID, sendErr := sender.Send(ctx, msg)
	d.record(ctx, tenantID, t.Token, channel, model.MailKindInvite, providerID, sendErr)
	if sendErr != nil {
		return model.RecipientFailed, sendErr.Error()
	}
	return model.RecipientSent, ""
}

const inviteTemplate = "Hi {{name}}, you are invited! Please RSVP here: {{rsvp_link}}"

// render substitutes the supported message placeholders.
func (d *Dispatcher) render(body, guestName, token string) string {
	link := d.baseURL + "/rsvp/" + token
	return strings.NewReplacer(
		"{{name}}", guestName,
		"{{rsvp_link}}", link,
	).Replace(body)
}

// record writes the mail-log audit row for one attempt.  Audit writes
// are best effort; a failure here must not turn a delivered message
// into a reported failure.
func (d *Dispatcher) record(ctx context.Context, tenantID uint64, token string, channel model.Channel, kind, providerID string, sendErr error) {
	m := &model.MailLog{
		TenantID:        tenantID,
		InvitationToken: token,
		Channel:         channel,
		Kind:            kind,
		Status:          "sent",
	}
	if sendErr != nil {
		m.Status = "failed"
		msg := sendErr.Error()
		m.Error = &msg
	}
	if providerID != "" {
		m.ProviderMessageID = &providerID
	}
	if err := d.sendLog.Insert(ctx, m); err != nil {
		d.log.Warn().Err(err).Str("token", token).Msg("mail log write failed")
	}
}

// contactFor picks the send target for a channel, normalizing phone
// numbers for the messaging channels.
func contactFor(channel model.Channel, email, phone string) string {
	switch channel {
	case model.ChannelEmail:
		return strings.TrimSpace(email)
	case model.ChannelSMS, model.ChannelWhatsApp:
		return notify.NormalizePhone(phone)
	}
	return ""
}

func dedupe(ids []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
