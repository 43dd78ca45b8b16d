package service

import (
	"context"
	"time"

	"github.com/avivron/weddinghub/internal/model"
	"github.com/avivron/weddinghub/internal/repository"
)

// SendLogCounter is the slice of the mail-log repository the limiter
// consumes.
type SendLogCounter interface {
	CountSince(ctx context.Context, token string, channel model.Channel, since time.Time) (int, error)
}

// NotifyLimiter enforces the per-invitation, per-channel daily send
// quota.  The counting window is the current UTC calendar day, so the
// quota resets at 00:00 UTC regardless of server or guest timezone.
//
// The check is a best-effort read over the send log rather than an
// atomic reservation.  Two racing sends for the same token can both
// observe count=2 and both go through, briefly overshooting the
// limit by one.  That trade was made deliberately: the quota guards
// against runaway resend loops, not adversarial concurrency, and an
// atomic gate would put a hot write on every outbound message.
type NotifyLimiter struct {
	logs      SendLogCounter
	maxPerDay int
	now       func() time.Time
}

// NewNotifyLimiter constructs a limiter.  maxPerDay <= 0 falls back
// to the default of 3.  now may be nil, in which case time.Now is
// used; tests inject a fixed clock.
func NewNotifyLimiter(logs SendLogCounter, maxPerDay int, now func() time.Time) *NotifyLimiter {
	if maxPerDay <= 0 {
		maxPerDay = 3
	}
	if now == nil {
		now = time.Now
	}
	return &NotifyLimiter{logs: logs, maxPerDay: maxPerDay, now: now}
}

// windowStart returns midnight UTC of the current day.
func (l *NotifyLimiter) windowStart() time.Time {
	n := l.now().UTC()
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
}

// CheckAndConsume reports whether another message may be sent to the
// invitation on the channel today.  ErrRateLimited means the day's
// quota is spent.  ignoreLimit bypasses the check entirely, for
// operator-forced resends.  The "consume" half is implicit: the
// caller records the send in the mail log, which the next check
// counts.
func (l *NotifyLimiter) CheckAndConsume(ctx context.Context, token string, channel model.Channel, ignoreLimit bool) error {
	if ignoreLimit {
		return nil
	}
	n, err := l.logs.CountSince(ctx, token, channel, l.windowStart())
	if err != nil {
		return err
	}
	if n >= l.maxPerDay {
		return repository.ErrRateLimited
	}
	return nil
}

// Quota describes the remaining daily budget for one invitation and
// channel.
type Quota struct {
	SentToday     int       `json:"sent_today"`
	Remaining     int       `json:"remaining"`
	MaxPerDay     int       `json:"max_per_day"`
	CanSend       bool      `json:"can_send"`
	WindowResetAt time.Time `json:"window_reset_at"`
}

// Remaining reports today's usage without consuming anything.
func (l *NotifyLimiter) Remaining(ctx context.Context, token string, channel model.Channel) (*Quota, error) {
	start := l.windowStart()
	n, err := l.logs.CountSince(ctx, token, channel, start)
	if err != nil {
		return nil, err
	}
	left := l.maxPerDay - n
	if left < 0 {
		left = 0
	}
	return &Quota{
		SentToday:     n,
		Remaining:     left,
		MaxPerDay:     l.maxPerDay,
		CanSend:       left > 0,
		WindowResetAt: start.Add(24 * time.Hour),
	}, nil
}
