package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/avivron/weddinghub/internal/model"
	"github.com/avivron/weddinghub/internal/repository"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestLimiterBlocksFourthSend(t *testing.T) {
	now := time.Date(2026, 6, 15, 14, 0, 0, 0, time.UTC)
	logs := newMemSendLog(fixedClock(now))
	lim := NewNotifyLimiter(logs, 3, fixedClock(now))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := lim.CheckAndConsume(ctx, "tok", model.ChannelSMS, false); err != nil {
			t.Fatalf("send %d: %v", i+1, err)
		}
		logs.seed("tok", model.ChannelSMS, now, 1)
	}
	err := lim.CheckAndConsume(ctx, "tok", model.ChannelSMS, false)
	if !errors.Is(err, repository.ErrRateLimited) {
		t.Fatalf("fourth send err = %v, want ErrRateLimited", err)
	}
}

func TestLimiterChannelsCountSeparately(t *testing.T) {
	now := time.Date(2026, 6, 15, 14, 0, 0, 0, time.UTC)
	logs := newMemSendLog(fixedClock(now))
	logs.seed("tok", model.ChannelSMS, now, 3)
	lim := NewNotifyLimiter(logs, 3, fixedClock(now))
	ctx := context.Background()

	if err := lim.CheckAndConsume(ctx, "tok", model.ChannelSMS, false); !errors.Is(err, repository.ErrRateLimited) {
		t.Fatalf("sms err = %v, want ErrRateLimited", err)
	}
	if err := lim.CheckAndConsume(ctx, "tok", model.ChannelEmail, false); err != nil {
		t.Fatalf("email should be unaffected: %v", err)
	}
	if err := lim.CheckAndConsume(ctx, "other", model.ChannelSMS, false); err != nil {
		t.Fatalf("other token should be unaffected: %v", err)
	}
}

func TestLimiterResetsAtUTCMidnight(t *testing.T) {
	yesterday := time.Date(2026, 6, 14, 23, 50, 0, 0, time.UTC)
	today := time.Date(2026, 6, 15, 0, 10, 0, 0, time.UTC)
	logs := newMemSendLog(fixedClock(yesterday))
	logs.seed("tok", model.ChannelEmail, yesterday, 3)

	lim := NewNotifyLimiter(logs, 3, fixedClock(today))
	if err := lim.CheckAndConsume(context.Background(), "tok", model.ChannelEmail, false); err != nil {
		t.Fatalf("sends from the previous UTC day must not count: %v", err)
	}
}

func TestLimiterIgnoreFlagBypasses(t *testing.T) {
	now := time.Date(2026, 6, 15, 14, 0, 0, 0, time.UTC)
	logs := newMemSendLog(fixedClock(now))
	logs.seed("tok", model.ChannelWhatsApp, now, 10)
	lim := NewNotifyLimiter(logs, 3, fixedClock(now))

	if err := lim.CheckAndConsume(context.Background(), "tok", model.ChannelWhatsApp, true); err != nil {
		t.Fatalf("ignoreLimit must bypass the quota: %v", err)
	}
}

func TestLimiterRemaining(t *testing.T) {
	now := time.Date(2026, 6, 15, 14, 0, 0, 0, time.UTC)
	logs := newMemSendLog(fixedClock(now))
	logs.seed("tok", model.ChannelEmail, now, 2)
	lim := NewNotifyLimiter(logs, 3, fixedClock(now))

	q, err := lim.Remaining(context.Background(), "tok", model.ChannelEmail)
	if err != nil {
		t.Fatalf("Remaining: %v", err)
	}
	if q.SentToday != 2 || q.Remaining != 1 || q.MaxPerDay != 3 || !q.CanSend {
		t.Fatalf("quota = %+v, want sent=2 remaining=1 max=3 can_send=true", q)
	}
	wantReset := time.Date(2026, 6, 16, 0, 0, 0, 0, time.UTC)
	if !q.WindowResetAt.Equal(wantReset) {
		t.Fatalf("reset at %v, want %v", q.WindowResetAt, wantReset)
	}

	// Over-quota usage never reports negative remaining.
	logs.seed("tok", model.ChannelEmail, now, 5)
	q, err = lim.Remaining(context.Background(), "tok", model.ChannelEmail)
	if err != nil {
		t.Fatalf("Remaining: %v", err)
	}
	if q.Remaining != 0 {
		t.Fatalf("remaining = %d, want 0", q.Remaining)
	}
	if q.CanSend {
		t.Fatal("can_send must be false once the quota is spent")
	}
}

func TestLimiterQuotaPayloadShape(t *testing.T) {
	now := time.Date(2026, 6, 15, 14, 0, 0, 0, time.UTC)
	lim := NewNotifyLimiter(newMemSendLog(fixedClock(now)), 3, fixedClock(now))

	q, err := lim.Remaining(context.Background(), "tok", model.ChannelEmail)
	if err != nil {
		t.Fatalf("Remaining: %v", err)
	}
	b, err := json.Marshal(q)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"sent_today", "remaining", "max_per_day", "can_send", "window_reset_at"} {
		if _, ok := got[key]; !ok {
			t.Fatalf("quota payload missing %q: %s", key, b)
		}
	}
	if got["can_send"] != true {
		t.Fatalf("can_send = %v, want true on a fresh window", got["can_send"])
	}
}

func TestLimiterDefaults(t *testing.T) {
	lim := NewNotifyLimiter(newMemSendLog(nil), 0, nil)
	if lim.maxPerDay != 3 {
		t.Fatalf("default maxPerDay = %d, want 3", lim.maxPerDay)
	}
}
