package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/avivron/weddinghub/internal/middleware"
	"github.com/avivron/weddinghub/internal/model"
	"github.com/avivron/weddinghub/internal/repository"
	"github.com/avivron/weddinghub/internal/service"
)

// NotifyHandler exposes bulk invitation sends, the daily quota query
// and the per-invitation send history.
type NotifyHandler struct {
	Dispatcher *service.Dispatcher
	Limiter    *service.NotifyLimiter
	MailLogs   *repository.MailLogRepo
}

func NewNotifyHandler(d *service.Dispatcher, l *service.NotifyLimiter, logs *repository.MailLogRepo) *NotifyHandler {
	return &NotifyHandler{Dispatcher: d, Limiter: l, MailLogs: logs}
}

type bulkInviteReq struct {
	EventIDs        []uint64 `json:"event_ids"`
	Channel         string   `json:"channel"`
	IgnoreRateLimit bool     `json:"ignore_rate_limit"`
}

// BulkInvite sends invitation messages to every guest invited to the
// given events.  Guests over their daily quota are skipped, not
// failed, and the response accounts for every recipient either way.
func (h *NotifyHandler) BulkInvite(c echo.Context) error {
	var req bulkInviteReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Minute)
	defer cancel()

	sum, err := h.Dispatcher.BulkInvite(ctx, middleware.TenantID(c),
		req.EventIDs, model.Channel(req.Channel), req.IgnoreRateLimit)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, sum)
}

// Quota reports how much of today's per-invitation send budget is
// left for a token and channel.
func (h *NotifyHandler) Quota(c echo.Context) error {
	token := c.QueryParam("token")
	channel := model.Channel(c.QueryParam("channel"))
	if token == "" || !channel.Valid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token and channel required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	q, err := h.Limiter.Remaining(ctx, token, channel)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, q)
}

type mailLogPart struct {
	Channel           string    `json:"channel"`
	Kind              string    `json:"kind"`
	Status            string    `json:"status"`
	Error             *string   `json:"error,omitempty"`
	ProviderMessageID *string   `json:"provider_message_id,omitempty"`
	SentAt            time.Time `json:"sent_at"`
}

// History returns the send audit trail of one invitation, newest
// first.
func (h *NotifyHandler) History(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	logs, err := h.MailLogs.ListByToken(ctx, middleware.TenantID(c), token, 100)
	if err != nil {
		return writeErr(c, err)
	}
	out := make([]mailLogPart, 0, len(logs))
	for _, m := range logs {
		out = append(out, mailLogPart{
			Channel:           string(m.Channel),
			Kind:              m.Kind,
			Status:            m.Status,
			Error:             m.Error,
			ProviderMessageID: m.ProviderMessageID,
			SentAt:            m.SentAt,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"history": out})
}
