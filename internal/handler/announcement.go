package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/avivron/weddinghub/internal/jobs"
	"github.com/avivron/weddinghub/internal/middleware"
	"github.com/avivron/weddinghub/internal/model"
	"github.com/avivron/weddinghub/internal/service"
)

// AnnouncementHandler bundles the announcement lifecycle and dispatch
// endpoints.  Dispatch runs on the worker when a task client is
// configured; without one it runs inline, which keeps single-process
// deployments working.
type AnnouncementHandler struct {
	Announcements *service.Announcements
	Dispatcher    *service.Dispatcher
	Tasks         *jobs.Client
}

func NewAnnouncementHandler(a *service.Announcements, d *service.Dispatcher, tasks *jobs.Client) *AnnouncementHandler {
	return &AnnouncementHandler{Announcements: a, Dispatcher: d, Tasks: tasks}
}

// ----- DTOs -----

type createAnnouncementReq struct {
	Title       string     `json:"title"`
	Body        string     `json:"body"`
	Channel     string     `json:"channel"`
	GuestIDs    []uint64   `json:"guest_ids"`
	SendToAll   bool       `json:"send_to_all"`
	BatchSize   uint32     `json:"batch_size"`
	ScheduledAt *time.Time `json:"scheduled_at"`
}

type announcementPart struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Channel     string     `json:"channel"`
	BatchSize   uint32     `json:"batch_size"`
	Status      string     `json:"status"`
	SentCount   uint32     `json:"sent_count"`
	FailedCount uint32     `json:"failed_count"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func toAnnouncementPart(a *model.Announcement) announcementPart {
	return announcementPart{
		ID:          a.ID,
		Title:       a.Title,
		Channel:     string(a.Channel),
		BatchSize:   a.BatchSize,
		Status:      string(a.Status),
		SentCount:   a.SentCount,
		FailedCount: a.FailedCount,
		ScheduledAt: a.ScheduledAt,
		CreatedAt:   a.CreatedAt,
	}
}

// Create persists an announcement.  Scheduled ones are handed to the
// worker with the run time; drafts wait for an explicit dispatch.
func (h *AnnouncementHandler) Create(c echo.Context) error {
	var req createAnnouncementReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	tenantID := middleware.TenantID(c)
	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	a, err := h.Announcements.Create(ctx, tenantID, service.CreateAnnouncementInput{
		Title:       req.Title,
		Body:        req.Body,
		Channel:     model.Channel(req.Channel),
		GuestIDs:    req.GuestIDs,
		SendToAll:   req.SendToAll,
		BatchSize:   req.BatchSize,
		ScheduledAt: req.ScheduledAt,
	})
	if err != nil {
		return writeErr(c, err)
	}
	if a.ScheduledAt != nil && h.Tasks != nil {
		if err := h.Tasks.EnqueueDispatch(ctx, tenantID, a.ID, a.ScheduledAt); err != nil {
			c.Logger().Errorf("enqueue scheduled dispatch: %v", err)
		}
	}
	return c.JSON(http.StatusCreated, toAnnouncementPart(a))
}

// List returns the tenant's announcements.
func (h *AnnouncementHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Announcements.List(ctx, middleware.TenantID(c))
	if err != nil {
		return writeErr(c, err)
	}
	out := make([]announcementPart, 0, len(items))
	for i := range items {
		out = append(out, toAnnouncementPart(&items[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"announcements": out})
}

type batchPart struct {
	Seq         uint32 `json:"seq"`
	Status      string `json:"status"`
	SentCount   uint32 `json:"sent_count"`
	FailedCount uint32 `json:"failed_count"`
}

type progressResp struct {
	Announcement announcementPart `json:"announcement"`
	Batches      []batchPart      `json:"batches"`
	Recipients   map[string]int   `json:"recipients"`
}

// Get returns one announcement with batch breakdown and recipient
// tallies, the polling endpoint behind the progress bar.
func (h *AnnouncementHandler) Get(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Announcements.Get(ctx, middleware.TenantID(c), c.Param("id"))
	if err != nil {
		return writeErr(c, err)
	}
	resp := progressResp{
		Announcement: toAnnouncementPart(p.Announcement),
		Batches:      make([]batchPart, 0, len(p.Batches)),
		Recipients:   make(map[string]int, len(p.Recipients)),
	}
	for _, b := range p.Batches {
		resp.Batches = append(resp.Batches, batchPart{
			Seq: b.Seq, Status: string(b.Status), SentCount: b.SentCount, FailedCount: b.FailedCount,
		})
	}
	for status, n := range p.Recipients {
		resp.Recipients[string(status)] = n
	}
	return c.JSON(http.StatusOK, resp)
}

// Dispatch starts (or resumes) the announcement's send run.  With a
// task client the run is detached and a 202 points the caller at the
// progress endpoint; inline runs block and return the summary.
func (h *AnnouncementHandler) Dispatch(c echo.Context) error {
	tenantID := middleware.TenantID(c)
	id := c.Param("id")
	if h.Tasks != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()
		if err := h.Tasks.EnqueueDispatch(ctx, tenantID, id, nil); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "enqueue failed"})
		}
		return c.JSON(http.StatusAccepted, echo.Map{"status": "queued"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Minute)
	defer cancel()
	sum, err := h.Dispatcher.Run(ctx, tenantID, id)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, sum)
}

// Resend re-runs delivery for failed recipients only.  Guests who
// already got the message are structurally excluded, not re-filtered.
func (h *AnnouncementHandler) Resend(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Minute)
	defer cancel()

	sum, err := h.Dispatcher.Resend(ctx, middleware.TenantID(c), c.Param("id"))
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, sum)
}

// Cancel withdraws a draft or scheduled announcement.
func (h *AnnouncementHandler) Cancel(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Announcements.Cancel(ctx, middleware.TenantID(c), c.Param("id")); err != nil {
		return writeErr(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
