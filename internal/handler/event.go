package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/avivron/weddinghub/internal/middleware"
	"github.com/avivron/weddinghub/internal/model"
	"github.com/avivron/weddinghub/internal/repository"
)

// EventHandler manages the wedding's events (ceremony, reception and
// friends).
type EventHandler struct {
	Events      *repository.EventRepo
	Attendances *repository.AttendanceRepo
}

func NewEventHandler(events *repository.EventRepo, attendance *repository.AttendanceRepo) *EventHandler {
	return &EventHandler{Events: events, Attendances: attendance}
}

type createEventReq struct {
	Name     string    `json:"name"`
	Venue    string    `json:"venue"`
	StartsAt time.Time `json:"starts_at"`
}

type eventPart struct {
	ID       uint64    `json:"id"`
	Name     string    `json:"name"`
	Venue    string    `json:"venue"`
	StartsAt time.Time `json:"starts_at"`
}

func toEventPart(e *model.Event) eventPart {
	return eventPart{ID: e.ID, Name: e.Name, Venue: e.Venue, StartsAt: e.StartsAt}
}

// Create adds an event under the tenant.
func (h *EventHandler) Create(c echo.Context) error {
	var req createEventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Name == "" || req.StartsAt.IsZero() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name and starts_at required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	e := &model.Event{TenantID: middleware.TenantID(c), Name: req.Name, Venue: req.Venue, StartsAt: req.StartsAt.UTC()}
	if err := h.Events.Create(ctx, e); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusCreated, toEventPart(e))
}

// List returns the tenant's events.
func (h *EventHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	events, err := h.Events.ListByTenant(ctx, middleware.TenantID(c))
	if err != nil {
		return writeErr(c, err)
	}
	out := make([]eventPart, 0, len(events))
	for i := range events {
		out = append(out, toEventPart(&events[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"events": out})
}

// Attendance reports the live checked-in count for the door
// dashboard.
func (h *EventHandler) Attendance(c echo.Context) error {
	eventID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Events.GetByIDAndTenant(ctx, eventID, middleware.TenantID(c)); err != nil {
		return writeErr(c, err)
	}
	n, err := h.Attendances.CountByEvent(ctx, eventID)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"event_id": eventID, "checked_in": n})
}
