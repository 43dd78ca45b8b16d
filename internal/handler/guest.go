package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/avivron/weddinghub/internal/middleware"
	"github.com/avivron/weddinghub/internal/model"
	"github.com/avivron/weddinghub/internal/repository"
	"github.com/avivron/weddinghub/internal/service"
)

// GuestHandler bundles dependencies for guest management and door
// check-in endpoints.
type GuestHandler struct {
	Guests    *service.Guests
	Lifecycle *service.Lifecycle
}

func NewGuestHandler(guests *service.Guests, lifecycle *service.Lifecycle) *GuestHandler {
	return &GuestHandler{Guests: guests, Lifecycle: lifecycle}
}

// ----- DTOs -----

type createGuestReq struct {
	FullName    string   `json:"full_name"`
	Phone       string   `json:"phone"`
	Email       string   `json:"email"`
	Household   *string  `json:"household"`
	TotalGuests uint32   `json:"total_guests"`
	EventIDs    []uint64 `json:"event_ids"`
}

type guestPart struct {
	ID          uint64  `json:"id"`
	FullName    string  `json:"full_name"`
	Phone       string  `json:"phone"`
	Email       string  `json:"email"`
	Household   *string `json:"household,omitempty"`
	TotalGuests uint32  `json:"total_guests"`
	InviteCode  string  `json:"invite_code"`
}

type eventRSVPPart struct {
	EventID     uint64     `json:"event_id"`
	EventName   string     `json:"event_name"`
	Venue       string     `json:"venue"`
	StartsAt    time.Time  `json:"starts_at"`
	Status      string     `json:"status"`
	Headcount   uint32     `json:"headcount"`
	RespondedAt *time.Time `json:"responded_at,omitempty"`
}

func toEventRSVPParts(details []repository.InvitationEventDetail) []eventRSVPPart {
	out := make([]eventRSVPPart, 0, len(details))
	for _, d := range details {
		out = append(out, eventRSVPPart{
			EventID:     d.EventID,
			EventName:   d.EventName,
			Venue:       d.Venue,
			StartsAt:    d.StartsAt,
			Status:      string(d.Status),
			Headcount:   d.Headcount,
			RespondedAt: d.RespondedAt,
		})
	}
	return out
}

type guestDetailResp struct {
	Guest  guestPart       `json:"guest"`
	Token  string          `json:"token"`
	Events []eventRSVPPart `json:"events"`
}

func toGuestPart(g *model.Guest) guestPart {
	return guestPart{
		ID:          g.ID,
		FullName:    g.FullName,
		Phone:       g.Phone,
		Email:       g.Email,
		Household:   g.Household,
		TotalGuests: g.TotalGuests,
		InviteCode:  g.InviteCode,
	}
}

func toGuestDetailResp(d *service.GuestDetail) guestDetailResp {
	return guestDetailResp{
		Guest:  toGuestPart(d.Guest),
		Token:  d.Invitation.Token,
		Events: toEventRSVPParts(d.Events),
	}
}

// Create registers a guest, mints their invitation and invites them
// to the given events in one call.
func (h *GuestHandler) Create(c echo.Context) error {
	var req createGuestReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	g := &model.Guest{
		FullName:    req.FullName,
		Phone:       req.Phone,
		Email:       req.Email,
		Household:   req.Household,
		TotalGuests: req.TotalGuests,
	}
	detail, err := h.Guests.Create(ctx, middleware.TenantID(c), g, req.EventIDs)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusCreated, toGuestDetailResp(detail))
}

// List returns the tenant's guest roster.
func (h *GuestHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	guests, err := h.Guests.List(ctx, middleware.TenantID(c))
	if err != nil {
		return writeErr(c, err)
	}
	out := make([]guestPart, 0, len(guests))
	for i := range guests {
		out = append(out, toGuestPart(&guests[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"guests": out})
}

// Get returns one guest with their invitation and RSVP breakdown.
func (h *GuestHandler) Get(c echo.Context) error {
	guestID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid guest id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	detail, err := h.Guests.Get(ctx, middleware.TenantID(c), guestID)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, toGuestDetailResp(detail))
}

type inviteReq struct {
	EventIDs []uint64 `json:"event_ids"`
}

// Invite adds the guest's invitation to more events.
func (h *GuestHandler) Invite(c echo.Context) error {
	guestID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid guest id"})
	}
	var req inviteReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Guests.Invite(ctx, middleware.TenantID(c), guestID, req.EventIDs); err != nil {
		return writeErr(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type checkinReq struct {
	InviteCode string `json:"invite_code"`
	EventID    uint64 `json:"event_id"`
}

// CheckIn records door arrival for a guest identified by their short
// invite code.  Repeated scans of the same guest get a 409 carrying
// the original check-in time.
func (h *GuestHandler) CheckIn(c echo.Context) error {
	var req checkinReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.InviteCode == "" || req.EventID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invite_code and event_id required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	result, err := h.Lifecycle.CheckIn(ctx, middleware.TenantID(c), req.InviteCode, req.EventID)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// pathID parses a numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	return strconv.ParseUint(c.Param(name), 10, 64)
}
