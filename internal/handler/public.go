package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/avivron/weddinghub/internal/model"
	"github.com/avivron/weddinghub/internal/service"
)

// PublicHandler serves the unauthenticated guest-facing flow.  The
// invitation token in the URL is the whole credential: it is long
// random hex minted at guest creation, so possession of a link equals
// the right to answer that one invitation and nothing else.
type PublicHandler struct {
	Guests    *service.Guests
	Lifecycle *service.Lifecycle
	BaseURL   string
}

func NewPublicHandler(guests *service.Guests, lifecycle *service.Lifecycle, baseURL string) *PublicHandler {
	return &PublicHandler{Guests: guests, Lifecycle: lifecycle, BaseURL: strings.TrimRight(baseURL, "/")}
}

type invitationViewResp struct {
	GuestName string          `json:"guest_name"`
	Household *string         `json:"household,omitempty"`
	Events    []eventRSVPPart `json:"events"`
}

// View renders the RSVP page data for an invitation link.
func (h *PublicHandler) View(c echo.Context) error {
	token := c.Param("token")
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	view, err := h.Guests.ViewByToken(ctx, token)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, invitationViewResp{
		GuestName: view.GuestName,
		Household: view.Household,
		Events:    toEventRSVPParts(view.Events),
	})
}

type rsvpReq struct {
	EventID   uint64 `json:"event_id"`
	Response  string `json:"response"` // accepted | declined
	Headcount uint32 `json:"headcount"`
}

type rsvpResp struct {
	EventID     uint64     `json:"event_id"`
	Status      string     `json:"status"`
	Headcount   uint32     `json:"headcount"`
	RespondedAt *time.Time `json:"responded_at,omitempty"`
}

// RSVP records (or re-records) the guest's answer for one event.
// Submitting the same answer twice returns the same state both
// times; the guest can also change their mind until the door.
func (h *PublicHandler) RSVP(c echo.Context) error {
	token := c.Param("token")
	var req rsvpReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.EventID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "event_id required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ie, err := h.Lifecycle.RecordRSVP(ctx, 0, token, req.EventID,
		model.RSVPStatus(strings.ToLower(req.Response)), req.Headcount)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, rsvpResp{
		EventID:     ie.EventID,
		Status:      string(ie.Status),
		Headcount:   ie.Headcount,
		RespondedAt: ie.RespondedAt,
	})
}

// CheckIn is the QR-scan door flow: the token alone resolves the
// invitation's sole event and records arrival.
func (h *PublicHandler) CheckIn(c echo.Context) error {
	token := c.Param("token")
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	result, err := h.Lifecycle.CheckInByToken(ctx, 0, token)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// QR returns a PNG QR code wrapping the invitation's check-in URL,
// for printing on place cards or sending alongside the invite.
func (h *PublicHandler) QR(c echo.Context) error {
	token := c.Param("token")
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	// Resolve first so unknown tokens 404 instead of yielding a
	// scannable code pointing nowhere.
	if _, err := h.Guests.ViewByToken(ctx, token); err != nil {
		return writeErr(c, err)
	}
	png, err := qrcode.Encode(h.BaseURL+"/checkin/"+token, qrcode.Medium, 256)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "qr encode failed"})
	}
	return c.Blob(http.StatusOK, "image/png", png)
}
