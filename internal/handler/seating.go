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

// SeatingHandler bundles the seating-planner endpoints.
type SeatingHandler struct {
	Seating *service.Seating
}

func NewSeatingHandler(s *service.Seating) *SeatingHandler {
	return &SeatingHandler{Seating: s}
}

// ----- DTOs -----

type createTableReq struct {
	EventID  uint64  `json:"event_id"`
	Name     string  `json:"name"`
	Capacity uint32  `json:"capacity"`
	PosX     float64 `json:"pos_x"`
	PosY     float64 `json:"pos_y"`
}

type tablePart struct {
	ID       uint64  `json:"id"`
	EventID  uint64  `json:"event_id"`
	Name     string  `json:"name"`
	Capacity uint32  `json:"capacity"`
	PosX     float64 `json:"pos_x"`
	PosY     float64 `json:"pos_y"`
}

type seatPart struct {
	ID         uint64  `json:"id"`
	SeatNumber uint32  `json:"seat_number"`
	GuestID    *uint64 `json:"guest_id,omitempty"`
}

func toTablePart(t *model.SeatingTable) tablePart {
	return tablePart{ID: t.ID, EventID: t.EventID, Name: t.Name, Capacity: t.Capacity, PosX: t.PosX, PosY: t.PosY}
}

func toSeatPart(s *model.Seat) seatPart {
	return seatPart{ID: s.ID, SeatNumber: s.SeatNumber, GuestID: s.GuestID}
}

// CreateTable adds a table with its seat grid to an event.
func (h *SeatingHandler) CreateTable(c echo.Context) error {
	var req createTableReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	t := &model.SeatingTable{
		EventID: req.EventID, Name: req.Name, Capacity: req.Capacity, PosX: req.PosX, PosY: req.PosY,
	}
	created, err := h.Seating.CreateTable(ctx, middleware.TenantID(c), t)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusCreated, toTablePart(created))
}

// ListTables returns an event's tables.
func (h *SeatingHandler) ListTables(c echo.Context) error {
	eventID, err := pathID(c, "eventID")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tables, err := h.Seating.ListTables(ctx, middleware.TenantID(c), eventID)
	if err != nil {
		return writeErr(c, err)
	}
	out := make([]tablePart, 0, len(tables))
	for i := range tables {
		out = append(out, toTablePart(&tables[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"tables": out})
}

// GetTable returns one table with all its seats.
func (h *SeatingHandler) GetTable(c echo.Context) error {
	tableID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid table id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	view, err := h.Seating.GetTable(ctx, middleware.TenantID(c), tableID)
	if err != nil {
		return writeErr(c, err)
	}
	seats := make([]seatPart, 0, len(view.Seats))
	for i := range view.Seats {
		seats = append(seats, toSeatPart(&view.Seats[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"table": toTablePart(view.Table), "seats": seats})
}

type assignSeatReq struct {
	SeatNumber uint32 `json:"seat_number"`
	GuestID    uint64 `json:"guest_id"`
}

// AssignSeat places a guest on a seat.  Losing a race for the seat
// returns 409; re-placing the same guest on their own seat succeeds.
func (h *SeatingHandler) AssignSeat(c echo.Context) error {
	tableID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid table id"})
	}
	var req assignSeatReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.SeatNumber == 0 || req.GuestID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_number and guest_id required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	seat, err := h.Seating.AssignSeat(ctx, middleware.TenantID(c), tableID, req.SeatNumber, req.GuestID)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, toSeatPart(seat))
}

// UnassignSeat frees a seat; freeing an empty seat is a quiet no-op.
func (h *SeatingHandler) UnassignSeat(c echo.Context) error {
	seatID, err := pathID(c, "seatID")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid seat id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Seating.UnassignSeat(ctx, middleware.TenantID(c), seatID); err != nil {
		return writeErr(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type moveTablesReq struct {
	Updates []repository.TablePosition `json:"updates"`
}

// MoveTables applies a drag-and-drop layout change in one shot.  A
// single unknown table id rejects the whole request.
func (h *SeatingHandler) MoveTables(c echo.Context) error {
	var req moveTablesReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Seating.MoveTables(ctx, middleware.TenantID(c), req.Updates); err != nil {
		return writeErr(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
