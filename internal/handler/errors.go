package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/avivron/weddinghub/internal/repository"
	"github.com/avivron/weddinghub/internal/service"
)

// writeErr maps domain errors onto HTTP responses.  Every handler
// funnels its service and repository errors through here so the API
// speaks one error dialect: 404 for anything the tenant cannot see
// (including rows owned by other tenants), 409 for state conflicts,
// 429 for the daily send quota, 400 for bad input.
func writeErr(c echo.Context, err error) error {
	var checked *repository.AlreadyCheckedInError
	if errors.As(err, &checked) {
		return c.JSON(http.StatusConflict, echo.Map{
			"error":         "already checked in",
			"checked_in_at": checked.At,
		})
	}
	switch {
	case errors.Is(err, service.ErrValidation):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrRateLimited):
		return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "daily send limit reached"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, repository.ErrNotAccepted):
		return c.JSON(http.StatusConflict, echo.Map{"error": "invitation not accepted"})
	case errors.Is(err, repository.ErrSeatTaken):
		return c.JSON(http.StatusConflict, echo.Map{"error": "seat is taken"})
	case errors.Is(err, repository.ErrGuestAlreadySeated):
		return c.JSON(http.StatusConflict, echo.Map{"error": "guest already seated at this table"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "conflicting state"})
	case isNotFound(err):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}
	c.Logger().Errorf("internal error: %v", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

func isNotFound(err error) bool {
	for _, target := range []error{
		repository.ErrTenantNotFound,
		repository.ErrGuestNotFound,
		repository.ErrEventNotFound,
		repository.ErrInvitationNotFound,
		repository.ErrInvitationEventNotFound,
		repository.ErrAnnouncementNotFound,
		repository.ErrTableNotFound,
		repository.ErrSeatNotFound,
		repository.ErrUserNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
