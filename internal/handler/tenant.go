package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/avivron/weddinghub/internal/middleware"
	"github.com/avivron/weddinghub/internal/repository"
)

// TenantHandler returns the authenticated tenant's own profile.
type TenantHandler struct {
	Tenants *repository.TenantRepo
}

func NewTenantHandler(t *repository.TenantRepo) *TenantHandler {
	return &TenantHandler{Tenants: t}
}

// Me returns the wedding this token manages.
func (h *TenantHandler) Me(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	t, err := h.Tenants.GetByID(ctx, middleware.TenantID(c))
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"id":           t.ID,
		"name":         t.Name,
		"slug":         t.Slug,
		"wedding_date": t.WeddingDate,
	})
}
