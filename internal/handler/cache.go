package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/avivron/weddinghub/internal/cache"
	"github.com/avivron/weddinghub/internal/middleware"
)

// CacheHandler exposes the tenant's cache namespace for inspection
// and manual invalidation.
type CacheHandler struct {
	Versions *cache.Versions
}

func NewCacheHandler(v *cache.Versions) *CacheHandler {
	return &CacheHandler{Versions: v}
}

// Bump force-advances the tenant's namespace version, instantly
// orphaning every cached response of the previous generation.  Used
// when an operator fixed data out of band and wants readers to see it
// now rather than at TTL expiry.
func (h *CacheHandler) Bump(c echo.Context) error {
	tenantID := middleware.TenantID(c)
	v := h.Versions.Bump(c.Request().Context(), tenantID)
	return c.JSON(http.StatusOK, echo.Map{"tenant_id": tenantID, "version": v})
}

// Version reports the tenant's current namespace version.
func (h *CacheHandler) Version(c echo.Context) error {
	tenantID := middleware.TenantID(c)
	v := h.Versions.Current(c.Request().Context(), tenantID)
	return c.JSON(http.StatusOK, echo.Map{"tenant_id": tenantID, "version": v})
}
