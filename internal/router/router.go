package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	"github.com/redis/go-redis/v9"

	"github.com/avivron/weddinghub/internal/cache"
	"github.com/avivron/weddinghub/internal/config"
	"github.com/avivron/weddinghub/internal/handler"
	"github.com/avivron/weddinghub/internal/middleware"
)

// Handlers collects every handler the router mounts.  cmd/server
// builds this once after wiring services.
type Handlers struct {
	Auth          *handler.AuthHandler
	Tenant        *handler.TenantHandler
	Guests        *handler.GuestHandler
	Events        *handler.EventHandler
	Public        *handler.PublicHandler
	Seating       *handler.SeatingHandler
	Announcements *handler.AnnouncementHandler
	Notify        *handler.NotifyHandler
	Cache         *handler.CacheHandler
}

// RegisterRoutes registers routes that do not require authentication.
// Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterPublic mounts the unauthenticated guest-facing routes.  The
// invitation token in the path is the credential; an HTTP token
// bucket throttles these since anyone on the internet can poke them.
func RegisterPublic(e *echo.Echo, h Handlers, rdb *redis.Client) {
	g := e.Group("/v1/public")
	g.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	// RSVP page data for an invitation link.
	g.GET("/rsvp/:token", h.Public.View)
	// Record or change the guest's answer for one event.
	g.POST("/rsvp/:token", h.Public.RSVP)
	// QR-scan check-in; the token resolves the sole invited event.
	g.POST("/checkin/:token", h.Public.CheckIn)
	// Printable QR code pointing at the check-in URL.
	g.GET("/rsvp/:token/qr", h.Public.QR)
}

// RegisterAdmin mounts the tenant-scoped management API.  Every
// route requires a valid access token; JWTAuth injects the tenant
// scope, and the response cache keys off the tenant's namespace
// version so any write made through these routes invalidates reads
// immediately.
func RegisterAdmin(e *echo.Echo, h Handlers, cfg config.Config, rdb *redis.Client, versions *cache.Versions) {
	e.POST("/v1/auth/login", h.Auth.Login)

	v1 := e.Group("/v1")
	v1.Use(middleware.JWTAuth(cfg.JWTSecret))
	v1.Use(middleware.NewTenantCache(config.LoadCacheConfig(), rdb, versions))

	// Tenant profile for the logged-in couple.
	v1.GET("/tenant", h.Tenant.Me)

	// Guests and door check-in.
	v1.POST("/guests", h.Guests.Create)
	v1.GET("/guests", h.Guests.List)
	v1.GET("/guests/:id", h.Guests.Get)
	v1.POST("/guests/:id/invite", h.Guests.Invite)
	v1.POST("/checkin", h.Guests.CheckIn)

	// Events and the live attendance count.
	v1.POST("/events", h.Events.Create)
	v1.GET("/events", h.Events.List)
	v1.GET("/events/:id/attendance", h.Events.Attendance)

	// Seating planner.
	v1.POST("/tables", h.Seating.CreateTable)
	v1.GET("/events/:eventID/tables", h.Seating.ListTables)
	v1.GET("/tables/:id", h.Seating.GetTable)
	v1.POST("/tables/:id/assign", h.Seating.AssignSeat)
	v1.DELETE("/seats/:seatID/assignment", h.Seating.UnassignSeat)
	v1.PUT("/tables/positions", h.Seating.MoveTables)

	// Announcements and dispatch.
	v1.POST("/announcements", h.Announcements.Create)
	v1.GET("/announcements", h.Announcements.List)
	v1.GET("/announcements/:id", h.Announcements.Get)
	v1.POST("/announcements/:id/dispatch", h.Announcements.Dispatch)
	v1.POST("/announcements/:id/resend", h.Announcements.Resend)
	v1.POST("/announcements/:id/cancel", h.Announcements.Cancel)

	// Bulk invites, quota and send history.
	v1.POST("/notify/invites", h.Notify.BulkInvite)
	v1.GET("/notify/quota", h.Notify.Quota)
	v1.GET("/notify/history", h.Notify.History)

	// Cache namespace inspection and manual invalidation.
	v1.GET("/cache/version", h.Cache.Version)
	v1.POST("/cache/bump", h.Cache.Bump)
}
