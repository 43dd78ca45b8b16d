package handler

import (
	"context" // provides context with cancellation for DB calls
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/avivron/weddinghub/internal/config"
	"github.com/avivron/weddinghub/internal/repository"
	"github.com/avivron/weddinghub/internal/utils"
)

// AuthHandler bundles dependencies for auth endpoints.  Admin users
// are provisioned out of band (one or two per wedding); the API only
// exchanges credentials for a tenant-scoped access token.
type AuthHandler struct {
	Cfg   config.Config
	Users *repository.UserRepo
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u}
}

// ----- DTOs -----

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResp struct {
	Token    string    `json:"token"`
	Expires  time.Time `json:"expires"`
	TenantID uint64    `json:"tenant_id"`
}

// Login verifies credentials and issues an access token carrying the
// user's tenant scope.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	user, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil || !utils.VerifyPassword(user.PasswordHash, req.Password) {
		// One message for unknown email and wrong password.
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, user.ID, user.TenantID, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue token failed"})
	}
	return c.JSON(http.StatusOK, loginResp{Token: access.Token, Expires: access.Exp, TenantID: user.TenantID})
}
