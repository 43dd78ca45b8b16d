package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"net/http" // HTTP status codes for responses
	"strings"  // string utilities for prefix checking and trimming

	"github.com/golang-jwt/jwt/v5" // JWT library for parsing and validating tokens
	"github.com/labstack/echo/v4"  // Echo framework used for defining middleware and handlers
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and injects the token's subject and tenant_id claims into the request
// context.  The provided secret must match the one used when issuing
// tokens.  This middleware wraps every admin route: handlers read the
// authenticated identity via c.Get("user_id") and the tenant scope via
// c.Get("tenant_id").  Tenant scoping starts here; a request can never
// name a tenant other than the one baked into its token.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			// Parse using HS256 with our secret; reject any other
			// signing method the token might claim.
			tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.ErrUnauthorized
				}
				return []byte(secret), nil
			})
			if err != nil || !tok.Valid {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}

			// Claims decoded from JSON arrive as float64.
			sub, okSub := claims["sub"].(float64)
			tenant, okTenant := claims["tenant_id"].(float64)
			if !okSub || !okTenant || tenant <= 0 {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}
			c.Set("user_id", uint64(sub))
			c.Set("tenant_id", uint64(tenant))
			return next(c)
		}
	}
}

// TenantID reads the tenant scope set by JWTAuth.  Zero means the
// request is unauthenticated.
func TenantID(c echo.Context) uint64 {
	if v, ok := c.Get("tenant_id").(uint64); ok {
		return v
	}
	return 0
}
