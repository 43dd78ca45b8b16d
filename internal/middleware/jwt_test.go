package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/avivron/weddinghub/internal/utils"
)

const testSecret = "test-secret"

func doAuthed(t *testing.T, authHeader string) (*httptest.ResponseRecorder, uint64) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/guests", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var tenant uint64
	h := JWTAuth(testSecret)(func(c echo.Context) error {
		tenant = TenantID(c)
		return c.NoContent(http.StatusOK)
	})
	if err := h(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	return rec, tenant
}

func TestJWTAuthAcceptsValidToken(t *testing.T) {
	tok, err := utils.NewAccessToken(testSecret, 42, 7, 15)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}
	rec, tenant := doAuthed(t, "Bearer "+tok.Token)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", rec.Code, rec.Body)
	}
	if tenant != 7 {
		t.Fatalf("tenant scope = %d, want 7", tenant)
	}
}

func TestJWTAuthRejectsMissingHeader(t *testing.T) {
	rec, _ := doAuthed(t, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestJWTAuthRejectsWrongSecret(t *testing.T) {
	tok, err := utils.NewAccessToken("other-secret", 42, 7, 15)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}
	rec, _ := doAuthed(t, "Bearer "+tok.Token)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestJWTAuthRejectsExpiredToken(t *testing.T) {
	tok, err := utils.NewAccessToken(testSecret, 42, 7, -5)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}
	rec, _ := doAuthed(t, "Bearer "+tok.Token)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestTenantIDDefaultsToZero(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	if got := TenantID(c); got != 0 {
		t.Fatalf("TenantID without auth = %d, want 0", got)
	}
}
