package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/avivron/weddinghub/internal/repository"
	"github.com/avivron/weddinghub/internal/service"
)

func recordErr(t *testing.T, err error) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	if werr := writeErr(c, err); werr != nil {
		t.Fatalf("writeErr: %v", werr)
	}
	return rec
}

func TestWriteErrStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: bad field", service.ErrValidation), http.StatusBadRequest},
		{repository.ErrRateLimited, http.StatusTooManyRequests},
		{repository.ErrForbidden, http.StatusForbidden},
		{repository.ErrNotAccepted, http.StatusConflict},
		{repository.ErrSeatTaken, http.StatusConflict},
		{repository.ErrGuestAlreadySeated, http.StatusConflict},
		{repository.ErrConflict, http.StatusConflict},
		{repository.ErrGuestNotFound, http.StatusNotFound},
		{repository.ErrInvitationNotFound, http.StatusNotFound},
		{repository.ErrAnnouncementNotFound, http.StatusNotFound},
		{repository.ErrTableNotFound, http.StatusNotFound},
		{errors.New("driver exploded"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		if rec := recordErr(t, c.err); rec.Code != c.want {
			t.Errorf("writeErr(%v) = %d, want %d", c.err, rec.Code, c.want)
		}
	}
}

func TestWriteErrAlreadyCheckedInCarriesTimestamp(t *testing.T) {
	at := time.Date(2026, 6, 20, 19, 30, 0, 0, time.UTC)
	rec := recordErr(t, &repository.AlreadyCheckedInError{At: at})
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	var body struct {
		Error       string    `json:"error"`
		CheckedInAt time.Time `json:"checked_in_at"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error != "already checked in" || !body.CheckedInAt.Equal(at) {
		t.Fatalf("body = %+v", body)
	}
}

func TestWriteErrInternalHidesDetail(t *testing.T) {
	rec := recordErr(t, errors.New("password in the error text"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error"] != "internal error" {
		t.Fatalf("internal errors must not leak detail, got %q", body["error"])
	}
}
