// Package repository defines data access for the guest lifecycle,
// messaging and seating tables.  Error values declared here are
// shared across repositories so that handlers and services can
// distinguish failure scenarios without inspecting driver errors.
// Conflict-style sentinels (seat taken, already checked in) are the
// authoritative signal produced by unique-key violations; the
// preceding reads are only advisory.
package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

// ErrForbidden is returned when the caller attempts an operation on
// a resource owned by another tenant.  Handlers should translate
// this into an HTTP 403 response.  Note that most lookups instead
// report cross-tenant rows as not found so that existence never
// leaks across tenants.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an operation cannot proceed because
// of conflicting state that has no more specific sentinel, such as
// dispatching an announcement that was cancelled concurrently.
var ErrConflict = errors.New("conflict")

// Not-found sentinels.  A row filtered out by the tenant scope is
// reported identically to a row that does not exist.
var (
	ErrTenantNotFound          = errors.New("tenant not found")
	ErrGuestNotFound           = errors.New("guest not found")
	ErrEventNotFound           = errors.New("event not found")
	ErrInvitationNotFound      = errors.New("invitation not found")
	ErrInvitationEventNotFound = errors.New("invitation event not found")
	ErrAnnouncementNotFound    = errors.New("announcement not found")
	ErrTableNotFound           = errors.New("table not found")
	ErrSeatNotFound            = errors.New("seat not found")
	ErrUserNotFound            = errors.New("user not found")
)

// Conflict sentinels for the seating allocator.
var (
	// ErrSeatTaken means the (table, seat number) pair already has a
	// different occupant.
	ErrSeatTaken = errors.New("seat already taken")
	// ErrGuestAlreadySeated means the guest occupies another seat at
	// the same table.
	ErrGuestAlreadySeated = errors.New("guest already seated at this table")
)

// ErrNotAccepted is returned by check-in when the invitation event
// has not been accepted, so there is nothing to check in.
var ErrNotAccepted = errors.New("rsvp not accepted")

// ErrRateLimited is returned when the daily notify limit for an
// (invitation, channel) pair is exhausted.
var ErrRateLimited = errors.New("daily send limit reached")

// ErrAlreadyCheckedIn is the target for errors.Is when a duplicate
// check-in is attempted.  The concrete error is an
// *AlreadyCheckedInError carrying the original timestamp.
var ErrAlreadyCheckedIn = errors.New("already checked in")

// AlreadyCheckedInError reports a duplicate check-in attempt.  At is
// the timestamp of the original, surviving attendance record so the
// door staff can show when the guest first entered.
type AlreadyCheckedInError struct {
	At time.Time
}

func (e *AlreadyCheckedInError) Error() string {
	return fmt.Sprintf("already checked in at %s", e.At.UTC().Format(time.RFC3339))
}

// Is makes errors.Is(err, ErrAlreadyCheckedIn) succeed for this type.
func (e *AlreadyCheckedInError) Is(target error) bool {
	return target == ErrAlreadyCheckedIn
}

// isDuplicate reports whether err is a MySQL duplicate-key violation
// (error 1062).  Repositories treat this as the authoritative
// conflict signal rather than relying on a preceding read.
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
