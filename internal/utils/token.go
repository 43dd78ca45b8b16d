package utils

import (
	"crypto/rand" // secure random number generation
	"encoding/hex"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// inviteCodeAlphabet excludes look-alike characters (0/O, 1/I/L) so
// codes survive being read aloud at the door.
const inviteCodeAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

// NewInviteCode returns a short human-enterable code used for guest
// check-in at the door.  Eight characters over a 31-symbol alphabet
// is far beyond what the per-tenant guest counts need.
func NewInviteCode() (string, error) {
	return gonanoid.Generate(inviteCodeAlphabet, 8)
}

// NewInvitationToken returns the opaque capability string embedded in
// RSVP links.  Whoever holds the token can answer the invitation, so
// it is long random hex, never guessable or enumerable.
func NewInvitationToken() (string, error) {
	buf := make([]byte, 24) // 48 hex chars
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
