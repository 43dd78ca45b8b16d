// Package queue defines message payloads exchanged over the message broker
// and the background consumer that turns them into the guest activity log.
package queue

// Queue names, also used as routing keys on the default exchange.
const (
	GuestCheckedInQueue        = "guest.checked_in"
	RSVPRecordedQueue          = "rsvp.recorded"
	AnnouncementCompletedQueue = "announcement.completed"
)

// GuestCheckedInEvent is published after an attendance row is created.
// It carries enough information for downstream consumers to log or
// notify without querying the primary database.
type GuestCheckedInEvent struct {
	TenantID    uint64 `json:"tenant_id"`
	GuestID     uint64 `json:"guest_id"`
	GuestName   string `json:"guest_name"`
	EventID     uint64 `json:"event_id"`
	Headcount   uint32 `json:"headcount"`
	CheckedInAt string `json:"checked_in_at"`
}

// RSVPRecordedEvent is published after an RSVP answer is written.
type RSVPRecordedEvent struct {
	TenantID     uint64 `json:"tenant_id"`
	InvitationID uint64 `json:"invitation_id"`
	EventID      uint64 `json:"event_id"`
	Status       string `json:"status"`
	Headcount    uint32 `json:"headcount"`
	RecordedAt   string `json:"recorded_at"`
}

// AnnouncementCompletedEvent is published when a dispatch run reaches
// its aggregate outcome.
type AnnouncementCompletedEvent struct {
	TenantID       uint64 `json:"tenant_id"`
	AnnouncementID string `json:"announcement_id"`
	Title          string `json:"title"`
	Channel        string `json:"channel"`
	SentCount      uint32 `json:"sent_count"`
	FailedCount    uint32 `json:"failed_count"`
	SkippedCount   uint32 `json:"skipped_count"`
	Status         string `json:"status"`
	CompletedAt    string `json:"completed_at"`
}
