package model

import "time"

// AnnouncementStatus tracks the lifecycle of a bulk message:
// draft → scheduled → sending → {sent, failed}, or cancelled while
// still draft/scheduled.
type AnnouncementStatus string

const (
	AnnouncementDraft     AnnouncementStatus = "draft"
	AnnouncementScheduled AnnouncementStatus = "scheduled"
	AnnouncementSending   AnnouncementStatus = "sending"
	AnnouncementSent      AnnouncementStatus = "sent"
	AnnouncementFailed    AnnouncementStatus = "failed"
	AnnouncementCancelled AnnouncementStatus = "cancelled"
)

// RecipientStatus is the per-guest delivery state within an
// announcement.  sent, failed and skipped are terminal: a resumed or
// retried dispatch run must never touch such a row again.
type RecipientStatus string

const (
	RecipientPending RecipientStatus = "pending"
	RecipientSent    RecipientStatus = "sent"
	RecipientFailed  RecipientStatus = "failed"
	RecipientSkipped RecipientStatus = "skipped"
)

// Terminal reports whether s is a final recipient state.
func (s RecipientStatus) Terminal() bool {
	return s == RecipientSent || s == RecipientFailed || s == RecipientSkipped
}

// BatchStatus mirrors the progress of one partition of recipients.
type BatchStatus string

const (
	BatchPending    BatchStatus = "pending"
	BatchProcessing BatchStatus = "processing"
	BatchCompleted  BatchStatus = "completed"
)

// Batch size bounds enforced on announcement creation.  DefaultBatchSize
// is used when the caller does not specify one.
const (
	MinBatchSize     = 20
	MaxBatchSize     = 100
	DefaultBatchSize = 50
)

// Announcement is a bulk message definition addressed to many guests
// over one channel.  Recipient and batch rows are persisted before
// sending begins so a crashed run can be resumed at batch
// granularity without re-contacting anyone.
//
// Fields:
//  ID          – UUID primary key.
//  TenantID    – owning tenant.
//  Title       – admin-facing label.
//  Body        – message template; per-guest placeholders are
//                rendered by the templating collaborator.
//  Channel     – delivery transport for every recipient.
//  BatchSize   – partition size, bounded to [MinBatchSize, MaxBatchSize].
//  SendToAll   – whether the recipient set is "all guests of the tenant".
//  ScheduledAt – when a scheduled announcement should go out.
//  Status      – lifecycle state, see AnnouncementStatus.
//  SentCount   – aggregate recipients delivered.
//  FailedCount – aggregate recipients that permanently failed.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Announcement struct {
	ID          string             // announcements.id (uuid)
	TenantID    uint64             // announcements.tenant_id
	Title       string             // announcements.title
	Body        string             // announcements.body
	Channel     Channel            // announcements.channel
	BatchSize   uint32             // announcements.batch_size
	SendToAll   bool               // announcements.send_to_all
	ScheduledAt *time.Time         // announcements.scheduled_at (nullable)
	Status      AnnouncementStatus // announcements.status
	SentCount   uint32             // announcements.sent_count
	FailedCount uint32             // announcements.failed_count
	CreatedAt   time.Time          // announcements.created_at
	UpdatedAt   time.Time          // announcements.updated_at
}

// AnnouncementRecipient targets one guest of an announcement.
//
// Fields:
//  ID             – primary key identifier.
//  AnnouncementID – owning announcement.
//  BatchID        – batch this recipient was partitioned into; zero
//                   until batches are cut.
//  GuestID        – targeted guest.
//  Status         – pending | sent | failed | skipped.
//  Error          – failure or skip reason, when terminal and not sent.
//  SentAt         – delivery timestamp, when sent.
type AnnouncementRecipient struct {
	ID             uint64          // announcement_recipients.id
	AnnouncementID string          // announcement_recipients.announcement_id
	BatchID        uint64          // announcement_recipients.batch_id
	GuestID        uint64          // announcement_recipients.guest_id
	Status         RecipientStatus // announcement_recipients.status
	Error          *string         // announcement_recipients.error (nullable)
	SentAt         *time.Time      // announcement_recipients.sent_at (nullable)
}

// AnnouncementBatch is a fixed-size partition of recipients, the unit
// of resumable progress.  Batches are processed strictly in Seq order.
//
// Fields:
//  ID             – primary key identifier.
//  AnnouncementID – owning announcement.
//  Seq            – 1-based position of this batch within the run.
//  Status         – pending | processing | completed.
//  SentCount      – recipients delivered in this batch.
//  FailedCount    – recipients permanently failed in this batch.
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type AnnouncementBatch struct {
	ID             uint64      // announcement_batches.id
	AnnouncementID string      // announcement_batches.announcement_id
	Seq            uint32      // announcement_batches.seq
	Status         BatchStatus // announcement_batches.status
	SentCount      uint32      // announcement_batches.sent_count
	FailedCount    uint32      // announcement_batches.failed_count
	CreatedAt      time.Time   // announcement_batches.created_at
	UpdatedAt      time.Time   // announcement_batches.updated_at
}
