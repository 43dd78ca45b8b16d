package model

import "time"

// Channel identifies a delivery transport for guest messages.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
)

// Valid reports whether c is a known channel.
func (c Channel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelWhatsApp:
		return true
	}
	return false
}

// MailLog is an immutable audit row written once per send attempt,
// success or failure.  Besides auditing, the count of these rows per
// (token, channel) since UTC midnight is the source of truth for the
// daily notify limit.
//
// Fields:
//  ID                – primary key identifier.
//  TenantID          – owning tenant.
//  InvitationToken   – token of the invitation the message targeted.
//  Channel           – transport the message went over.
//  Kind              – what was sent (invite, reminder, announcement).
//  Status            – sent | failed.
//  Error             – provider error text when Status is failed.
//  ProviderMessageID – id returned by the provider on success.
//  SentAt            – attempt timestamp in UTC.
type MailLog struct {
	ID                uint64    // mail_logs.id
	TenantID          uint64    // mail_logs.tenant_id
	InvitationToken   string    // mail_logs.invitation_token
	Channel           Channel   // mail_logs.channel
	Kind              string    // mail_logs.kind
	Status            string    // mail_logs.status
	Error             *string   // mail_logs.error (nullable)
	ProviderMessageID *string   // mail_logs.provider_message_id (nullable)
	SentAt            time.Time // mail_logs.sent_at
}

// MailLog kinds.
const (
	MailKindInvite       = "invite"
	MailKindReminder     = "reminder"
	MailKindAnnouncement = "announcement"
)
