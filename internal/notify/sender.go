// Package notify contains the channel senders: one narrow client per
// delivery transport (email, SMS, WhatsApp).  The engine depends
// only on the Sender contract, rendered content in and a provider
// message id or an error out, never on provider formats.
package notify

import (
	"context"

	"github.com/avivron/weddinghub/internal/model"
)

// Message is one rendered message addressed to a single guest.  To
// holds a phone number or email address depending on the channel.
type Message struct {
	To      string
	Name    string
	Subject string
	Body    string
}

// Sender delivers one message over one channel.  Implementations
// must be safe for concurrent use; the dispatcher fans out within a
// batch.
type Sender interface {
	Channel() model.Channel
	Send(ctx context.Context, msg Message) (providerID string, err error)
}

// Registry maps channels to their configured sender.
type Registry map[model.Channel]Sender

// NewRegistry builds a registry from the given senders, keyed by
// their channel.  Nil senders are skipped so a deployment can run
// with only the channels it has credentials for.
func NewRegistry(senders ...Sender) Registry {
	reg := make(Registry, len(senders))
	for _, s := range senders {
		if s != nil {
			reg[s.Channel()] = s
		}
	}
	return reg
}

// For returns the sender for a channel, nil when none is configured.
func (r Registry) For(ch model.Channel) Sender {
	return r[ch]
}
