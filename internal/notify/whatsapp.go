package notify

import (
	"context"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	qrcode "github.com/skip2/go-qrcode"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"

	"github.com/avivron/weddinghub/internal/model"
)

// WhatsAppSender delivers messages through a linked WhatsApp device
// using whatsmeow.  The session is persisted in a local sqlite store
// so the device stays linked across restarts; first startup prints a
// pairing QR code to the terminal.
type WhatsAppSender struct {
	client *whatsmeow.Client
	log    zerolog.Logger
}

// NewWhatsAppSender opens (or creates) the whatsmeow session store
// under dataDir and builds the client.  Connect must be called
// before the sender is used.
func NewWhatsAppSender(dataDir string, log zerolog.Logger) (*WhatsAppSender, error) {
	ctx := context.Background()
	container, err := sqlstore.New(ctx, "sqlite3", fmt.Sprintf("file:%s/whatsmeow.db?_foreign_keys=on", dataDir), nil)
	if err != nil {
		return nil, fmt.Errorf("open whatsapp session store: %w", err)
	}
	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("load whatsapp device: %w", err)
	}
	s := &WhatsAppSender{
		client: whatsmeow.NewClient(device, nil),
		log:    log.With().Str("component", "whatsapp").Logger(),
	}
	s.client.AddEventHandler(s.handleEvent)
	return s, nil
}

// Connect links or reconnects the device.  When no session exists
// yet, the pairing QR code is rendered to stdout and Connect blocks
// until the phone scans it.
func (s *WhatsAppSender) Connect(ctx context.Context) error {
	if s.client.Store.ID == nil {
		qrChan, _ := s.client.GetQRChannel(ctx)
		if err := s.client.Connect(); err != nil {
			return fmt.Errorf("whatsapp connect: %w", err)
		}
		for evt := range qrChan {
			if evt.Event != "code" {
				s.log.Info().Str("event", evt.Event).Msg("whatsapp pairing")
				continue
			}
			if q, err := qrcode.New(evt.Code, qrcode.Medium); err == nil {
				fmt.Println("\n" + q.ToSmallString(false))
				fmt.Println("Scan the QR code with WhatsApp (Settings > Linked Devices).")
			} else {
				fmt.Printf("WhatsApp pairing code: %s\n", evt.Code)
			}
		}
		return nil
	}
	if err := s.client.Connect(); err != nil {
		return fmt.Errorf("whatsapp connect: %w", err)
	}
	return nil
}

// Disconnect tears the connection down.
func (s *WhatsAppSender) Disconnect() { s.client.Disconnect() }

// Channel implements Sender.
func (s *WhatsAppSender) Channel() model.Channel { return model.ChannelWhatsApp }

// Send implements Sender.  The destination number is verified to be
// on WhatsApp before sending; the verified JID is used so numbers
// typed with local formatting still resolve.
func (s *WhatsAppSender) Send(ctx context.Context, msg Message) (string, error) {
	phone := NormalizePhone(msg.To)
	if phone == "" {
		return "", fmt.Errorf("recipient has no phone number")
	}
	resp, err := s.client.IsOnWhatsApp(ctx, []string{phone})
	if err != nil {
		return "", fmt.Errorf("verify number on whatsapp: %w", err)
	}
	if len(resp) == 0 || !resp[0].IsIn {
		return "", fmt.Errorf("number %s is not registered on whatsapp", phone)
	}
	jid := resp[0].JID
	if jid.IsEmpty() {
		jid = types.NewJID(phone, types.DefaultUserServer)
	}

	body := msg.Body
	sent, err := s.client.SendMessage(ctx, jid, &waE2E.Message{Conversation: &body})
	if err != nil {
		return "", fmt.Errorf("whatsapp send to %s: %w", jid.String(), err)
	}
	s.log.Debug().Str("jid", jid.String()).Str("message_id", string(sent.ID)).Msg("message delivered")
	return string(sent.ID), nil
}

func (s *WhatsAppSender) handleEvent(evt interface{}) {
	switch evt.(type) {
	case *events.Connected:
		s.log.Info().Msg("connected to whatsapp")
	case *events.Disconnected:
		s.log.Warn().Msg("disconnected from whatsapp")
	case *events.LoggedOut:
		s.log.Error().Msg("logged out from whatsapp, re-pairing required")
	}
}
