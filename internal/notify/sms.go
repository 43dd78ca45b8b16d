package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avivron/weddinghub/internal/model"
)

// SMSSender posts messages to an SMS gateway's HTTP API.  The
// gateway is expected to accept {sender, destination, message} and
// respond with {"message_id": "..."}.
type SMSSender struct {
	apiURL   string
	apiKey   string
	senderID string
	client   *http.Client
}

// NewSMSSender constructs an SMSSender.
func NewSMSSender(apiURL, apiKey, senderID string) *SMSSender {
	return &SMSSender{
		apiURL:   apiURL,
		apiKey:   apiKey,
		senderID: senderID,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

// Channel implements Sender.
func (s *SMSSender) Channel() model.Channel { return model.ChannelSMS }

// Send implements Sender.
func (s *SMSSender) Send(ctx context.Context, msg Message) (string, error) {
	phone := NormalizePhone(msg.To)
	if phone == "" {
		return "", fmt.Errorf("recipient has no phone number")
	}
	payload, err := json.Marshal(map[string]string{
		"sender":      s.senderID,
		"destination": phone,
		"message":     msg.Body,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("sms gateway request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("sms gateway returned %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	var out struct {
		MessageID string `json:"message_id"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("sms gateway response: %w", err)
	}
	return out.MessageID, nil
}
