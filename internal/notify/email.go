package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/avivron/weddinghub/internal/model"
)

// EmailSender posts messages to a transactional email provider's
// HTTP API.  The provider is expected to accept a JSON body of
// {to, to_name, subject, text} and respond with {"id": "..."}.
type EmailSender struct {
	apiURL string
	apiKey string
	from   string
	client *http.Client
}

// NewEmailSender constructs an EmailSender.  A nil-safe zero timeout
// defaults to 15 seconds per request.
func NewEmailSender(apiURL, apiKey, from string) *EmailSender {
	return &EmailSender{
		apiURL: apiURL,
		apiKey: apiKey,
		from:   from,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// Channel implements Sender.
func (s *EmailSender) Channel() model.Channel { return model.ChannelEmail }

// Send implements Sender.
func (s *EmailSender) Send(ctx context.Context, msg Message) (string, error) {
	if msg.To == "" {
		return "", fmt.Errorf("recipient has no email address")
	}
	payload, err := json.Marshal(map[string]string{
		"from":    s.from,
		"to":      msg.To,
		"to_name": msg.Name,
		"subject": msg.Subject,
		"text":    msg.Body,
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
		return "", fmt.Errorf("email provider request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("email provider returned %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &out); err != nil || out.ID == "" {
		// Some providers return 202 with an empty body; fall back to
		// a locally generated id so the audit row is still traceable.
		return "local-" + uuid.NewString(), nil
	}
	return out.ID, nil
}
