package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// notification is the webhook/stdout payload.
type notification struct {
	UserExternalID string `json:"user_external_id"`
	Message        string `json:"message"`
	SentAt         int64  `json:"sent_at"`
}

// WebhookNotifier POSTs one JSON payload per notification to a fixed URL.
// Single attempt: a failed delivery is reported to the caller, which
// leaves the watch unstamped so the next run retries.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier creates a WebhookNotifier.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *WebhookNotifier) Notify(ctx context.Context, userExternalID, message string) error {
	body, err := json.Marshal(notification{
		UserExternalID: userExternalID,
		Message:        message,
		SentAt:         time.Now().UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("webhook: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook: status %d", resp.StatusCode)
	}
	return nil
}

// StdoutNotifier writes one JSON line per notification. Used when no
// webhook is configured; handy for piping into other tools.
type StdoutNotifier struct {
	enc *json.Encoder
}

// NewStdoutNotifier creates a StdoutNotifier writing to w.
func NewStdoutNotifier(w io.Writer) *StdoutNotifier {
	return &StdoutNotifier{enc: json.NewEncoder(w)}
}

func (n *StdoutNotifier) Notify(_ context.Context, userExternalID, message string) error {
	return n.enc.Encode(notification{
		UserExternalID: userExternalID,
		Message:        message,
		SentAt:         time.Now().UnixMilli(),
	})
}
