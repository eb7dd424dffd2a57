package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// WebhookNotifier posts notifications as JSON to the notification service.
type WebhookNotifier struct {
	URL          string
	ServiceToken string
	Client       *http.Client
}

func NewWebhookNotifier(url, serviceToken string, client *http.Client) *WebhookNotifier {
	if client == nil {
		client = http.DefaultClient
	}
	return &WebhookNotifier{URL: url, ServiceToken: serviceToken, Client: client}
}

func (w *WebhookNotifier) Notify(ctx context.Context, n Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request to %s: %w", w.URL, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if w.ServiceToken != "" {
		req.Header.Set("X-Service-Token", w.ServiceToken)
	}

	resp, err := w.Client.Do(req)
	if err != nil {
		return fmt.Errorf("post notification: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("notification service returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	return nil
}
