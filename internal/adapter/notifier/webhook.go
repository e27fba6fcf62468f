package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/semmidev/custos/internal/config"
)

// WebhookNotifier posts a JSON payload to a configured URL. Discord and
// Slack incoming webhooks both accept this shape.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

func NewWebhook(cfg *config.ChannelConfig) *WebhookNotifier {
	return &WebhookNotifier{
		url: cfg.URL,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (w *WebhookNotifier) Send(ctx context.Context, message string) error {
	payload, err := json.Marshal(map[string]string{
		"content": message,
		"text":    message,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
