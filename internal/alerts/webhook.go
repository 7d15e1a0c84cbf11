package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// WebhookAlerter posts alerts as JSON to an arbitrary HTTP endpoint
// (Slack incoming webhook, PagerDuty events endpoint, a custom sink).
type WebhookAlerter struct {
	client *http.Client
	url    string
}

// NewWebhookAlerter creates a webhook-based alerter posting to url.
func NewWebhookAlerter(url string) (*WebhookAlerter, error) {
	if url == "" {
		return nil, fmt.Errorf("webhook url is required")
	}
	return &WebhookAlerter{
		client: &http.Client{Timeout: 10 * time.Second},
		url:    url,
	}, nil
}

type webhookPayload struct {
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Severity  Severity               `json:"severity"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Send posts the alert as a JSON body to the configured URL.
func (w *WebhookAlerter) Send(ctx context.Context, alert Alert) error {
	body, err := json.Marshal(webhookPayload{
		Title:     alert.Title,
		Message:   alert.Message,
		Severity:  alert.Severity,
		Timestamp: alert.Timestamp,
		Metadata:  alert.Metadata,
	})
	if err != nil {
		return fmt.Errorf("marshal alert payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		log.Error().Err(err).Str("alert_title", alert.Title).Msg("webhook alert delivery failed")
		return fmt.Errorf("webhook post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook post: unexpected status %d", resp.StatusCode)
	}

	log.Debug().Str("alert_title", alert.Title).Int("status", resp.StatusCode).Msg("webhook alert sent")
	return nil
}
