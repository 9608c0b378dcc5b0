package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"sentinel/pkg/models"
)

// Webhook posts danger-verdict summaries to a remote HTTP endpoint.
type Webhook struct {
	url     string
	headers map[string]string
	client  *http.Client
}

// Config configures the webhook sink.
type Config struct {
	URL     string
	Timeout time.Duration
	Headers map[string]string
}

// NewWebhook creates a webhook sink.
func NewWebhook(cfg Config) (*Webhook, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("webhook URL is empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Webhook{
		url:     cfg.URL,
		headers: cfg.Headers,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// Notify posts one summary. Callers invoke it only for danger verdicts;
// the sink itself does not filter.
func (w *Webhook) Notify(ctx context.Context, s models.InvestigationSummary) error {
	body, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook request failed with status %s", resp.Status)
	}

	return nil
}
