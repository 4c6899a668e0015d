package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// FailureNotifier reports operational failures to a human-facing channel.
// Implementations must never fail the run they are reporting on.
type FailureNotifier interface {
	NotifyFailure(ctx context.Context, failureContext string, cause error)
}

// WebhookFailureNotifier posts plain-content failure messages to a webhook.
type WebhookFailureNotifier struct {
	client     *http.Client
	webhookURL string
}

// NewWebhookFailureNotifier creates a notifier for the given webhook. An
// empty URL yields a notifier that only logs.
func NewWebhookFailureNotifier(timeout time.Duration, webhookURL string) *WebhookFailureNotifier {
	return &WebhookFailureNotifier{
		client:     &http.Client{Timeout: timeout},
		webhookURL: webhookURL,
	}
}

// NotifyFailure posts a failure message. Errors are logged and swallowed so a
// broken failure channel cannot take down a scrape run.
func (n *WebhookFailureNotifier) NotifyFailure(ctx context.Context, failureContext string, cause error) {
	if n.webhookURL == "" {
		log.Warn().Str("context", failureContext).Err(cause).Msg("No failure webhook configured, failure only logged")
		return
	}

	message := fmt.Sprintf("⚠️ Scrape failure while %s: %v (at %s)",
		failureContext, cause, time.Now().UTC().Format(time.RFC3339))

	body, err := json.Marshal(map[string]string{"content": message})
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal failure message")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		log.Error().Err(err).Msg("Failed to build failure webhook request")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		log.Error().Err(err).Msg("Failed to deliver failure webhook")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Error().Str("status", resp.Status).Msg("Failure webhook rejected the message")
	}
}

// NopFailureNotifier drops failure reports.
type NopFailureNotifier struct{}

func (NopFailureNotifier) NotifyFailure(context.Context, string, error) {}
