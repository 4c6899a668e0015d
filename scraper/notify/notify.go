// Package notify delivers newly discovered jobs to a tenant's webhook as
// Discord-shaped embed messages.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/jobwatch/job-alerts-service/common"
	"github.com/jobwatch/job-alerts-service/common/models"
)

const embedColor = 0x5865F2

// Dispatcher batches jobs into webhook messages and paces the deliveries so
// the receiving end's rate limits are respected.
type Dispatcher struct {
	client    *http.Client
	batchSize int
	delay     time.Duration
	failures  FailureNotifier

	// sleep is swappable in tests.
	sleep func(time.Duration)
}

// NewDispatcher creates a Dispatcher. A nil failure notifier disables
// failure reporting.
func NewDispatcher(timeout time.Duration, batchSize int, delay time.Duration, failures FailureNotifier) *Dispatcher {
	if batchSize <= 0 {
		batchSize = 10
	}
	if failures == nil {
		failures = NopFailureNotifier{}
	}
	return &Dispatcher{
		client:    &http.Client{Timeout: timeout},
		batchSize: batchSize,
		delay:     delay,
		failures:  failures,
		sleep:     time.Sleep,
	}
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color"`
	Fields      []embedField `json:"fields"`
	Timestamp   string       `json:"timestamp"`
}

type webhookPayload struct {
	Embeds []embed `json:"embeds"`
}

// Send delivers jobs to webhookURL in paced batches. A failed batch is
// reported through the failure notifier and delivery continues with the next
// batch; an unconfigured webhook is a precondition failure and nothing is
// sent.
func (d *Dispatcher) Send(ctx context.Context, webhookURL string, jobs []models.JobRecord) error {
	if webhookURL == "" {
		return fmt.Errorf("%w: webhook url is not configured", common.ErrConfiguration)
	}
	if len(jobs) == 0 {
		return nil
	}

	batches := lo.Chunk(jobs, d.batchSize)
	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := d.sendBatch(ctx, webhookURL, batch); err != nil {
			log.Error().Int("batch", i+1).Int("jobs", len(batch)).Err(err).Msg("Failed to deliver notification batch")
			d.failures.NotifyFailure(ctx, fmt.Sprintf("delivering notification batch %d/%d", i+1, len(batches)), err)
		}

		if i < len(batches)-1 {
			d.sleep(d.delay)
		}
	}
	return nil
}

func (d *Dispatcher) sendBatch(ctx context.Context, webhookURL string, jobs []models.JobRecord) error {
	payload := webhookPayload{
		Embeds: lo.Map(jobs, func(job models.JobRecord, _ int) embed {
			return buildEmbed(job)
		}),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: building request: %v", common.ErrConfiguration, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: webhook returned %s", common.ErrTransport, resp.Status)
	}
	return nil
}

func buildEmbed(job models.JobRecord) embed {
	fields := []embedField{
		{Name: "Job ID", Value: job.ID, Inline: true},
		{Name: "Company", Value: job.Company, Inline: true},
	}
	if job.Location != "" {
		fields = append(fields, embedField{Name: "Location", Value: job.Location, Inline: true})
	}
	link := job.URL
	if link == "" {
		link = job.CareerPageURL
	}
	if link != "" {
		fields = append(fields, embedField{Name: "Career Page URL", Value: link})
	}

	description := truncate(job.Description, 500)

	return embed{
		Title:       "🚀 " + job.Title,
		Description: description,
		Color:       embedColor,
		Fields:      fields,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
}

// truncate shortens s to at most max bytes without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}
