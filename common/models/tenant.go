package models

import "time"

// Tenant is an independent user account with its own company configuration
// set, relevance constraints and notification endpoints.
type Tenant struct {
	ID                string      `json:"id"`
	Name              string      `json:"name"`
	Slug              string      `json:"slug"`
	WebhookURL        string      `json:"webhook_url"`
	FailureWebhookURL string      `json:"failure_webhook_url,omitempty"`
	Constraints       Constraints `json:"constraints"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}
