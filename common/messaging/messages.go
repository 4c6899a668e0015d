package messaging

// ScrapeRunMessage asks the scrape worker to run the full pipeline for one
// tenant. The trigger endpoint publishes it and returns immediately; results
// travel through the failure webhook, not back to the caller.
type ScrapeRunMessage struct {
	RunID      string `json:"run_id"`
	TenantSlug string `json:"tenant_slug"`
}

// Constants for NATS subjects
const (
	StreamScrape     = "SCRAPE"
	SubjectScrapeRun = "scrape.run"
)
