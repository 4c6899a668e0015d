package models

import "time"

// JobRecord is a candidate job extracted from a careers page or API. It lives
// only inside a single scrape run; persistence goes through SentJobRecord.
type JobRecord struct {
	Title         string `json:"title"`
	ID            string `json:"id"`
	Location      string `json:"location,omitempty"`
	Description   string `json:"description,omitempty"`
	URL           string `json:"url,omitempty"`
	Company       string `json:"company"`
	CareerPageURL string `json:"career_page_url"`
}

// SentJobRecord is one ledger entry: a job that has already been notified.
// (JobID, Company) is the dedup key within a tenant. Lifecycle fields are
// mutated by collaborators outside the scraping core and must survive
// re-insertion of the same sighting untouched.
type SentJobRecord struct {
	TenantID  string    `json:"tenant_id"`
	JobID     string    `json:"job_id"`
	Company   string    `json:"company"`
	Title     string    `json:"title"`
	Location  string    `json:"location,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	Status    string     `json:"status,omitempty"`
	AppliedOn *time.Time `json:"applied_on,omitempty"`
	FollowUp  bool       `json:"follow_up"`
}
