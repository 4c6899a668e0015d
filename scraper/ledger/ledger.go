// Package ledger is the persistent "already notified" record set. A job is
// notified at most once per (id, company) pair within a tenant.
package ledger

import (
	"context"
	"time"

	"github.com/jobwatch/job-alerts-service/common/models"
)

// Store is the slice of the tenant data store the ledger needs.
// *repository.Queries satisfies it.
type Store interface {
	SentJobExists(ctx context.Context, tenantID, jobID, company string) (bool, error)
	InsertSentJob(ctx context.Context, entry models.SentJobRecord) error
}

// Deduplicator answers "has this job already been recorded" for one tenant
// and appends new sightings. It never deletes entries and never touches the
// lifecycle fields collaborators maintain on existing rows.
type Deduplicator struct {
	store    Store
	tenantID string
}

// New creates a Deduplicator scoped to a tenant.
func New(store Store, tenantID string) *Deduplicator {
	return &Deduplicator{store: store, tenantID: tenantID}
}

// Exists reports whether (jobID, company) is already in the ledger.
func (d *Deduplicator) Exists(ctx context.Context, jobID, company string) (bool, error) {
	return d.store.SentJobExists(ctx, d.tenantID, jobID, company)
}

// Record appends a ledger entry for a freshly discovered job. The underlying
// insert is idempotent, so recording the same sighting twice leaves a single
// usable row.
func (d *Deduplicator) Record(ctx context.Context, job models.JobRecord, now time.Time) error {
	return d.store.InsertSentJob(ctx, models.SentJobRecord{
		TenantID:  d.tenantID,
		JobID:     job.ID,
		Company:   job.Company,
		Title:     job.Title,
		Location:  job.Location,
		Timestamp: now,
	})
}
