package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jobwatch/job-alerts-service/common/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Queries provides access to the tenant data store.
type Queries struct {
	pool *pgxpool.Pool
}

// New creates a Queries instance backed by the given pool.
func New(pool *pgxpool.Pool) *Queries {
	return &Queries{pool: pool}
}

const listTenants = `
SELECT id, name, slug, webhook_url, failure_webhook_url,
       include_keywords, location_keywords, exclude_keywords,
       created_at, updated_at
FROM tenants
ORDER BY created_at
`

// ListTenants returns every tenant account.
func (q *Queries) ListTenants(ctx context.Context) ([]models.Tenant, error) {
	rows, err := q.pool.Query(ctx, listTenants)
	if err != nil {
		return nil, fmt.Errorf("listing tenants: %w", err)
	}
	defer rows.Close()

	var tenants []models.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

const getTenantBySlug = `
SELECT id, name, slug, webhook_url, failure_webhook_url,
       include_keywords, location_keywords, exclude_keywords,
       created_at, updated_at
FROM tenants
WHERE slug = $1
`

// GetTenantBySlug looks a tenant up by its URL slug.
func (q *Queries) GetTenantBySlug(ctx context.Context, slug string) (models.Tenant, error) {
	row := q.pool.QueryRow(ctx, getTenantBySlug, slug)
	t, err := scanTenant(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Tenant{}, ErrNotFound
	}
	return t, err
}

func scanTenant(row pgx.Row) (models.Tenant, error) {
	var (
		t              models.Tenant
		failureWebhook pgtype.Text
	)
	err := row.Scan(
		&t.ID, &t.Name, &t.Slug, &t.WebhookURL, &failureWebhook,
		&t.Constraints.Include, &t.Constraints.Location, &t.Constraints.Exclude,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return models.Tenant{}, err
	}
	t.FailureWebhookURL = failureWebhook.String
	return t, nil
}

const listCompaniesByTenant = `
SELECT id, tenant_id, name, careers_url, api_config
FROM companies
WHERE tenant_id = $1
ORDER BY position, created_at
`

// ListCompaniesByTenant returns a tenant's company configs in list order.
func (q *Queries) ListCompaniesByTenant(ctx context.Context, tenantID string) ([]models.CompanyConfig, error) {
	rows, err := q.pool.Query(ctx, listCompaniesByTenant, tenantID)
	if err != nil {
		return nil, fmt.Errorf("listing companies for tenant %s: %w", tenantID, err)
	}
	defer rows.Close()

	var companies []models.CompanyConfig
	for rows.Next() {
		var (
			c      models.CompanyConfig
			rawAPI []byte
		)
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Name, &c.CareersURL, &rawAPI); err != nil {
			return nil, err
		}
		if len(rawAPI) > 0 {
			var api models.ApiConfig
			if err := json.Unmarshal(rawAPI, &api); err != nil {
				return nil, fmt.Errorf("decoding api config for company %s: %w", c.Name, err)
			}
			c.API = &api
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

const sentJobExists = `
SELECT EXISTS (
	SELECT 1 FROM sent_jobs
	WHERE tenant_id = $1 AND job_id = $2 AND company = $3
)
`

// SentJobExists reports whether the ledger already holds (job_id, company)
// for the tenant.
func (q *Queries) SentJobExists(ctx context.Context, tenantID, jobID, company string) (bool, error) {
	var exists bool
	err := q.pool.QueryRow(ctx, sentJobExists, tenantID, jobID, company).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking sent job: %w", err)
	}
	return exists, nil
}

const insertSentJob = `
INSERT INTO sent_jobs (tenant_id, job_id, company, title, location, sent_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (tenant_id, job_id, company) DO NOTHING
`

// InsertSentJob appends a ledger entry. The insert is idempotent: a second
// sighting of the same (job_id, company) leaves the existing row, and its
// lifecycle fields, untouched.
func (q *Queries) InsertSentJob(ctx context.Context, entry models.SentJobRecord) error {
	location := pgtype.Text{String: entry.Location, Valid: entry.Location != ""}
	_, err := q.pool.Exec(ctx, insertSentJob,
		entry.TenantID, entry.JobID, entry.Company, entry.Title, location, entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("inserting sent job: %w", err)
	}
	return nil
}

const listSentJobsByTenant = `
SELECT tenant_id, job_id, company, title, location, sent_at, status, applied_on, follow_up
FROM sent_jobs
WHERE tenant_id = $1
ORDER BY sent_at DESC
LIMIT $2 OFFSET $3
`

// ListSentJobsByTenant pages through a tenant's ledger, newest first.
func (q *Queries) ListSentJobsByTenant(ctx context.Context, tenantID string, limit, offset int) ([]models.SentJobRecord, error) {
	rows, err := q.pool.Query(ctx, listSentJobsByTenant, tenantID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing sent jobs: %w", err)
	}
	defer rows.Close()

	var entries []models.SentJobRecord
	for rows.Next() {
		var (
			e         models.SentJobRecord
			location  pgtype.Text
			status    pgtype.Text
			appliedOn pgtype.Timestamptz
		)
		if err := rows.Scan(&e.TenantID, &e.JobID, &e.Company, &e.Title, &location, &e.Timestamp, &status, &appliedOn, &e.FollowUp); err != nil {
			return nil, err
		}
		e.Location = location.String
		e.Status = status.String
		if appliedOn.Valid {
			t := appliedOn.Time
			e.AppliedOn = &t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

const countSentJobsByTenant = `
SELECT count(*) FROM sent_jobs WHERE tenant_id = $1
`

// CountSentJobsByTenant returns the ledger size for a tenant.
func (q *Queries) CountSentJobsByTenant(ctx context.Context, tenantID string) (int64, error) {
	var total int64
	err := q.pool.QueryRow(ctx, countSentJobsByTenant, tenantID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("counting sent jobs: %w", err)
	}
	return total, nil
}

const updateSentJobLifecycle = `
UPDATE sent_jobs
SET status = $4, applied_on = $5, follow_up = $6
WHERE tenant_id = $1 AND job_id = $2 AND company = $3
`

// UpdateSentJobLifecycle mutates the lifecycle fields of a ledger entry.
// This is the collaborator surface; the scraping core never calls it.
func (q *Queries) UpdateSentJobLifecycle(ctx context.Context, entry models.SentJobRecord) error {
	status := pgtype.Text{String: entry.Status, Valid: entry.Status != ""}
	var appliedOn pgtype.Timestamptz
	if entry.AppliedOn != nil {
		appliedOn = pgtype.Timestamptz{Time: *entry.AppliedOn, Valid: true}
	}
	tag, err := q.pool.Exec(ctx, updateSentJobLifecycle,
		entry.TenantID, entry.JobID, entry.Company, status, appliedOn, entry.FollowUp,
	)
	if err != nil {
		return fmt.Errorf("updating sent job lifecycle: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
