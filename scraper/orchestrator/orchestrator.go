// Package orchestrator runs the scrape pipeline for a tenant: extract per
// company, filter, dedup, persist, then notify once at the end of the run.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/jobwatch/job-alerts-service/common"
	"github.com/jobwatch/job-alerts-service/common/config"
	"github.com/jobwatch/job-alerts-service/common/models"
	"github.com/jobwatch/job-alerts-service/common/storage"
	"github.com/jobwatch/job-alerts-service/scraper/apiextract"
	"github.com/jobwatch/job-alerts-service/scraper/ledger"
	"github.com/jobwatch/job-alerts-service/scraper/notify"
	"github.com/jobwatch/job-alerts-service/scraper/pageextract"
	"github.com/jobwatch/job-alerts-service/scraper/relevance"
)

// Store is the slice of the data store a run needs: the tenant's companies
// and the sent-jobs ledger. *repository.Queries satisfies it.
type Store interface {
	ledger.Store
	ListCompaniesByTenant(ctx context.Context, tenantID string) ([]models.CompanyConfig, error)
}

// Locker guards against overlapping runs for one tenant. *redis.RunLock
// satisfies it.
type Locker interface {
	Acquire(ctx context.Context, tenantID string) (release func(), ok bool, err error)
}

// APIExtractor extracts jobs from a company's mapped JSON API.
type APIExtractor interface {
	Extract(ctx context.Context, company models.CompanyConfig, filter *relevance.Filter, dedup *ledger.Deduplicator) ([]models.JobRecord, error)
}

// PageSession extracts jobs from rendered careers pages and owns the browser
// backing those extractions.
type PageSession interface {
	Extract(ctx context.Context, company models.CompanyConfig, filter *relevance.Filter, dedup *ledger.Deduplicator) ([]models.JobRecord, error)
	Close()
}

// Notifier delivers a run's new jobs to the tenant's webhook.
type Notifier interface {
	Send(ctx context.Context, webhookURL string, jobs []models.JobRecord) error
}

// Orchestrator coordinates one scrape run per tenant. It is safe for
// concurrent runs of different tenants; same-tenant runs are serialized by
// the Locker.
type Orchestrator struct {
	cfg   config.ScrapeConfig
	store Store
	lock  Locker

	api                APIExtractor
	newSession         func() (PageSession, error)
	newDispatcher      func(failures notify.FailureNotifier) Notifier
	newFailureNotifier func(webhookURL string) notify.FailureNotifier
}

// New wires an Orchestrator with the production extractors and dispatcher.
// The browser is launched lazily, so tenants with only API companies never
// pay for one.
func New(cfg config.ScrapeConfig, store Store, lock Locker, snapshots storage.StorageService, snapshotBucket string) *Orchestrator {
	return &Orchestrator{
		cfg:   cfg,
		store: store,
		lock:  lock,
		api:   apiextract.New(cfg.RequestTimeout, cfg.UserAgent),
		newSession: func() (PageSession, error) {
			return pageextract.NewSession(cfg, snapshots, snapshotBucket)
		},
		newDispatcher: func(failures notify.FailureNotifier) Notifier {
			return notify.NewDispatcher(cfg.RequestTimeout, cfg.NotifyBatchSize, cfg.NotifyBatchDelay, failures)
		},
		newFailureNotifier: func(webhookURL string) notify.FailureNotifier {
			return notify.NewWebhookFailureNotifier(cfg.RequestTimeout, webhookURL)
		},
	}
}

// Run executes the full pipeline for one tenant. Per-company failures are
// reported and skipped; a failed browser launch aborts the run since every
// page company would fail the same way.
func (o *Orchestrator) Run(ctx context.Context, tenant models.Tenant) error {
	release, ok, err := o.lock.Acquire(ctx, tenant.ID)
	if err != nil {
		return err
	}
	if !ok {
		log.Warn().Str("tenant", tenant.Slug).Msg("Scrape run already in progress, skipping")
		return common.ErrRunLocked
	}
	defer release()

	ctx, cancel := context.WithTimeout(ctx, o.cfg.RunDeadline)
	defer cancel()

	l := log.With().Str("tenant", tenant.Slug).Logger()
	l.Info().Msg("Starting scrape run")

	companies, err := o.store.ListCompaniesByTenant(ctx, tenant.ID)
	if err != nil {
		return fmt.Errorf("listing companies: %w", err)
	}

	constraints := tenant.Constraints
	if constraints.IsZero() {
		constraints = models.DefaultConstraints()
	} else if len(constraints.Include) == 0 {
		// An include-less filter matches nothing; a tenant configuring only
		// exclude or location lists still means "the usual roles, minus these".
		constraints.Include = models.DefaultConstraints().Include
	}
	filter := relevance.NewFilter(constraints)
	dedup := ledger.New(o.store, tenant.ID)
	failures := o.newFailureNotifier(tenant.FailureWebhookURL)

	var session PageSession
	defer func() {
		if session != nil {
			session.Close()
		}
	}()

	var found []models.JobRecord
	for _, company := range companies {
		if err := ctx.Err(); err != nil {
			l.Warn().Err(err).Msg("Run deadline reached, stopping early")
			break
		}

		var jobs []models.JobRecord
		var err error
		if company.IsCustomAPI() {
			jobs, err = o.api.Extract(ctx, company, filter, dedup)
		} else {
			if session == nil {
				session, err = o.newSession()
				if err != nil {
					failures.NotifyFailure(ctx, fmt.Sprintf("launching browser for %s", tenant.Name), err)
					return err
				}
			}
			jobs, err = session.Extract(ctx, company, filter, dedup)
		}
		if err != nil {
			l.Error().Str("company", company.Name).Err(err).Msg("Company scrape failed, continuing with next")
			failures.NotifyFailure(ctx, fmt.Sprintf("scraping %s for %s", company.Name, tenant.Name), err)
			continue
		}

		now := time.Now()
		for _, job := range jobs {
			if err := dedup.Record(ctx, job, now); err != nil {
				l.Error().Str("company", company.Name).Str("job_id", job.ID).Err(err).Msg("Failed to record job in ledger")
				failures.NotifyFailure(ctx, fmt.Sprintf("recording job %s of %s for %s", job.ID, company.Name, tenant.Name), err)
				continue
			}
			found = append(found, job)
		}
		l.Info().Str("company", company.Name).Int("new_jobs", len(jobs)).Msg("Company scraped")
	}

	if len(found) == 0 {
		l.Info().Msg("Scrape run finished with no new jobs")
		return nil
	}

	// Careers pages list newest first; deliver oldest first so the webhook
	// channel reads chronologically.
	lo.Reverse(found)

	dispatcher := o.newDispatcher(failures)
	if err := dispatcher.Send(ctx, tenant.WebhookURL, found); err != nil {
		// Includes the missing-webhook precondition failure: the failure
		// webhook is a separate URL, so the tenant can still hear about it.
		failures.NotifyFailure(ctx, fmt.Sprintf("notifying %s", tenant.Name), err)
		return fmt.Errorf("delivering notifications: %w", err)
	}

	l.Info().Int("new_jobs", len(found)).Msg("Scrape run finished")
	return nil
}
