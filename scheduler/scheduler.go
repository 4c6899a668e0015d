// Package scheduler fires periodic scrape runs for every tenant.
package scheduler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/jobwatch/job-alerts-service/common/messaging"
	"github.com/jobwatch/job-alerts-service/common/models"
)

// TenantLister provides the tenants to schedule. *repository.Queries
// satisfies it.
type TenantLister interface {
	ListTenants(ctx context.Context) ([]models.Tenant, error)
}

// Scheduler publishes one scrape-run message per tenant on every cron tick.
// The actual runs happen on the NATS consumer, so a slow run never delays the
// next tick.
type Scheduler struct {
	cron    *cron.Cron
	broker  *messaging.NatsBroker
	tenants TenantLister
}

// New creates a Scheduler for the given cron expression (standard five-field
// syntax).
func New(schedule string, broker *messaging.NatsBroker, tenants TenantLister) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(),
		broker:  broker,
		tenants: tenants,
	}

	if _, err := s.cron.AddFunc(schedule, s.tick); err != nil {
		return nil, err
	}
	return s, nil
}

// Start begins firing ticks in a background goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Info().Msg("Scrape scheduler started")
}

// Stop stops the cron loop and waits for a running tick to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info().Msg("Scrape scheduler stopped")
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tenants, err := s.tenants.ListTenants(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Scheduler failed to list tenants")
		return
	}

	for _, tenant := range tenants {
		req := messaging.ScrapeRunMessage{
			RunID:      uuid.NewString(),
			TenantSlug: tenant.Slug,
		}
		msg, err := json.Marshal(req)
		if err != nil {
			log.Error().Str("tenant", tenant.Slug).Err(err).Msg("Failed to marshal scrape run message")
			continue
		}
		if err := s.broker.PublishSync(ctx, messaging.SubjectScrapeRun, msg); err != nil {
			log.Error().Str("tenant", tenant.Slug).Err(err).Msg("Failed to queue scheduled scrape run")
			continue
		}
		log.Info().Str("tenant", tenant.Slug).Str("run_id", req.RunID).Msg("Scheduled scrape run queued")
	}
}
