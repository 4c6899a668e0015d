package orchestrator

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/jobwatch/job-alerts-service/common"
	"github.com/jobwatch/job-alerts-service/common/messaging"
	"github.com/jobwatch/job-alerts-service/common/models"
)

// TenantSource resolves the tenant a queued run message refers to.
// *repository.Queries satisfies it.
type TenantSource interface {
	GetTenantBySlug(ctx context.Context, slug string) (models.Tenant, error)
}

// Register subscribes the orchestrator to the scrape-run subject. Each
// message triggers one full run; malformed messages and unknown tenants are
// terminated, everything else is acknowledged after the run completes.
func (o *Orchestrator) Register(ctx context.Context, broker *messaging.NatsBroker, tenants TenantSource) (jetstream.ConsumeContext, error) {
	return broker.Consume(ctx, messaging.StreamScrape, messaging.SubjectScrapeRun, func(msg jetstream.Msg) {
		var req messaging.ScrapeRunMessage
		if err := json.Unmarshal(msg.Data(), &req); err != nil {
			log.Error().Err(err).Msg("Failed to unmarshal scrape run message")
			if err := msg.Term(); err != nil {
				log.Error().Err(err).Msg("Failed to terminate message")
			}
			return
		}

		l := log.With().Str("run_id", req.RunID).Str("tenant", req.TenantSlug).Logger()

		tenant, err := tenants.GetTenantBySlug(ctx, req.TenantSlug)
		if err != nil {
			l.Error().Err(err).Msg("Unknown tenant in scrape run message")
			if err := msg.Term(); err != nil {
				l.Error().Err(err).Msg("Failed to terminate message")
			}
			return
		}

		if err := o.Run(ctx, tenant); err != nil {
			if errors.Is(err, common.ErrRunLocked) {
				l.Warn().Msg("Dropping scrape run, tenant already running")
			} else {
				l.Error().Err(err).Msg("Scrape run failed")
			}
		}

		if err := msg.Ack(); err != nil {
			l.Error().Err(err).Msg("Failed to acknowledge scrape run message")
		}
	})
}
