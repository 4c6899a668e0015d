package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jobwatch/job-alerts-service/common/messaging"
	"github.com/jobwatch/job-alerts-service/common/utils"
	"github.com/jobwatch/job-alerts-service/repository"
)

// handleTriggerScrape queues a full scrape run for one tenant. The run itself
// happens on the NATS consumer; the response only confirms the handoff.
func (h *TenantHandler) handleTriggerScrape(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	tenant, err := h.db.Queries.GetTenantBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.WriteError(w, http.StatusNotFound, "Tenant not found")
			return
		}
		utils.WriteError(w, http.StatusInternalServerError, "Failed to get tenant")
		return
	}

	req := messaging.ScrapeRunMessage{
		RunID:      uuid.NewString(),
		TenantSlug: tenant.Slug,
	}
	msg, err := json.Marshal(req)
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Failed to marshal message")
		return
	}

	if err := h.broker.PublishSync(r.Context(), messaging.SubjectScrapeRun, msg); err != nil {
		log.Error().Str("tenant", tenant.Slug).Err(err).Msg("Failed to publish scrape run message")
		utils.WriteError(w, http.StatusInternalServerError, "Failed to queue scrape run")
		return
	}

	utils.WriteJSON(w, http.StatusAccepted, map[string]string{
		"message": "scrape run queued",
		"run_id":  req.RunID,
		"tenant":  tenant.Slug,
	})
}
