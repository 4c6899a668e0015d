package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jobwatch/job-alerts-service/common/config"
	"github.com/jobwatch/job-alerts-service/common/db"
	"github.com/jobwatch/job-alerts-service/common/messaging"
	"github.com/jobwatch/job-alerts-service/common/utils"
	"github.com/jobwatch/job-alerts-service/repository"
)

// TenantHandler serves tenant reads and the per-tenant scrape trigger.
type TenantHandler struct {
	db     *db.DB
	broker *messaging.NatsBroker
	router *chi.Mux
	cfg    config.Config
}

func NewTenantHandler(db *db.DB, broker *messaging.NatsBroker, cfg config.Config) *TenantHandler {
	router := chi.NewRouter()

	h := &TenantHandler{
		db:     db,
		broker: broker,
		router: router,
		cfg:    cfg,
	}

	router.Get("/", h.handleListTenants)
	router.Get("/{slug}", h.handleGetTenant)
	router.Get("/{slug}/companies", h.handleListCompanies)
	router.Get("/{slug}/sent-jobs", h.handleListSentJobs)
	router.Post("/{slug}/scrape", h.handleTriggerScrape)
	return h
}

func (h *TenantHandler) Router() *chi.Mux {
	return h.router
}

func (h *TenantHandler) handleListTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.db.Queries.ListTenants(r.Context())
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Failed to list tenants")
		return
	}
	utils.WriteJSON(w, http.StatusOK, tenants)
}

func (h *TenantHandler) handleGetTenant(w http.ResponseWriter, r *http.Request) {
	tenant, err := h.db.Queries.GetTenantBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.WriteError(w, http.StatusNotFound, "Tenant not found")
			return
		}
		utils.WriteError(w, http.StatusInternalServerError, "Failed to get tenant")
		return
	}
	utils.WriteJSON(w, http.StatusOK, tenant)
}

func (h *TenantHandler) handleListCompanies(w http.ResponseWriter, r *http.Request) {
	tenant, err := h.db.Queries.GetTenantBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.WriteError(w, http.StatusNotFound, "Tenant not found")
			return
		}
		utils.WriteError(w, http.StatusInternalServerError, "Failed to get tenant")
		return
	}

	companies, err := h.db.Queries.ListCompaniesByTenant(r.Context(), tenant.ID)
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Failed to list companies")
		return
	}
	utils.WriteJSON(w, http.StatusOK, companies)
}

func (h *TenantHandler) handleListSentJobs(w http.ResponseWriter, r *http.Request) {
	tenant, err := h.db.Queries.GetTenantBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.WriteError(w, http.StatusNotFound, "Tenant not found")
			return
		}
		utils.WriteError(w, http.StatusInternalServerError, "Failed to get tenant")
		return
	}

	page := queryInt(r, "page", 1)
	perPage := queryInt(r, "per_page", 50)
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 200 {
		perPage = 50
	}

	jobs, err := h.db.Queries.ListSentJobsByTenant(r.Context(), tenant.ID, perPage, (page-1)*perPage)
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Failed to list sent jobs")
		return
	}
	total, err := h.db.Queries.CountSentJobsByTenant(r.Context(), tenant.ID)
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Failed to count sent jobs")
		return
	}

	utils.WritePagination(w, http.StatusOK, jobs, page, perPage, total)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
