package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/jobwatch/job-alerts-service/common/config"
	"github.com/jobwatch/job-alerts-service/common/storage"
	"github.com/jobwatch/job-alerts-service/common/utils"
	"github.com/jobwatch/job-alerts-service/scraper/pageextract"
)

// AnalyzeHandler probes an arbitrary careers page and reports what the
// extraction layers would see. Used to judge a page before onboarding a
// company.
type AnalyzeHandler struct {
	router *chi.Mux
	cfg    config.Config
}

func NewAnalyzeHandler(cfg config.Config) *AnalyzeHandler {
	router := chi.NewRouter()

	h := &AnalyzeHandler{
		router: router,
		cfg:    cfg,
	}

	router.Post("/", h.handleAnalyzePage)
	return h
}

func (h *AnalyzeHandler) Router() *chi.Mux {
	return h.router
}

type analyzePageParams struct {
	URL string `json:"url" validate:"required,url"`
}

func (h *AnalyzeHandler) handleAnalyzePage(w http.ResponseWriter, r *http.Request) {
	var p analyzePageParams

	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	validate := validator.New()
	if err := validate.Struct(p); err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Each probe gets its own browser; probes are rare and must not hold a
	// browser between requests.
	session, err := pageextract.NewSession(h.cfg.Scrape, storage.NoopStorage{}, "")
	if err != nil {
		log.Error().Err(err).Msg("Failed to launch browser for page analysis")
		utils.WriteError(w, http.StatusInternalServerError, "Failed to launch browser")
		return
	}
	defer session.Close()

	analysis, err := session.Analyze(r.Context(), p.URL)
	if err != nil {
		log.Error().Str("url", p.URL).Err(err).Msg("Page analysis failed")
		utils.WriteError(w, http.StatusBadGateway, "Failed to analyze page")
		return
	}

	utils.WriteJSON(w, http.StatusOK, analysis)
}
