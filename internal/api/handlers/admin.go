// Package handlers holds HTTP handlers that sit outside a single domain
// package, currently the operator admin surface.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fieldline/voice-agent-platform/internal/company"
	"github.com/fieldline/voice-agent-platform/internal/transcript"
	"github.com/fieldline/voice-agent-platform/pkg/logging"
)

// AdminHandler serves the operator endpoints: company config inspection,
// cache invalidation, and transcript review.
type AdminHandler struct {
	companies   *company.Store
	repo        *company.Repository
	transcripts *transcript.Store
	logger      *logging.Logger
}

// NewAdminHandler creates the admin handler. repo and transcripts may be nil
// when the backing stores are not configured; the routes degrade to 404.
func NewAdminHandler(companies *company.Store, repo *company.Repository, transcripts *transcript.Store, logger *logging.Logger) *AdminHandler {
	if companies == nil {
		panic("handlers: company store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminHandler{companies: companies, repo: repo, transcripts: transcripts, logger: logger}
}

// Routes mounts the admin endpoints on a chi router.
func (h *AdminHandler) Routes(r chi.Router) {
	r.Get("/companies", h.ListCompanies)
	r.Get("/companies/{companyID}/config", h.GetConfig)
	r.Post("/companies/{companyID}/invalidate", h.InvalidateConfig)
	r.Get("/companies/{companyID}/transcripts", h.ListTranscripts)
	r.Get("/transcripts/{callID}", h.GetTranscript)
}

// ListCompanies handles GET /admin/companies.
func (h *AdminHandler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		http.Error(w, "Company repository not configured", http.StatusNotFound)
		return
	}
	ids, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list companies", "error", err)
		http.Error(w, "Failed to list companies", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"companies": ids})
}

// GetConfig handles GET /admin/companies/{companyID}/config.
func (h *AdminHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "companyID")
	cfg, err := h.companies.Get(r.Context(), companyID)
	if err != nil {
		h.logger.Error("failed to load company config", "error", err, "company_id", companyID)
		http.Error(w, "Failed to load config", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, cfg)
}

// InvalidateConfig handles POST /admin/companies/{companyID}/invalidate. The
// next call for the company re-reads config from Postgres.
func (h *AdminHandler) InvalidateConfig(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "companyID")
	if err := h.companies.Invalidate(r.Context(), companyID); err != nil {
		h.logger.Error("failed to invalidate config cache", "error", err, "company_id", companyID)
		http.Error(w, "Failed to invalidate config", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListTranscripts handles GET /admin/companies/{companyID}/transcripts.
func (h *AdminHandler) ListTranscripts(w http.ResponseWriter, r *http.Request) {
	if h.transcripts == nil {
		http.Error(w, "Transcript store not configured", http.StatusNotFound)
		return
	}
	companyID := chi.URLParam(r, "companyID")
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	records, err := h.transcripts.ListRecent(r.Context(), companyID, limit)
	if err != nil {
		h.logger.Error("failed to list transcripts", "error", err, "company_id", companyID)
		http.Error(w, "Failed to list transcripts", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"transcripts": records})
}

// GetTranscript handles GET /admin/transcripts/{callID}.
func (h *AdminHandler) GetTranscript(w http.ResponseWriter, r *http.Request) {
	if h.transcripts == nil {
		http.Error(w, "Transcript store not configured", http.StatusNotFound)
		return
	}
	callID := chi.URLParam(r, "callID")
	rec, err := h.transcripts.Get(r.Context(), callID)
	if err != nil {
		if errors.Is(err, transcript.ErrNotFound) {
			http.Error(w, "Transcript not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to fetch transcript", "error", err, "call_id", callID)
		http.Error(w, "Failed to fetch transcript", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, rec)
}

func (h *AdminHandler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
