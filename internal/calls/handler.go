package calls

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fieldline/voice-agent-platform/pkg/logging"
)

// Handler wires HTTP requests to the call service.
type Handler struct {
	service Service
	jobs    JobRecorder
	logger  *logging.Logger
}

// NewHandler creates a call handler. jobs may be nil when job tracking is off.
func NewHandler(service Service, jobs JobRecorder, logger *logging.Logger) *Handler {
	if service == nil {
		panic("calls: service cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, jobs: jobs, logger: logger}
}

// Routes mounts the call endpoints on a chi router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/calls/start", h.Start)
	r.Post("/calls/turn", h.Turn)
	r.Post("/calls/{callID}/end", h.End)
	r.Get("/jobs/{jobID}", h.Job)
}

// Start handles POST /v1/calls/start.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode start request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = r.Header.Get("X-Idempotency-Key")
	}

	resp, err := h.service.StartCall(r.Context(), req)
	if err != nil {
		h.logger.Error("failed to start call", "error", err, "company_id", req.CompanyID)
		http.Error(w, "Failed to start call", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusCreated, resp)
}

// Turn handles POST /v1/calls/turn.
func (h *Handler) Turn(w http.ResponseWriter, r *http.Request) {
	var req TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode turn request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = r.Header.Get("X-Idempotency-Key")
	}

	resp, err := h.service.ProcessTurn(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrCallNotFound) {
			http.Error(w, "Call not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to process turn", "error", err, "call_id", req.CallID)
		http.Error(w, "Failed to process turn", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// End handles POST /v1/calls/{callID}/end.
func (h *Handler) End(w http.ResponseWriter, r *http.Request) {
	callID := chi.URLParam(r, "callID")
	if err := h.service.EndCall(r.Context(), callID); err != nil {
		if errors.Is(err, ErrCallNotFound) {
			http.Error(w, "Call not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to end call", "error", err, "call_id", callID)
		http.Error(w, "Failed to end call", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Job handles GET /v1/jobs/{jobID}.
func (h *Handler) Job(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		http.Error(w, "Job tracking disabled", http.StatusNotFound)
		return
	}
	jobID := chi.URLParam(r, "jobID")
	job, err := h.jobs.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, ErrJobNotFound) {
			http.Error(w, "Job not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to fetch job", "error", err, "job_id", jobID)
		http.Error(w, "Failed to fetch job", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, job)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
