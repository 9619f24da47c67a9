package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/govlens-inc/govlens-engine/pkg/apperrors"
	"github.com/govlens-inc/govlens-engine/pkg/models"
	"github.com/govlens-inc/govlens-engine/pkg/repositories"
	"github.com/govlens-inc/govlens-engine/pkg/services"
)

// RematchRequest identifies one stage record to rerun matching for.
type RematchRequest struct {
	StageType models.StageType `json:"stage_type"`
	StageID   uuid.UUID        `json:"stage_id"`
}

// JobAcceptedResponse is returned on job submission.
type JobAcceptedResponse struct {
	JobID uuid.UUID `json:"job_id"`
}

// MatchingHandler exposes the matching engine over HTTP: async job
// submission and polling, the decision audit trail, and bulk import.
type MatchingHandler struct {
	matchJobs       services.MatchJobService
	bulkImport      services.BulkImportService
	matchingResults repositories.MatchingResultRepository
	logger          *zap.Logger
}

// NewMatchingHandler creates a new MatchingHandler.
func NewMatchingHandler(
	matchJobs services.MatchJobService,
	bulkImport services.BulkImportService,
	matchingResults repositories.MatchingResultRepository,
	logger *zap.Logger,
) *MatchingHandler {
	return &MatchingHandler{
		matchJobs:       matchJobs,
		bulkImport:      bulkImport,
		matchingResults: matchingResults,
		logger:          logger.Named("matching_handler"),
	}
}

// RegisterRoutes registers the matching handler's routes on the given mux.
func (h *MatchingHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/matching/rematch", h.Rematch)
	mux.HandleFunc("POST /api/matching/run", h.Run)
	mux.HandleFunc("GET /api/matching/jobs/{job_id}", h.GetJob)
	mux.HandleFunc("GET /api/matching/results", h.ListResults)
	mux.HandleFunc("GET /api/matching/summary", h.Summary)
	mux.HandleFunc("POST /api/matching/import", h.Import)
}

// Rematch handles POST /api/matching/rematch.
// Submits a single-record rematch and returns 202 with the job id.
func (h *MatchingHandler) Rematch(w http.ResponseWriter, r *http.Request) {
	var req RematchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if !models.IsValidStageType(req.StageType) {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "unknown stage_type")
		return
	}
	if req.StageID == uuid.Nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "stage_id is required")
		return
	}

	jobID, err := h.matchJobs.SubmitRematch(r.Context(), req.StageType, req.StageID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			_ = ErrorResponse(w, http.StatusNotFound, "record_not_found", "no such stage record")
			return
		}
		h.logger.Error("Failed to submit rematch", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "failed to submit rematch")
		return
	}

	_ = WriteJSON(w, http.StatusAccepted, JobAcceptedResponse{JobID: jobID})
}

// Run handles POST /api/matching/run.
// Starts a full reconciliation pass and returns 202 with the job id.
func (h *MatchingHandler) Run(w http.ResponseWriter, r *http.Request) {
	jobID := h.matchJobs.SubmitBatch(r.Context())
	_ = WriteJSON(w, http.StatusAccepted, JobAcceptedResponse{JobID: jobID})
}

// GetJob handles GET /api/matching/jobs/{job_id}.
// An unknown or expired job id is a 404, distinct from a running job.
func (h *MatchingHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(r.PathValue("job_id"))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "invalid job id")
		return
	}

	job, err := h.matchJobs.GetJob(jobID)
	if err != nil {
		if errors.Is(err, apperrors.ErrJobNotFound) {
			_ = ErrorResponse(w, http.StatusNotFound, "job_not_found", "unknown or expired job id")
			return
		}
		h.logger.Error("Failed to look up job", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "failed to look up job")
		return
	}

	_ = WriteJSON(w, http.StatusOK, job)
}

// ListResults handles GET /api/matching/results.
// Optional query params: stage_type, status.
func (h *MatchingHandler) ListResults(w http.ResponseWriter, r *http.Request) {
	filter := repositories.MatchingResultFilter{
		StageType: models.StageType(r.URL.Query().Get("stage_type")),
		Status:    models.MatchStatus(r.URL.Query().Get("status")),
	}
	if filter.StageType != "" && !models.IsValidStageType(filter.StageType) {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "unknown stage_type")
		return
	}
	if filter.Status != "" && !models.IsValidMatchStatus(filter.Status) {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "unknown status")
		return
	}

	results, err := h.matchingResults.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list matching results", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "failed to list matching results")
		return
	}
	if results == nil {
		results = []*models.MatchingResult{}
	}

	_ = WriteJSON(w, http.StatusOK, map[string]any{"results": results})
}

// Summary handles GET /api/matching/summary.
func (h *MatchingHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.matchingResults.Summary(r.Context())
	if err != nil {
		h.logger.Error("Failed to load matching summary", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "failed to load matching summary")
		return
	}
	if summary == nil {
		summary = []*models.MatchingSummaryRow{}
	}

	_ = WriteJSON(w, http.StatusOK, map[string]any{"summary": summary})
}

// ImportRequest carries curated mapping rows for bulk import.
type ImportRequest struct {
	Rows []services.ImportRow `json:"rows"`
}

// Import handles POST /api/matching/import.
// Rows are applied synchronously; per-row failures come back in the report.
func (h *MatchingHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if len(req.Rows) == 0 {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "rows is required")
		return
	}

	report, err := h.bulkImport.Import(r.Context(), req.Rows)
	if err != nil {
		h.logger.Error("Bulk import failed", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "bulk import failed")
		return
	}

	_ = WriteJSON(w, http.StatusOK, report)
}
