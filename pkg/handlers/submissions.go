package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-integrity/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-integrity/pkg/logging"
	"github.com/ekaya-inc/ekaya-integrity/pkg/middleware"
	"github.com/ekaya-inc/ekaya-integrity/pkg/models"
	"github.com/ekaya-inc/ekaya-integrity/pkg/services"
)

// SubmissionHandler handles the upload pipeline and review decisions.
type SubmissionHandler struct {
	submissionService services.SubmissionService
	analysisService   services.AnalysisService
	auditService      services.AuditService
	logger            *zap.Logger
}

// NewSubmissionHandler creates a new SubmissionHandler.
func NewSubmissionHandler(
	submissionService services.SubmissionService,
	analysisService services.AnalysisService,
	auditService services.AuditService,
	logger *zap.Logger,
) *SubmissionHandler {
	return &SubmissionHandler{
		submissionService: submissionService,
		analysisService:   analysisService,
		auditService:      auditService,
		logger:            logger,
	}
}

// RegisterRoutes registers the submission handler's routes on the given mux.
func (h *SubmissionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/assignments/{aid}/submissions", middleware.RequireActor(h.Upload))
	mux.HandleFunc("GET /api/submissions/{sid}", middleware.RequireActor(h.Get))
	mux.HandleFunc("POST /api/submissions/{sid}/analysis", middleware.RequireActor(h.Analyze))
	mux.HandleFunc("POST /api/submissions/{sid}/decision", middleware.RequireActor(h.Decide))
	mux.HandleFunc("GET /api/submissions/{sid}/decision", middleware.RequireActor(h.GetDecision))
}

type uploadRequest struct {
	Content string `json:"content"`
}

// Upload handles POST /api/assignments/{aid}/submissions
//
// The submission is stored first and then analyzed. If analysis fails the submission
// still exists with analysis_status FAILED, so the response is 201 with analysis_error set.
func (h *SubmissionHandler) Upload(w http.ResponseWriter, r *http.Request) {
	assignmentID, ok := ParseAssignmentID(w, r, h.logger)
	if !ok {
		return
	}
	var req uploadRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	actor, _ := models.GetActor(r.Context())
	sub, err := h.submissionService.Create(r.Context(), models.CreateSubmissionRequest{
		AssignmentID: assignmentID,
		WriterUserID: actor.ID,
		Content:      req.Content,
	})
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	result, err := h.analysisService.Analyze(r.Context(), sub.ID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrDependencyFailed) {
			h.logger.Error("Analysis after upload failed",
				zap.String("submission_id", sub.ID.String()),
				zap.String("error", logging.SanitizeError(err)))
		}
		sub.AnalysisStatus = models.AnalysisFailed
		_, _, message := classifyError(err)
		writeData(w, http.StatusCreated, models.UploadResult{Submission: sub, AnalysisError: message}, h.logger)
		return
	}
	writeData(w, http.StatusCreated, result, h.logger)
}

// Get handles GET /api/submissions/{sid}
func (h *SubmissionHandler) Get(w http.ResponseWriter, r *http.Request) {
	submissionID, ok := ParseSubmissionID(w, r, h.logger)
	if !ok {
		return
	}

	sub, err := h.submissionService.Get(r.Context(), submissionID)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, sub, h.logger)
}

// Analyze handles POST /api/submissions/{sid}/analysis and re-runs analysis.
func (h *SubmissionHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	submissionID, ok := ParseSubmissionID(w, r, h.logger)
	if !ok {
		return
	}

	result, err := h.analysisService.Analyze(r.Context(), submissionID)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, result, h.logger)
}

// Decide handles POST /api/submissions/{sid}/decision
func (h *SubmissionHandler) Decide(w http.ResponseWriter, r *http.Request) {
	submissionID, ok := ParseSubmissionID(w, r, h.logger)
	if !ok {
		return
	}
	var req models.DecisionRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	sub, err := h.submissionService.Decide(r.Context(), submissionID, req)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, sub, h.logger)
}

// GetDecision handles GET /api/submissions/{sid}/decision
func (h *SubmissionHandler) GetDecision(w http.ResponseWriter, r *http.Request) {
	submissionID, ok := ParseSubmissionID(w, r, h.logger)
	if !ok {
		return
	}

	// Reading the submission first applies the same access rule as Get.
	if _, err := h.submissionService.Get(r.Context(), submissionID); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	record, err := h.auditService.LatestDecision(r.Context(), submissionID)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, record, h.logger)
}
