package handlers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-integrity/pkg/middleware"
	"github.com/ekaya-inc/ekaya-integrity/pkg/models"
	"github.com/ekaya-inc/ekaya-integrity/pkg/services"
)

// ReportHandler serves the review list and the audit viewer feed.
type ReportHandler struct {
	reportService services.ReportService
	auditService  services.AuditService
	logger        *zap.Logger
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reportService services.ReportService, auditService services.AuditService, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{reportService: reportService, auditService: auditService, logger: logger}
}

// RegisterRoutes registers the report handler's routes on the given mux.
func (h *ReportHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/reports", middleware.RequireActor(h.ListReports))
	mux.HandleFunc("GET /api/audit", middleware.RequireActor(h.ListAudit))
}

// ListReports handles GET /api/reports?risk=&status=&limit=
func (h *ReportHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r, h.logger)
	if !ok {
		return
	}
	q := r.URL.Query()
	filter := models.ReportFilter{
		Risk:   models.RiskLevel(strings.ToUpper(q.Get("risk"))),
		Status: models.SubmissionStatus(strings.ToUpper(q.Get("status"))),
		Limit:  limit,
	}

	reports, err := h.reportService.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, reports, h.logger)
}

// ListAudit handles GET /api/audit?entity_type=&entity_id=&limit=
func (h *ReportHandler) ListAudit(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r, h.logger)
	if !ok {
		return
	}
	q := r.URL.Query()
	filter := models.AuditFilter{
		EntityType: q.Get("entity_type"),
		Limit:      limit,
	}
	if raw := q.Get("entity_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_entity_id", "Invalid entity ID format", h.logger)
			return
		}
		filter.EntityID = &id
	}

	entries, err := h.auditService.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	if entries == nil {
		entries = []*models.AuditLogEntry{}
	}
	writeData(w, http.StatusOK, entries, h.logger)
}
