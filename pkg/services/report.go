package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-integrity/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-integrity/pkg/models"
	"github.com/ekaya-inc/ekaya-integrity/pkg/repositories"
	"github.com/ekaya-inc/ekaya-integrity/pkg/risk"
)

const (
	defaultReportLimit = 50
	maxReportLimit     = 500
	reportPageSize     = 100
)

// ReportService lists classified submissions for the review UI.
type ReportService interface {
	// List classifies submissions with the current thresholds, newest first (admin only).
	List(ctx context.Context, filter models.ReportFilter) ([]*models.SubmissionReport, error)
}

type reportService struct {
	submissions repositories.SubmissionRepository
	settings    SettingsService
	logger      *zap.Logger
}

// NewReportService creates a new ReportService.
func NewReportService(submissions repositories.SubmissionRepository, settings SettingsService, logger *zap.Logger) ReportService {
	return &reportService{
		submissions: submissions,
		settings:    settings,
		logger:      logger.Named("report-service"),
	}
}

var _ ReportService = (*reportService)(nil)

func (s *reportService) List(ctx context.Context, filter models.ReportFilter) ([]*models.SubmissionReport, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if filter.Risk != "" && !filter.Risk.IsValid() {
		return nil, apperrors.NewValidationError("risk", "must be one of: LOW, MEDIUM, HIGH")
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, apperrors.NewValidationError("status", "is not a known submission status")
	}
	limit := filter.Limit
	switch {
	case limit < 0 || limit > maxReportLimit:
		return nil, apperrors.NewValidationError("limit", fmt.Sprintf("must be between 0 and %d", maxReportLimit))
	case limit == 0:
		limit = defaultReportLimit
	}

	snap, err := s.settings.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	// Risk is computed, not stored, so a risk filter has to page through submissions.
	reports := make([]*models.SubmissionReport, 0, limit)
	for offset := 0; len(reports) < limit; offset += reportPageSize {
		page, err := s.submissions.List(ctx, repositories.SubmissionFilter{
			Status: filter.Status,
			Limit:  reportPageSize,
			Offset: offset,
		})
		if err != nil {
			return nil, err
		}
		for _, sub := range page {
			report := BuildReport(sub, snap)
			if filter.Risk != "" && report.OverallRisk != filter.Risk {
				continue
			}
			reports = append(reports, report)
			if len(reports) == limit {
				break
			}
		}
		if len(page) < reportPageSize {
			break
		}
	}

	s.logger.Debug("Reports listed",
		zap.String("risk", string(filter.Risk)),
		zap.String("status", string(filter.Status)),
		zap.Int("count", len(reports)))
	return reports, nil
}

// BuildReport classifies sub under snap.
// Metrics switched off in snap, or never measured, are left out of the verdict.
func BuildReport(sub *models.Submission, snap *models.Settings) *models.SubmissionReport {
	in := risk.Input{
		AIRisk:             sub.AIRiskScore,
		InternalSimilarity: sub.SimilarityScore,
	}
	if sub.StyleCompared && snap.EnableStyleAnalysis {
		in.StyleMatch = risk.Float(sub.IntegrityScore)
	}
	if snap.EnableCitationCheck {
		in.CitationScore = sub.CitationScore
	}

	verdict := risk.Classify(in, snap.Thresholds)
	return &models.SubmissionReport{
		SubmissionID:       sub.ID,
		AssignmentID:       sub.AssignmentID,
		WriterID:           sub.WriterID,
		Status:             sub.Status,
		AnalysisStatus:     sub.AnalysisStatus,
		OverallRisk:        verdict.Overall,
		StyleMatch:         in.StyleMatch,
		InternalSimilarity: in.InternalSimilarity,
		AIRiskScore:        in.AIRisk,
		CitationScore:      in.CitationScore,
		Signals:            verdict.Signals,
	}
}
