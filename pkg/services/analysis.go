package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ekaya-inc/ekaya-integrity/pkg/database"
	"github.com/ekaya-inc/ekaya-integrity/pkg/intelligence"
	"github.com/ekaya-inc/ekaya-integrity/pkg/logging"
	"github.com/ekaya-inc/ekaya-integrity/pkg/metrics"
	"github.com/ekaya-inc/ekaya-integrity/pkg/models"
	"github.com/ekaya-inc/ekaya-integrity/pkg/repositories"
	"github.com/ekaya-inc/ekaya-integrity/pkg/risk"
	"github.com/ekaya-inc/ekaya-integrity/pkg/stylometry"
)

// AnalysisService runs the external analysis and the similarity scan for a submission.
// It can be re-run; each run adds a new immutable AnalysisResult.
type AnalysisService interface {
	Analyze(ctx context.Context, submissionID uuid.UUID) (*models.UploadResult, error)
}

type analysisService struct {
	submissions repositories.SubmissionRepository
	results     repositories.AnalysisResultRepository
	writers     repositories.WriterRepository
	adapter     intelligence.Adapter
	settings    SettingsService
	audit       AuditService
	tx          database.Transactor
	corpusSize  int
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

// NewAnalysisService creates a new AnalysisService.
// corpusSize caps how many prior submissions the similarity scan reads.
func NewAnalysisService(
	submissions repositories.SubmissionRepository,
	results repositories.AnalysisResultRepository,
	writers repositories.WriterRepository,
	adapter intelligence.Adapter,
	settings SettingsService,
	audit AuditService,
	tx database.Transactor,
	corpusSize int,
	m *metrics.Metrics,
	logger *zap.Logger,
) AnalysisService {
	return &analysisService{
		submissions: submissions,
		results:     results,
		writers:     writers,
		adapter:     adapter,
		settings:    settings,
		audit:       audit,
		tx:          tx,
		corpusSize:  corpusSize,
		metrics:     m,
		logger:      logger.Named("analysis-service"),
	}
}

var _ AnalysisService = (*analysisService)(nil)

func (s *analysisService) Analyze(ctx context.Context, submissionID uuid.UUID) (*models.UploadResult, error) {
	sub, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if err := requireAssignmentAccess(ctx, s.writers, sub.WriterID); err != nil {
		return nil, err
	}

	snap, err := s.settings.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	// No transaction is held while the provider runs.
	var (
		analysis   *intelligence.Result
		similarity float64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := s.adapter.Analyze(gctx, intelligence.Request{
			SubmissionID: sub.ID,
			Content:      sub.Content,
		})
		if err != nil {
			return err
		}
		analysis = res
		return nil
	})
	g.Go(func() error {
		corpus, err := s.submissions.ListCorpus(gctx, sub.WriterID, s.corpusSize)
		if err != nil {
			return fmt.Errorf("load similarity corpus: %w", err)
		}
		similarity = stylometry.MaxSimilarity(sub.Content, corpus)
		return nil
	})
	if err := g.Wait(); err != nil {
		s.markFailed(ctx, sub.ID, err)
		return nil, fmt.Errorf("analyze submission %s: %w", sub.ID, err)
	}

	assessment := analysis.Assessment
	result := &models.AnalysisResult{
		SubmissionID:     sub.ID,
		Provider:         string(analysis.Provider),
		Signals:          assessment.AIRisk.Markers,
		Reasoning:        assessment.Reasoning.Analysis,
		ReasoningScore:   assessment.Reasoning.Score,
		FragmentAnalysis: assessment.AIRisk.FragmentAnalysis,
		CitationChecks:   assessment.Citations.CheckResults,
	}
	scores := models.AnalysisScores{
		AIRiskScore:     risk.Float(assessment.AIRisk.Score),
		SimilarityScore: risk.Float(similarity),
	}
	if snap.EnableCitationCheck {
		scores.CitationScore = risk.Float(assessment.Citations.Score)
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.results.Create(ctx, result); err != nil {
			return err
		}
		if err := s.submissions.RecordAnalysis(ctx, sub.ID, scores); err != nil {
			return err
		}
		details := map[string]any{
			"analysis_id": result.ID.String(),
			"provider":    result.Provider,
			"ai_risk":     assessment.AIRisk.Score,
			"similarity":  similarity,
		}
		if scores.CitationScore != nil {
			details["citation_score"] = *scores.CitationScore
		}
		return s.audit.Record(ctx, models.AuditEntitySubmission, sub.ID, models.AuditActionAnalysis, details)
	})
	if err != nil {
		s.markFailed(ctx, sub.ID, err)
		return nil, fmt.Errorf("record analysis: %w", err)
	}

	sub.AIRiskScore = scores.AIRiskScore
	sub.SimilarityScore = scores.SimilarityScore
	sub.CitationScore = scores.CitationScore
	sub.AnalysisStatus = models.AnalysisCompleted

	report := BuildReport(sub, snap)
	s.metrics.IncAnalysis(strings.ToLower(string(models.AnalysisCompleted)))
	s.metrics.IncRiskVerdict(string(report.OverallRisk))

	s.logger.Info("Submission analyzed",
		zap.String("submission_id", sub.ID.String()),
		zap.String("provider", result.Provider),
		zap.Float64("similarity", similarity),
		zap.String("overall_risk", string(report.OverallRisk)),
		zap.Duration("provider_elapsed", analysis.Elapsed))

	return &models.UploadResult{Submission: sub, Analysis: result, Report: report}, nil
}

// markFailed flags the submission so the analysis can be re-run. Stored scores are left alone.
func (s *analysisService) markFailed(ctx context.Context, id uuid.UUID, cause error) {
	s.metrics.IncAnalysis(strings.ToLower(string(models.AnalysisFailed)))

	// The caller's context may already be cancelled; the flag must still be written.
	if err := s.submissions.SetAnalysisStatus(context.WithoutCancel(ctx), id, models.AnalysisFailed); err != nil {
		s.logger.Error("Failed to mark analysis as failed",
			zap.String("submission_id", id.String()),
			zap.Error(err))
	}
	s.logger.Warn("Submission analysis failed",
		zap.String("submission_id", id.String()),
		zap.String("error", logging.SanitizeError(cause)))
}
