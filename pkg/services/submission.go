package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-integrity/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-integrity/pkg/database"
	"github.com/ekaya-inc/ekaya-integrity/pkg/metrics"
	"github.com/ekaya-inc/ekaya-integrity/pkg/models"
	"github.com/ekaya-inc/ekaya-integrity/pkg/repositories"
	"github.com/ekaya-inc/ekaya-integrity/pkg/stylometry"
)

// SubmissionService coordinates the submission lifecycle.
// Every state change and its audit entry commit together.
type SubmissionService interface {
	// Create stores a new submission for the acting writer and makes it the assignment's current one.
	Create(ctx context.Context, req models.CreateSubmissionRequest) (*models.Submission, error)

	// Decide records an admin review decision and cascades it to the assignment.
	Decide(ctx context.Context, submissionID uuid.UUID, req models.DecisionRequest) (*models.Submission, error)

	// Get returns a submission to an admin or to the writer who made it.
	Get(ctx context.Context, submissionID uuid.UUID) (*models.Submission, error)
}

type submissionService struct {
	submissions repositories.SubmissionRepository
	assignments repositories.AssignmentRepository
	writers     repositories.WriterRepository
	settings    SettingsService
	audit       AuditService
	tx          database.Transactor
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

// NewSubmissionService creates a new SubmissionService. metrics may be nil.
func NewSubmissionService(
	submissions repositories.SubmissionRepository,
	assignments repositories.AssignmentRepository,
	writers repositories.WriterRepository,
	settings SettingsService,
	audit AuditService,
	tx database.Transactor,
	m *metrics.Metrics,
	logger *zap.Logger,
) SubmissionService {
	return &submissionService{
		submissions: submissions,
		assignments: assignments,
		writers:     writers,
		settings:    settings,
		audit:       audit,
		tx:          tx,
		metrics:     m,
		logger:      logger.Named("submission-service"),
	}
}

var _ SubmissionService = (*submissionService)(nil)

func (s *submissionService) Create(ctx context.Context, req models.CreateSubmissionRequest) (*models.Submission, error) {
	sub, err := s.create(ctx, req)
	if err != nil {
		outcome := metrics.OutcomeError
		if code := apperrors.ConflictCode(err); code != "" {
			outcome = code
		} else if errors.Is(err, apperrors.ErrValidation) || errors.Is(err, apperrors.ErrForbidden) {
			outcome = metrics.OutcomeRejected
		}
		s.metrics.IncSubmission(outcome)
		return nil, err
	}
	s.metrics.IncSubmission(metrics.OutcomeSuccess)
	return sub, nil
}

func (s *submissionService) create(ctx context.Context, req models.CreateSubmissionRequest) (*models.Submission, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	features := stylometry.ExtractFeatures(req.Content)
	if features == nil {
		return nil, apperrors.NewValidationError("content",
			fmt.Sprintf("must be at least %d characters", stylometry.MinTextLength))
	}

	writer, err := s.writers.GetByUserID(ctx, req.WriterUserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: no writer profile for %s", apperrors.ErrForbidden, req.WriterUserID)
		}
		return nil, err
	}
	if writer.Status == models.WriterSuspended {
		return nil, apperrors.ErrWriterSuspended
	}

	snap, err := s.settings.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	score := stylometry.NeutralScore
	compared := false
	if snap.EnableStyleAnalysis && writer.HasBaseline() {
		score = stylometry.CompareToBaseline(writer.BaselineMetrics, features)
		compared = true
	}

	sub := &models.Submission{
		AssignmentID:   req.AssignmentID,
		WriterID:       writer.ID,
		Content:        req.Content,
		Features:       features,
		IntegrityScore: score,
		StyleCompared:  compared,
		AnalysisStatus: models.AnalysisPending,
		Status:         models.SubmissionPendingReview,
	}

	var previous *uuid.UUID
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		assignment, err := s.assignments.GetForUpdate(ctx, req.AssignmentID)
		if err != nil {
			return err
		}
		if assignment.WriterID != writer.ID {
			return apperrors.ErrNotAssignmentOwner
		}
		if assignment.Status == models.AssignmentCompleted {
			return apperrors.ErrAssignmentCompleted
		}
		if assignment.CurrentSubmissionID != nil {
			current, err := s.submissions.GetByID(ctx, *assignment.CurrentSubmissionID)
			if err != nil {
				return fmt.Errorf("load current submission: %w", err)
			}
			if !current.Status.AllowsResubmission() {
				return apperrors.ErrSubmissionPending
			}
			previous = &current.ID
		}

		if err := s.submissions.Create(ctx, sub); err != nil {
			return err
		}

		if assignment.Status == models.AssignmentPending {
			assignment.Status = models.AssignmentInProgress
		}
		assignment.CurrentSubmissionID = &sub.ID
		if err := s.assignments.Update(ctx, assignment); err != nil {
			return err
		}

		details := map[string]any{
			"assignment_id":   assignment.ID.String(),
			"integrity_score": score,
			"style_compared":  compared,
		}
		if previous != nil {
			details["resubmission_of"] = previous.String()
		}
		return s.audit.Record(ctx, models.AuditEntitySubmission, sub.ID, models.AuditActionCreate, details)
	})
	if err != nil {
		return nil, fmt.Errorf("create submission: %w", err)
	}

	s.logger.Info("Submission created",
		zap.String("submission_id", sub.ID.String()),
		zap.String("assignment_id", sub.AssignmentID.String()),
		zap.String("writer_id", writer.ID.String()),
		zap.Float64("integrity_score", score),
		zap.Bool("style_compared", compared),
		zap.Bool("resubmission", previous != nil))
	return sub, nil
}

func (s *submissionService) Decide(ctx context.Context, submissionID uuid.UUID, req models.DecisionRequest) (*models.Submission, error) {
	actor, err := requireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateRequest(&req); err != nil {
		return nil, err
	}
	req.Notes = strings.TrimSpace(req.Notes)
	if req.Status.RequiresNotes() && req.Notes == "" {
		return nil, apperrors.NewValidationError("notes", fmt.Sprintf("are required for %s", req.Status))
	}

	// The assignment id is immutable, so it can be read before taking locks.
	// Locks are always taken assignment first, then submission.
	unlocked, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	var decided *models.Submission
	var from models.SubmissionStatus
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		assignment, err := s.assignments.GetForUpdate(ctx, unlocked.AssignmentID)
		if err != nil {
			return err
		}
		sub, err := s.submissions.GetForUpdate(ctx, submissionID)
		if err != nil {
			return err
		}

		if assignment.CurrentSubmissionID == nil || *assignment.CurrentSubmissionID != sub.ID {
			return apperrors.ErrSubmissionSuperseded
		}
		if sub.Status.IsTerminal() {
			return apperrors.ErrSubmissionFinalized
		}

		from = sub.Status
		if err := s.submissions.UpdateStatus(ctx, sub.ID, req.Status); err != nil {
			return err
		}
		sub.Status = req.Status

		next := models.AssignmentInProgress
		if req.Status == models.SubmissionApproved {
			next = models.AssignmentCompleted
		}
		if !assignment.Status.CanAdvanceTo(next) {
			return fmt.Errorf("assignment %s cannot move from %s to %s: %w",
				assignment.ID, assignment.Status, next, apperrors.ErrStateConflict)
		}
		assignment.Status = next
		if err := s.assignments.Update(ctx, assignment); err != nil {
			return err
		}

		if err := s.audit.Record(ctx, models.AuditEntitySubmission, sub.ID, models.AuditActionStatusChange,
			models.StatusChangeDetails(from, req.Status, req.Notes)); err != nil {
			return err
		}
		decided = sub
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("decide submission: %w", err)
	}

	s.metrics.IncDecision(string(req.Status))
	s.logger.Info("Submission decided",
		zap.String("submission_id", submissionID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(req.Status)),
		zap.String("actor", actor.ID))
	return decided, nil
}

func (s *submissionService) Get(ctx context.Context, submissionID uuid.UUID) (*models.Submission, error) {
	sub, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if err := requireAssignmentAccess(ctx, s.writers, sub.WriterID); err != nil {
		return nil, err
	}
	return sub, nil
}
