package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-integrity/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-integrity/pkg/database"
	"github.com/ekaya-inc/ekaya-integrity/pkg/models"
	"github.com/ekaya-inc/ekaya-integrity/pkg/repositories"
)

// AssignmentService creates and reads assignments.
type AssignmentService interface {
	Create(ctx context.Context, req models.CreateAssignmentRequest) (*models.Assignment, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Assignment, error)
}

type assignmentService struct {
	repo    repositories.AssignmentRepository
	writers repositories.WriterRepository
	audit   AuditService
	tx      database.Transactor
	logger  *zap.Logger
}

// NewAssignmentService creates a new AssignmentService.
func NewAssignmentService(
	repo repositories.AssignmentRepository,
	writers repositories.WriterRepository,
	audit AuditService,
	tx database.Transactor,
	logger *zap.Logger,
) AssignmentService {
	return &assignmentService{
		repo:    repo,
		writers: writers,
		audit:   audit,
		tx:      tx,
		logger:  logger.Named("assignment-service"),
	}
}

var _ AssignmentService = (*assignmentService)(nil)

func (s *assignmentService) Create(ctx context.Context, req models.CreateAssignmentRequest) (*models.Assignment, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	writer, err := s.writers.GetByID(ctx, req.WriterID)
	if err != nil {
		return nil, err
	}
	if writer.Status == models.WriterSuspended {
		return nil, apperrors.ErrWriterSuspended
	}

	assignment := &models.Assignment{
		WriterID: writer.ID,
		Title:    req.Title,
		Status:   models.AssignmentPending,
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, assignment); err != nil {
			return err
		}
		return s.audit.Record(ctx, models.AuditEntityAssignment, assignment.ID, models.AuditActionCreate, map[string]any{
			"writer_id": writer.ID.String(),
			"title":     assignment.Title,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("create assignment: %w", err)
	}

	s.logger.Info("Assignment created",
		zap.String("assignment_id", assignment.ID.String()),
		zap.String("writer_id", writer.ID.String()))
	return assignment, nil
}

// Get returns the assignment to an admin or to its owning writer.
func (s *assignmentService) Get(ctx context.Context, id uuid.UUID) (*models.Assignment, error) {
	assignment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireAssignmentAccess(ctx, s.writers, assignment.WriterID); err != nil {
		return nil, err
	}
	return assignment, nil
}
