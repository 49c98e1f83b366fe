package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-integrity/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-integrity/pkg/models"
	"github.com/ekaya-inc/ekaya-integrity/pkg/repositories"
)

// AuditService records and reads the append-only audit log.
// The actor is taken from the context.
type AuditService interface {
	// Record writes one entry. Call it inside the transaction that made the change
	// so the entry commits or rolls back with it.
	Record(ctx context.Context, entityType string, entityID uuid.UUID, action string, details map[string]any) error

	// List returns entries for the audit viewer (admin only).
	List(ctx context.Context, filter models.AuditFilter) ([]*models.AuditLogEntry, error)

	// LatestDecision projects the newest submission decision from the log.
	LatestDecision(ctx context.Context, submissionID uuid.UUID) (*models.DecisionRecord, error)
}

type auditService struct {
	repo   repositories.AuditRepository
	logger *zap.Logger
}

// NewAuditService creates a new AuditService.
func NewAuditService(repo repositories.AuditRepository, logger *zap.Logger) AuditService {
	return &auditService{
		repo:   repo,
		logger: logger.Named("audit-service"),
	}
}

var _ AuditService = (*auditService)(nil)

func (s *auditService) Record(ctx context.Context, entityType string, entityID uuid.UUID, action string, details map[string]any) error {
	actor := models.ActorOrSystem(ctx)

	entry := &models.AuditLogEntry{
		Actor:      actor.ID,
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Details:    details,
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Error("Failed to create audit log entry",
			zap.String("entity_type", entityType),
			zap.String("entity_id", entityID.String()),
			zap.String("action", action),
			zap.Error(err))
		return fmt.Errorf("create audit log entry: %w", err)
	}
	return nil
}

func (s *auditService) List(ctx context.Context, filter models.AuditFilter) ([]*models.AuditLogEntry, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if filter.Limit < 0 || filter.Limit > 1000 {
		return nil, apperrors.NewValidationError("limit", "must be between 0 and 1000")
	}
	return s.repo.List(ctx, filter)
}

func (s *auditService) LatestDecision(ctx context.Context, submissionID uuid.UUID) (*models.DecisionRecord, error) {
	entry, err := s.repo.GetLatest(ctx, models.AuditEntitySubmission, submissionID, models.AuditActionStatusChange)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("no decision recorded for submission %s: %w", submissionID, apperrors.ErrNotFound)
		}
		return nil, err
	}

	record, ok := models.DecisionFromEntry(entry)
	if !ok {
		return nil, fmt.Errorf("malformed decision entry %s", entry.ID)
	}
	return record, nil
}
