package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-integrity/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-integrity/pkg/database"
	"github.com/ekaya-inc/ekaya-integrity/pkg/models"
	"github.com/ekaya-inc/ekaya-integrity/pkg/repositories"
	"github.com/ekaya-inc/ekaya-integrity/pkg/stylometry"
)

// WriterService manages writer profiles and their stylometric baselines.
type WriterService interface {
	// Register creates a profile in ONBOARDING (admin only).
	Register(ctx context.Context, req models.RegisterWriterRequest) (*models.WriterProfile, error)

	// EstablishBaseline replaces the writer's baseline and activates an onboarding writer.
	// Admins may set any writer's baseline; writers only their own, and only while onboarding.
	EstablishBaseline(ctx context.Context, writerID uuid.UUID, req models.BaselineRequest) (*models.WriterProfile, error)

	// SetStatus changes a writer's status (admin only).
	SetStatus(ctx context.Context, writerID uuid.UUID, req models.WriterStatusRequest) (*models.WriterProfile, error)

	// Get returns a profile to an admin or to the writer it belongs to.
	Get(ctx context.Context, writerID uuid.UUID) (*models.WriterProfile, error)
}

type writerService struct {
	repo   repositories.WriterRepository
	audit  AuditService
	tx     database.Transactor
	now    func() time.Time
	logger *zap.Logger
}

// NewWriterService creates a new WriterService.
func NewWriterService(repo repositories.WriterRepository, audit AuditService, tx database.Transactor, logger *zap.Logger) WriterService {
	return &writerService{
		repo:   repo,
		audit:  audit,
		tx:     tx,
		now:    time.Now,
		logger: logger.Named("writer-service"),
	}
}

var _ WriterService = (*writerService)(nil)

func (s *writerService) Register(ctx context.Context, req models.RegisterWriterRequest) (*models.WriterProfile, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	writer := &models.WriterProfile{
		UserID:      req.UserID,
		DisplayName: req.DisplayName,
		Status:      models.WriterOnboarding,
	}

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, writer); err != nil {
			return err
		}
		return s.audit.Record(ctx, models.AuditEntityWriter, writer.ID, models.AuditActionCreate, map[string]any{
			"user_id": writer.UserID,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("register writer: %w", err)
	}

	s.logger.Info("Writer registered",
		zap.String("writer_id", writer.ID.String()),
		zap.String("user_id", writer.UserID))
	return writer, nil
}

func (s *writerService) EstablishBaseline(ctx context.Context, writerID uuid.UUID, req models.BaselineRequest) (*models.WriterProfile, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	writer, err := s.authorized(ctx, writerID)
	if err != nil {
		return nil, err
	}
	if writer.Status == models.WriterSuspended {
		return nil, apperrors.ErrWriterSuspended
	}
	// Writers set their own baseline once, while onboarding. Replacing it is an admin action.
	if !models.ActorOrSystem(ctx).IsAdmin() && writer.Status != models.WriterOnboarding {
		return nil, fmt.Errorf("%w: baseline already established; an admin must replace it", apperrors.ErrForbidden)
	}

	baseline := stylometry.Baseline(req.Samples, s.now().UTC())
	if baseline == nil {
		return nil, apperrors.NewValidationError("samples",
			fmt.Sprintf("must contain at least %d characters of text", stylometry.MinTextLength))
	}

	status := writer.Status
	if status == models.WriterOnboarding {
		status = models.WriterActive
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.UpdateBaseline(ctx, writer.ID, baseline, status); err != nil {
			return err
		}
		return s.audit.Record(ctx, models.AuditEntityWriter, writer.ID, models.AuditActionBaseline, map[string]any{
			"samples":    len(req.Samples),
			"word_count": baseline.WordCount,
			"status":     string(status),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("establish baseline: %w", err)
	}

	writer.BaselineMetrics = baseline
	writer.BaselineUpdatedAt = &baseline.Timestamp
	writer.Status = status

	s.logger.Info("Baseline established",
		zap.String("writer_id", writer.ID.String()),
		zap.Int("samples", len(req.Samples)))
	return writer, nil
}

func (s *writerService) SetStatus(ctx context.Context, writerID uuid.UUID, req models.WriterStatusRequest) (*models.WriterProfile, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	writer, err := s.repo.GetByID(ctx, writerID)
	if err != nil {
		return nil, err
	}
	if writer.Status == req.Status {
		return writer, nil
	}

	from := writer.Status
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.UpdateStatus(ctx, writer.ID, req.Status); err != nil {
			return err
		}
		return s.audit.Record(ctx, models.AuditEntityWriter, writer.ID, models.AuditActionStatusChange, map[string]any{
			"from": string(from),
			"to":   string(req.Status),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("set writer status: %w", err)
	}

	writer.Status = req.Status
	s.logger.Info("Writer status changed",
		zap.String("writer_id", writer.ID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(req.Status)))
	return writer, nil
}

func (s *writerService) Get(ctx context.Context, writerID uuid.UUID) (*models.WriterProfile, error) {
	return s.authorized(ctx, writerID)
}

// authorized loads the writer and checks the actor is an admin or the writer themself.
func (s *writerService) authorized(ctx context.Context, writerID uuid.UUID) (*models.WriterProfile, error) {
	writer, err := s.repo.GetByID(ctx, writerID)
	if err != nil {
		return nil, err
	}
	actor := models.ActorOrSystem(ctx)
	if !actor.IsAdmin() && actor.ID != writer.UserID {
		return nil, fmt.Errorf("%w: not your writer profile", apperrors.ErrForbidden)
	}
	return writer, nil
}
