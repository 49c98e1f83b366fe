package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/ekaya-integrity/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-integrity/pkg/database"
	"github.com/ekaya-inc/ekaya-integrity/pkg/models"
	"github.com/ekaya-inc/ekaya-integrity/pkg/stylometry"
)

// WriterRepository provides data access for writer profiles.
type WriterRepository interface {
	Create(ctx context.Context, writer *models.WriterProfile) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.WriterProfile, error)
	GetByUserID(ctx context.Context, userID string) (*models.WriterProfile, error)

	// UpdateBaseline replaces the stored baseline. A profile has at most one.
	UpdateBaseline(ctx context.Context, id uuid.UUID, baseline *stylometry.Features, status models.WriterStatus) error

	UpdateStatus(ctx context.Context, id uuid.UUID, status models.WriterStatus) error
}

type writerRepository struct {
	db *database.DB
}

// NewWriterRepository creates a new WriterRepository.
func NewWriterRepository(db *database.DB) WriterRepository {
	return &writerRepository{db: db}
}

var _ WriterRepository = (*writerRepository)(nil)

const writerColumns = `id, user_id, display_name, status, baseline_metrics, baseline_updated_at, created_at, updated_at`

func (r *writerRepository) Create(ctx context.Context, writer *models.WriterProfile) error {
	if writer.ID == uuid.Nil {
		writer.ID = uuid.New()
	}
	if writer.Status == "" {
		writer.Status = models.WriterOnboarding
	}
	now := time.Now().UTC()
	writer.CreatedAt = now
	writer.UpdatedAt = now

	query := `
		INSERT INTO writer_profiles (id, user_id, display_name, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.Querier(ctx).Exec(ctx, query,
		writer.ID, writer.UserID, writer.DisplayName, writer.Status, writer.CreatedAt, writer.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: writer profile already exists for user", apperrors.ErrStateConflict)
		}
		return fmt.Errorf("failed to create writer profile: %w", err)
	}
	return nil
}

func (r *writerRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.WriterProfile, error) {
	row := r.db.Querier(ctx).QueryRow(ctx, `SELECT `+writerColumns+` FROM writer_profiles WHERE id = $1`, id)
	return scanWriter(row)
}

func (r *writerRepository) GetByUserID(ctx context.Context, userID string) (*models.WriterProfile, error) {
	row := r.db.Querier(ctx).QueryRow(ctx, `SELECT `+writerColumns+` FROM writer_profiles WHERE user_id = $1`, userID)
	return scanWriter(row)
}

func (r *writerRepository) UpdateBaseline(ctx context.Context, id uuid.UUID, baseline *stylometry.Features, status models.WriterStatus) error {
	data, err := json.Marshal(baseline)
	if err != nil {
		return fmt.Errorf("failed to marshal baseline: %w", err)
	}

	query := `
		UPDATE writer_profiles
		SET baseline_metrics = $2, baseline_updated_at = $3, status = $4, updated_at = now()
		WHERE id = $1`

	tag, err := r.db.Querier(ctx).Exec(ctx, query, id, data, baseline.Timestamp, status)
	if err != nil {
		return fmt.Errorf("failed to update baseline: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("writer profile %s: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

func (r *writerRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.WriterStatus) error {
	tag, err := r.db.Querier(ctx).Exec(ctx,
		`UPDATE writer_profiles SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("failed to update writer status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("writer profile %s: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

func scanWriter(row pgx.Row) (*models.WriterProfile, error) {
	var w models.WriterProfile
	var baseline []byte

	err := row.Scan(&w.ID, &w.UserID, &w.DisplayName, &w.Status, &baseline, &w.BaselineUpdatedAt, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("writer profile: %w", apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to scan writer profile: %w", err)
	}

	if len(baseline) > 0 {
		var f stylometry.Features
		if err := json.Unmarshal(baseline, &f); err != nil {
			return nil, fmt.Errorf("failed to unmarshal baseline: %w", err)
		}
		w.BaselineMetrics = &f
	}
	return &w, nil
}
