package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/ekaya-integrity/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-integrity/pkg/database"
	"github.com/ekaya-inc/ekaya-integrity/pkg/models"
)

// AssignmentRepository provides data access for assignments.
type AssignmentRepository interface {
	Create(ctx context.Context, assignment *models.Assignment) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Assignment, error)

	// GetForUpdate reads and row-locks the assignment. It must run inside a transaction.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Assignment, error)

	// Update persists status and the current submission pointer.
	Update(ctx context.Context, assignment *models.Assignment) error
}

type assignmentRepository struct {
	db *database.DB
}

// NewAssignmentRepository creates a new AssignmentRepository.
func NewAssignmentRepository(db *database.DB) AssignmentRepository {
	return &assignmentRepository{db: db}
}

var _ AssignmentRepository = (*assignmentRepository)(nil)

const assignmentColumns = `id, writer_id, title, status, current_submission_id, created_at, updated_at`

func (r *assignmentRepository) Create(ctx context.Context, a *models.Assignment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Status == "" {
		a.Status = models.AssignmentPending
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	query := `
		INSERT INTO assignments (id, writer_id, title, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	if _, err := r.db.Querier(ctx).Exec(ctx, query, a.ID, a.WriterID, a.Title, a.Status, a.CreatedAt, a.UpdatedAt); err != nil {
		return fmt.Errorf("failed to create assignment: %w", err)
	}
	return nil
}

func (r *assignmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Assignment, error) {
	row := r.db.Querier(ctx).QueryRow(ctx, `SELECT `+assignmentColumns+` FROM assignments WHERE id = $1`, id)
	return scanAssignment(row)
}

func (r *assignmentRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Assignment, error) {
	if _, ok := database.GetTx(ctx); !ok {
		return nil, fmt.Errorf("GetForUpdate requires a transaction")
	}
	row := r.db.Querier(ctx).QueryRow(ctx, `SELECT `+assignmentColumns+` FROM assignments WHERE id = $1 FOR UPDATE`, id)
	return scanAssignment(row)
}

func (r *assignmentRepository) Update(ctx context.Context, a *models.Assignment) error {
	a.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE assignments
		SET status = $2, current_submission_id = $3, updated_at = $4
		WHERE id = $1`

	tag, err := r.db.Querier(ctx).Exec(ctx, query, a.ID, a.Status, a.CurrentSubmissionID, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update assignment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("assignment %s: %w", a.ID, apperrors.ErrNotFound)
	}
	return nil
}

func scanAssignment(row pgx.Row) (*models.Assignment, error) {
	var a models.Assignment
	err := row.Scan(&a.ID, &a.WriterID, &a.Title, &a.Status, &a.CurrentSubmissionID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("assignment: %w", apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to scan assignment: %w", err)
	}
	return &a, nil
}
