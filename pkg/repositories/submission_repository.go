package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/ekaya-integrity/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-integrity/pkg/database"
	"github.com/ekaya-inc/ekaya-integrity/pkg/models"
	"github.com/ekaya-inc/ekaya-integrity/pkg/stylometry"
)

// SubmissionFilter narrows a submission listing. Zero values match everything.
type SubmissionFilter struct {
	Status models.SubmissionStatus
	Limit  int
	Offset int
}

// SubmissionRepository provides data access for submissions.
type SubmissionRepository interface {
	Create(ctx context.Context, submission *models.Submission) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Submission, error)

	// GetForUpdate reads and row-locks the submission. It must run inside a transaction.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Submission, error)

	UpdateStatus(ctx context.Context, id uuid.UUID, status models.SubmissionStatus) error

	// RecordAnalysis stores the analysis scores and marks analysis COMPLETED.
	RecordAnalysis(ctx context.Context, id uuid.UUID, scores models.AnalysisScores) error

	// SetAnalysisStatus changes only the analysis status.
	SetAnalysisStatus(ctx context.Context, id uuid.UUID, status models.AnalysisStatus) error

	// List returns submissions newest first.
	List(ctx context.Context, filter SubmissionFilter) ([]*models.Submission, error)

	// ListCorpus returns the content of the most recent submissions by other writers.
	ListCorpus(ctx context.Context, excludeWriterID uuid.UUID, limit int) ([]string, error)
}

type submissionRepository struct {
	db *database.DB
}

// NewSubmissionRepository creates a new SubmissionRepository.
func NewSubmissionRepository(db *database.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

var _ SubmissionRepository = (*submissionRepository)(nil)

const submissionColumns = `id, assignment_id, writer_id, content, features, integrity_score, style_compared,
	ai_risk_score, similarity_score, citation_score, analysis_status, status, created_at, updated_at`

func (r *submissionRepository) Create(ctx context.Context, s *models.Submission) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.Status == "" {
		s.Status = models.SubmissionPendingReview
	}
	if s.AnalysisStatus == "" {
		s.AnalysisStatus = models.AnalysisPending
	}
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now

	features, err := json.Marshal(s.Features)
	if err != nil {
		return fmt.Errorf("failed to marshal features: %w", err)
	}

	query := `
		INSERT INTO submissions (
			id, assignment_id, writer_id, content, features, integrity_score, style_compared,
			ai_risk_score, similarity_score, citation_score, analysis_status, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err = r.db.Querier(ctx).Exec(ctx, query,
		s.ID, s.AssignmentID, s.WriterID, s.Content, features, s.IntegrityScore, s.StyleCompared,
		s.AIRiskScore, s.SimilarityScore, s.CitationScore, s.AnalysisStatus, s.Status, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create submission: %w", err)
	}
	return nil
}

func (r *submissionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Submission, error) {
	row := r.db.Querier(ctx).QueryRow(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id = $1`, id)
	return scanSubmission(row)
}

func (r *submissionRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Submission, error) {
	if _, ok := database.GetTx(ctx); !ok {
		return nil, fmt.Errorf("GetForUpdate requires a transaction")
	}
	row := r.db.Querier(ctx).QueryRow(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id = $1 FOR UPDATE`, id)
	return scanSubmission(row)
}

func (r *submissionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.SubmissionStatus) error {
	return r.exec(ctx, `UPDATE submissions SET status = $2, updated_at = now() WHERE id = $1`, id, status)
}

func (r *submissionRepository) RecordAnalysis(ctx context.Context, id uuid.UUID, scores models.AnalysisScores) error {
	query := `
		UPDATE submissions
		SET ai_risk_score = $2, similarity_score = $3, citation_score = $4,
		    analysis_status = $5, updated_at = now()
		WHERE id = $1`
	return r.exec(ctx, query, id, scores.AIRiskScore, scores.SimilarityScore, scores.CitationScore, models.AnalysisCompleted)
}

func (r *submissionRepository) SetAnalysisStatus(ctx context.Context, id uuid.UUID, status models.AnalysisStatus) error {
	return r.exec(ctx, `UPDATE submissions SET analysis_status = $2, updated_at = now() WHERE id = $1`, id, status)
}

func (r *submissionRepository) exec(ctx context.Context, query string, id uuid.UUID, args ...any) error {
	tag, err := r.db.Querier(ctx).Exec(ctx, query, append([]any{id}, args...)...)
	if err != nil {
		return fmt.Errorf("failed to update submission: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("submission %s: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]*models.Submission, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + submissionColumns + ` FROM submissions`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id`

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.Querier(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	var submissions []*models.Submission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		submissions = append(submissions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating submissions: %w", err)
	}
	return submissions, nil
}

func (r *submissionRepository) ListCorpus(ctx context.Context, excludeWriterID uuid.UUID, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}

	query := `
		SELECT content
		FROM submissions
		WHERE writer_id <> $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.Querier(ctx).Query(ctx, query, excludeWriterID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query similarity corpus: %w", err)
	}

	corpus, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to collect similarity corpus: %w", err)
	}
	return corpus, nil
}

func scanSubmission(row pgx.Row) (*models.Submission, error) {
	var s models.Submission
	var features []byte

	err := row.Scan(&s.ID, &s.AssignmentID, &s.WriterID, &s.Content, &features, &s.IntegrityScore, &s.StyleCompared,
		&s.AIRiskScore, &s.SimilarityScore, &s.CitationScore, &s.AnalysisStatus, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("submission: %w", apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to scan submission: %w", err)
	}

	if len(features) > 0 && string(features) != "null" {
		var f stylometry.Features
		if err := json.Unmarshal(features, &f); err != nil {
			return nil, fmt.Errorf("failed to unmarshal features: %w", err)
		}
		s.Features = &f
	}
	return &s, nil
}
