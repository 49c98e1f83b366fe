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
)

// AnalysisResultRepository stores immutable analysis results. A re-run inserts a new row.
type AnalysisResultRepository interface {
	Create(ctx context.Context, result *models.AnalysisResult) error

	// GetLatest returns the newest result for a submission.
	GetLatest(ctx context.Context, submissionID uuid.UUID) (*models.AnalysisResult, error)
}

type analysisResultRepository struct {
	db *database.DB
}

// NewAnalysisResultRepository creates a new AnalysisResultRepository.
func NewAnalysisResultRepository(db *database.DB) AnalysisResultRepository {
	return &analysisResultRepository{db: db}
}

var _ AnalysisResultRepository = (*analysisResultRepository)(nil)

func (r *analysisResultRepository) Create(ctx context.Context, result *models.AnalysisResult) error {
	if result.ID == uuid.Nil {
		result.ID = uuid.New()
	}
	result.CreatedAt = time.Now().UTC()

	signals, err := json.Marshal(nonNil(result.Signals))
	if err != nil {
		return fmt.Errorf("failed to marshal signals: %w", err)
	}
	checks, err := json.Marshal(nonNil(result.CitationChecks))
	if err != nil {
		return fmt.Errorf("failed to marshal citation checks: %w", err)
	}

	query := `
		INSERT INTO analysis_results (
			id, submission_id, provider, signals, reasoning, reasoning_score,
			fragment_analysis, citation_checks, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = r.db.Querier(ctx).Exec(ctx, query,
		result.ID, result.SubmissionID, result.Provider, signals, result.Reasoning, result.ReasoningScore,
		result.FragmentAnalysis, checks, result.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create analysis result: %w", err)
	}
	return nil
}

func (r *analysisResultRepository) GetLatest(ctx context.Context, submissionID uuid.UUID) (*models.AnalysisResult, error) {
	query := `
		SELECT id, submission_id, provider, signals, reasoning, reasoning_score,
		       fragment_analysis, citation_checks, created_at
		FROM analysis_results
		WHERE submission_id = $1
		ORDER BY created_at DESC
		LIMIT 1`

	var (
		res            models.AnalysisResult
		signals, check []byte
	)
	err := r.db.Querier(ctx).QueryRow(ctx, query, submissionID).Scan(
		&res.ID, &res.SubmissionID, &res.Provider, &signals, &res.Reasoning, &res.ReasoningScore,
		&res.FragmentAnalysis, &check, &res.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("analysis result: %w", apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get analysis result: %w", err)
	}

	if err := json.Unmarshal(signals, &res.Signals); err != nil {
		return nil, fmt.Errorf("failed to unmarshal signals: %w", err)
	}
	if err := json.Unmarshal(check, &res.CitationChecks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal citation checks: %w", err)
	}
	return &res, nil
}

// nonNil keeps empty lists as [] rather than null in JSONB columns.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
