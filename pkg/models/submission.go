package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ekaya-inc/ekaya-integrity/pkg/stylometry"
)

// SubmissionStatus is the review state of a submission.
// APPROVED and REJECTED are terminal. NEEDS_REWRITE allows a new submission.
type SubmissionStatus string

const (
	SubmissionPendingReview SubmissionStatus = "PENDING_REVIEW"
	SubmissionApproved      SubmissionStatus = "APPROVED"
	SubmissionRejected      SubmissionStatus = "REJECTED"
	SubmissionNeedsRewrite  SubmissionStatus = "NEEDS_REWRITE"
)

// IsValid returns true if the status is a known submission status.
func (s SubmissionStatus) IsValid() bool {
	switch s {
	case SubmissionPendingReview, SubmissionApproved, SubmissionRejected, SubmissionNeedsRewrite:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further decision may be made.
func (s SubmissionStatus) IsTerminal() bool {
	return s == SubmissionApproved || s == SubmissionRejected
}

// AllowsResubmission reports whether a new submission may follow one in this status.
func (s SubmissionStatus) AllowsResubmission() bool {
	return s == SubmissionNeedsRewrite
}

// RequiresNotes reports whether a decision to this status must be justified.
func (s SubmissionStatus) RequiresNotes() bool {
	return s == SubmissionRejected || s == SubmissionNeedsRewrite
}

// AnalysisStatus tracks the external analysis step for a submission.
type AnalysisStatus string

const (
	AnalysisPending   AnalysisStatus = "PENDING"
	AnalysisCompleted AnalysisStatus = "COMPLETED"
	AnalysisFailed    AnalysisStatus = "FAILED"
)

// Submission is one attempt at fulfilling an assignment.
// Nil scores mean the metric has not been produced (analysis pending, failed, or disabled).
type Submission struct {
	ID             uuid.UUID            `json:"id"`
	AssignmentID   uuid.UUID            `json:"assignment_id"`
	WriterID       uuid.UUID            `json:"writer_id"`
	Content        string               `json:"content"`
	Features       *stylometry.Features `json:"features"`
	IntegrityScore float64              `json:"integrity_score"`
	// StyleCompared is false when IntegrityScore is the neutral value (no baseline or style analysis off).
	StyleCompared   bool             `json:"style_compared"`
	AIRiskScore     *float64         `json:"ai_risk_score,omitempty"`
	SimilarityScore *float64         `json:"similarity_score,omitempty"`
	CitationScore   *float64         `json:"citation_score,omitempty"`
	AnalysisStatus  AnalysisStatus   `json:"analysis_status"`
	Status          SubmissionStatus `json:"status"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// CreateSubmissionRequest is what the upload pipeline hands the coordinator.
type CreateSubmissionRequest struct {
	AssignmentID uuid.UUID `json:"assignment_id" validate:"required"`
	WriterUserID string    `json:"-" validate:"required"`
	Content      string    `json:"content" validate:"required"`
}

// DecisionRequest is an admin review decision.
// Notes are required for REJECTED and NEEDS_REWRITE; that rule is checked by the service.
type DecisionRequest struct {
	Status SubmissionStatus `json:"status" validate:"required,oneof=APPROVED REJECTED NEEDS_REWRITE"`
	Notes  string           `json:"notes" validate:"max=2000"`
}

// AnalysisScores are the metrics recorded on a submission once analysis completes.
type AnalysisScores struct {
	AIRiskScore     *float64
	SimilarityScore *float64
	CitationScore   *float64
}

// UploadResult is returned to the upload pipeline.
type UploadResult struct {
	Submission *Submission       `json:"submission"`
	Analysis   *AnalysisResult   `json:"analysis,omitempty"`
	Report     *SubmissionReport `json:"report,omitempty"`

	// AnalysisError is set when the submission was stored but analysis failed and can be re-run.
	AnalysisError string `json:"analysis_error,omitempty"`
}
