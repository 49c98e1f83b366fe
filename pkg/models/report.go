package models

import (
	"github.com/google/uuid"
)

// RiskLevel is a three-tier risk verdict.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// Rank orders levels from safest (0) to riskiest (2).
func (l RiskLevel) Rank() int {
	switch l {
	case RiskMedium:
		return 1
	case RiskHigh:
		return 2
	default:
		return 0
	}
}

// IsValid returns true if l is one of the three tiers.
func (l RiskLevel) IsValid() bool {
	return l == RiskLow || l == RiskMedium || l == RiskHigh
}

// SubmissionReport is the per-submission view the review UI lists.
type SubmissionReport struct {
	SubmissionID       uuid.UUID        `json:"submission_id"`
	AssignmentID       uuid.UUID        `json:"assignment_id"`
	WriterID           uuid.UUID        `json:"writer_id"`
	Status             SubmissionStatus `json:"status"`
	AnalysisStatus     AnalysisStatus   `json:"analysis_status"`
	OverallRisk        RiskLevel        `json:"overall_risk"`
	StyleMatch         *float64         `json:"style_match"`
	InternalSimilarity *float64         `json:"internal_similarity"`
	AIRiskScore        *float64         `json:"ai_risk_score"`
	CitationScore      *float64         `json:"citation_score"`
	Signals            []Signal         `json:"signals"`
}

// ReportFilter narrows the report listing.
type ReportFilter struct {
	Risk   RiskLevel
	Status SubmissionStatus
	Limit  int
}
