package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SignalType categorizes a finding. The same taxonomy is used for provider markers
// and for the classifier's per-metric signals.
type SignalType string

const (
	SignalPositive SignalType = "positive"
	SignalNeutral  SignalType = "neutral"
	SignalWarning  SignalType = "warning"
	SignalDanger   SignalType = "danger"
)

// IsValid returns true if t is part of the signal taxonomy.
func (t SignalType) IsValid() bool {
	switch t {
	case SignalPositive, SignalNeutral, SignalWarning, SignalDanger:
		return true
	default:
		return false
	}
}

// Signal is a human-readable, categorized finding explaining a score.
type Signal struct {
	Type   SignalType `json:"type"`
	Label  string     `json:"label"`
	Detail string     `json:"detail,omitempty"`
	// Metric names the metric that produced the signal, empty for provider markers.
	Metric string `json:"metric,omitempty"`
}

// CitationCheckType is the outcome of checking one citation.
type CitationCheckType string

const (
	CitationVerified   CitationCheckType = "verified"
	CitationUnverified CitationCheckType = "unverified"
)

// IsValid returns true if t is a known citation outcome.
func (t CitationCheckType) IsValid() bool {
	return t == CitationVerified || t == CitationUnverified
}

// CitationCheck is the result of checking a single citation.
type CitationCheck struct {
	Citation string            `json:"citation"`
	Type     CitationCheckType `json:"type"`
	Note     string            `json:"note,omitempty"`
}

// AIRiskAssessment is the provider's view of machine-generated content.
type AIRiskAssessment struct {
	Score            float64  `json:"score"`
	Markers          []Signal `json:"markers"`
	FragmentAnalysis string   `json:"fragment_analysis"`
}

// CitationAssessment summarizes citation verification.
type CitationAssessment struct {
	Score         float64         `json:"score"`
	VerifiedCount int             `json:"verified_count"`
	TotalCount    int             `json:"total_count"`
	CheckResults  []CitationCheck `json:"check_results"`
}

// ReasoningAssessment scores the depth of argument in the text.
type ReasoningAssessment struct {
	Score    float64 `json:"score"`
	Analysis string  `json:"analysis"`
}

// Assessment is the contract every analysis provider must satisfy.
type Assessment struct {
	AIRisk    AIRiskAssessment    `json:"ai_risk"`
	Citations CitationAssessment  `json:"citations"`
	Reasoning ReasoningAssessment `json:"reasoning"`
}

// Validate checks scores are within 0-100 and every categorical type is part of the taxonomy.
func (a *Assessment) Validate() error {
	if err := checkScore("ai_risk.score", a.AIRisk.Score); err != nil {
		return err
	}
	if err := checkScore("citations.score", a.Citations.Score); err != nil {
		return err
	}
	if err := checkScore("reasoning.score", a.Reasoning.Score); err != nil {
		return err
	}
	for i, m := range a.AIRisk.Markers {
		if !m.Type.IsValid() {
			return fmt.Errorf("ai_risk.markers[%d]: unknown type %q", i, m.Type)
		}
	}
	for i, c := range a.Citations.CheckResults {
		if !c.Type.IsValid() {
			return fmt.Errorf("citations.check_results[%d]: unknown type %q", i, c.Type)
		}
	}
	if a.Citations.VerifiedCount < 0 || a.Citations.TotalCount < 0 {
		return fmt.Errorf("citations: counts must not be negative")
	}
	if a.Citations.VerifiedCount > a.Citations.TotalCount {
		return fmt.Errorf("citations: verified_count %d exceeds total_count %d",
			a.Citations.VerifiedCount, a.Citations.TotalCount)
	}
	return nil
}

func checkScore(field string, v float64) error {
	if v < 0 || v > 100 || v != v {
		return fmt.Errorf("%s: %v outside 0-100", field, v)
	}
	return nil
}

// AnalysisResult is the immutable record of one analysis run.
// A re-run inserts a new record; existing records are never edited.
type AnalysisResult struct {
	ID               uuid.UUID       `json:"id"`
	SubmissionID     uuid.UUID       `json:"submission_id"`
	Provider         string          `json:"provider"`
	Signals          []Signal        `json:"signals"`
	Reasoning        string          `json:"reasoning"`
	ReasoningScore   float64         `json:"reasoning_score"`
	FragmentAnalysis string          `json:"fragment_analysis"`
	CitationChecks   []CitationCheck `json:"citation_checks"`
	CreatedAt        time.Time       `json:"created_at"`
}
