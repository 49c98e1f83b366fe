// Package risk turns raw integrity metrics into a three-tier verdict with explaining signals.
package risk

import (
	"fmt"

	"github.com/ekaya-inc/ekaya-integrity/pkg/models"
)

// Metric names as they appear on signals.
const (
	MetricStyleMatch         = "style_match"
	MetricAIRisk             = "ai_risk"
	MetricInternalSimilarity = "internal_similarity"
	MetricCitation           = "citation"
)

// Direction says whether a higher score is safer or riskier.
type Direction int

const (
	HigherIsSafer Direction = iota
	HigherIsRiskier
)

// Input holds the four metric scores. A nil metric was not measured and is left out of the verdict.
type Input struct {
	StyleMatch         *float64
	AIRisk             *float64
	InternalSimilarity *float64
	CitationScore      *float64
}

// MetricResult is the classification of a single metric.
type MetricResult struct {
	Metric    string           `json:"metric"`
	Score     *float64         `json:"score"`
	Level     models.RiskLevel `json:"level"`
	Evaluated bool             `json:"evaluated"`
}

// Report is the verdict plus the per-metric breakdown behind it.
type Report struct {
	Overall models.RiskLevel `json:"overall"`
	Metrics []MetricResult   `json:"metrics"`
	Signals []models.Signal  `json:"signals"`
	// Triggers lists the metrics whose level equals the overall verdict.
	Triggers []string `json:"triggers"`
}

type metricSpec struct {
	name      string
	label     string
	direction Direction
	score     *float64
	pair      models.ThresholdPair
}

// Classify applies max-of-risk: the overall verdict is the worst tier among the measured
// metrics. With no measured metrics the verdict is LOW and every signal is neutral.
func Classify(in Input, th models.Thresholds) Report {
	specs := []metricSpec{
		{MetricStyleMatch, "Style match", HigherIsSafer, in.StyleMatch, th.StyleMatch},
		{MetricAIRisk, "AI-generated content risk", HigherIsRiskier, in.AIRisk, th.AIRisk},
		{MetricInternalSimilarity, "Internal similarity", HigherIsRiskier, in.InternalSimilarity, th.InternalSimilarity},
		{MetricCitation, "Citation verification", HigherIsSafer, in.CitationScore, th.Citation},
	}

	report := Report{
		Overall:  models.RiskLow,
		Metrics:  make([]MetricResult, 0, len(specs)),
		Signals:  make([]models.Signal, 0, len(specs)),
		Triggers: []string{},
	}

	for _, s := range specs {
		if s.score == nil {
			report.Metrics = append(report.Metrics, MetricResult{Metric: s.name})
			report.Signals = append(report.Signals, models.Signal{
				Type:   models.SignalNeutral,
				Label:  s.label + " not evaluated",
				Metric: s.name,
			})
			continue
		}

		level := ClassifyMetric(*s.score, s.pair, s.direction)
		report.Metrics = append(report.Metrics, MetricResult{
			Metric:    s.name,
			Score:     s.score,
			Level:     level,
			Evaluated: true,
		})
		report.Signals = append(report.Signals, signalFor(s, *s.score, level))
		if level.Rank() > report.Overall.Rank() {
			report.Overall = level
		}
	}

	if report.Overall != models.RiskLow {
		for _, m := range report.Metrics {
			if m.Evaluated && m.Level == report.Overall {
				report.Triggers = append(report.Triggers, m.Metric)
			}
		}
	}

	return report
}

// ClassifyMetric classifies one score against its (low, medium) pair.
//
// Higher-is-safer: LOW if score >= low, MEDIUM if medium <= score < low, HIGH below medium.
// Higher-is-riskier: LOW if score <= low, MEDIUM if low < score <= medium, HIGH above medium.
func ClassifyMetric(score float64, pair models.ThresholdPair, dir Direction) models.RiskLevel {
	if dir == HigherIsSafer {
		switch {
		case score >= pair.Low:
			return models.RiskLow
		case score >= pair.Medium:
			return models.RiskMedium
		default:
			return models.RiskHigh
		}
	}

	switch {
	case score <= pair.Low:
		return models.RiskLow
	case score <= pair.Medium:
		return models.RiskMedium
	default:
		return models.RiskHigh
	}
}

func signalFor(s metricSpec, score float64, level models.RiskLevel) models.Signal {
	sig := models.Signal{Metric: s.name}

	switch level {
	case models.RiskLow:
		sig.Type = models.SignalPositive
		sig.Label = s.label + " within expected range"
		if s.direction == HigherIsSafer {
			sig.Detail = fmt.Sprintf("score %.1f at or above %.0f", score, s.pair.Low)
		} else {
			sig.Detail = fmt.Sprintf("score %.1f at or below %.0f", score, s.pair.Low)
		}
	case models.RiskMedium:
		sig.Type = models.SignalWarning
		sig.Label = s.label + " needs attention"
		if s.direction == HigherIsSafer {
			sig.Detail = fmt.Sprintf("score %.1f below %.0f", score, s.pair.Low)
		} else {
			sig.Detail = fmt.Sprintf("score %.1f above %.0f", score, s.pair.Low)
		}
	default:
		sig.Type = models.SignalDanger
		sig.Label = s.label + " is high risk"
		if s.direction == HigherIsSafer {
			sig.Detail = fmt.Sprintf("score %.1f below %.0f", score, s.pair.Medium)
		} else {
			sig.Detail = fmt.Sprintf("score %.1f above %.0f", score, s.pair.Medium)
		}
	}

	return sig
}

// Float returns a pointer to v, for building Inputs.
func Float(v float64) *float64 {
	return &v
}
