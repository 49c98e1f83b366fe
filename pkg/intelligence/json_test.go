package intelligence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-integrity/pkg/models"
)

const validAssessmentJSON = `{
  "ai_risk": {
    "score": 42,
    "markers": [{"type": "warning", "label": "Formulaic transitions", "detail": "Moreover x3"}],
    "fragment_analysis": "Second paragraph reads as generated."
  },
  "citations": {
    "score": 50,
    "verified_count": 1,
    "total_count": 2,
    "check_results": [
      {"citation": "Smith (2019)", "type": "verified"},
      {"citation": "Jones (2031)", "type": "unverified", "note": "future year"}
    ]
  },
  "reasoning": {"score": 68, "analysis": "Argument is coherent but shallow. {not json}"}
}`

func TestParseAssessment(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"plain", validAssessmentJSON},
		{"markdown fence", "Here you go:\n```json\n" + validAssessmentJSON + "\n```"},
		{"think block", "<think>the user wants {json}</think>\n" + validAssessmentJSON},
		{"leading stray brace", "Note {draft} follows " + validAssessmentJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := ParseAssessment(tt.response)
			require.NoError(t, err)
			assert.Equal(t, 42.0, a.AIRisk.Score)
			assert.Equal(t, models.SignalWarning, a.AIRisk.Markers[0].Type)
			assert.Equal(t, 2, a.Citations.TotalCount)
			assert.Equal(t, models.CitationUnverified, a.Citations.CheckResults[1].Type)
			assert.Contains(t, a.Reasoning.Analysis, "{not json}")
		})
	}
}

func TestParseAssessment_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"no json", "I cannot help with that."},
		{"unbalanced", `{"ai_risk": {"score": 10}`},
		{"bad marker type", `{"ai_risk":{"score":10,"markers":[{"type":"critical","label":"x"}]},"citations":{"score":100},"reasoning":{"score":50}}`},
		{"bad check type", `{"ai_risk":{"score":10},"citations":{"score":100,"total_count":1,"check_results":[{"citation":"x","type":"probably"}]},"reasoning":{"score":50}}`},
		{"score out of range", `{"ai_risk":{"score":140},"citations":{"score":100},"reasoning":{"score":50}}`},
		{"wrong field type", `{"ai_risk":{"score":"high"},"citations":{"score":100},"reasoning":{"score":50}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAssessment(tt.response)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidResponse)
		})
	}
}

func TestParseAssessment_NormalizesEmptyLists(t *testing.T) {
	a, err := ParseAssessment(`{"ai_risk":{"score":5},"citations":{"score":100},"reasoning":{"score":70}}`)
	require.NoError(t, err)
	assert.NotNil(t, a.AIRisk.Markers)
	assert.NotNil(t, a.Citations.CheckResults)
}
