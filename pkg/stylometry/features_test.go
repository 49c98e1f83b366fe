package stylometry

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleText = "The cat sat on the mat. The dog ran far away! Did the bird fly home today?"

func TestExtractFeatures_RejectsShortText(t *testing.T) {
	assert.Nil(t, ExtractFeatures(""))
	assert.Nil(t, ExtractFeatures("Too short to mean anything."))
	// Padding does not count toward the minimum length.
	assert.Nil(t, ExtractFeatures("   "+strings.Repeat(" ", 80)+"short text.   "))
	// Long enough but no words at all.
	assert.Nil(t, ExtractFeatures(strings.Repeat("?! ", 30)))
}

func TestExtractFeatures_KnownText(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	f := ExtractFeaturesAt(sampleText, at)
	require.NotNil(t, f)

	assert.Equal(t, 17, f.WordCount)
	assert.InDelta(t, 5.67, f.AvgSentenceLength, 0.001)
	assert.InDelta(t, 0.82, f.VocabRichness, 0.001)
	assert.InDelta(t, 24.80, f.ReadabilityScore, 0.001)
	assert.Equal(t, at, f.Timestamp)
}

func TestExtractFeatures_Deterministic(t *testing.T) {
	text := strings.Repeat("Writers develop habits. Some of those habits are measurable, and others are not! ", 5)
	at := time.Now()

	first := ExtractFeaturesAt(text, at)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ExtractFeaturesAt(text, at))
	}
}

func TestExtractFeatures_CaseFoldsVocabulary(t *testing.T) {
	lower := ExtractFeaturesAt("the the the the the the the the the the the the the the the.", time.Time{})
	mixed := ExtractFeaturesAt("The THE the tHe The the THE the the The the the tHE the the.", time.Time{})
	require.NotNil(t, lower)
	require.NotNil(t, mixed)
	assert.Equal(t, lower.VocabRichness, mixed.VocabRichness)
}

func TestCompareToBaseline_Example(t *testing.T) {
	baseline := &Features{AvgSentenceLength: 14, VocabRichness: 0.55, ReadabilityScore: 9.0}
	current := &Features{AvgSentenceLength: 21, VocabRichness: 0.40, ReadabilityScore: 9.5}

	// sentence penalty (7-5)*2=4, vocab penalty 0.15*100=15, readability within tolerance.
	assert.Equal(t, 81.0, CompareToBaseline(baseline, current))
}

func TestCompareToBaseline_Identical(t *testing.T) {
	cases := []*Features{
		{AvgSentenceLength: 14, VocabRichness: 0.55, ReadabilityScore: 9},
		{AvgSentenceLength: 0, VocabRichness: 0, ReadabilityScore: -15.59},
		ExtractFeatures(sampleText),
	}
	for _, f := range cases {
		assert.Equal(t, 100.0, CompareToBaseline(f, f))
	}
}

func TestCompareToBaseline_NoBaselineIsNeutral(t *testing.T) {
	assert.Equal(t, NeutralScore, CompareToBaseline(nil, ExtractFeatures(sampleText)))
	assert.Equal(t, NeutralScore, CompareToBaseline(ExtractFeatures(sampleText), nil))
}

func TestCompareToBaseline_Clamped(t *testing.T) {
	baseline := &Features{AvgSentenceLength: 5, VocabRichness: 0.9, ReadabilityScore: 2}
	current := &Features{AvgSentenceLength: 500, VocabRichness: 0.01, ReadabilityScore: 300}
	assert.Equal(t, 0.0, CompareToBaseline(baseline, current))
}

func TestCompareToBaseline_Tolerances(t *testing.T) {
	baseline := &Features{AvgSentenceLength: 10, VocabRichness: 0.5, ReadabilityScore: 8}

	tests := []struct {
		name    string
		current *Features
		want    float64
	}{
		{"all within tolerance", &Features{AvgSentenceLength: 15, VocabRichness: 0.6, ReadabilityScore: 10}, 100},
		{"sentence length only", &Features{AvgSentenceLength: 18, VocabRichness: 0.5, ReadabilityScore: 8}, 94},
		{"readability only", &Features{AvgSentenceLength: 10, VocabRichness: 0.5, ReadabilityScore: 13}, 85},
		{"vocab only", &Features{AvgSentenceLength: 10, VocabRichness: 0.25, ReadabilityScore: 8}, 75},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CompareToBaseline(baseline, tt.current))
		})
	}
}

func TestBaseline(t *testing.T) {
	assert.Nil(t, Baseline([]string{"short", "  "}, time.Time{}))

	f := Baseline([]string{"The cat sat on the mat.", "The dog ran far away!", "Did the bird fly home today?"}, time.Time{})
	require.NotNil(t, f)
	assert.Equal(t, 17, f.WordCount)
}

func TestTokenize_UnicodeWords(t *testing.T) {
	assert.Equal(t, []string{"les", "élèves", "préférèrent", "réécrire"}, tokenize("Les élèves préférèrent réécrire."))
	assert.Equal(t, []string{"don't", "stop", "naïve", "café"}, tokenize("Don't stop, naïve café!"))
}

func TestExtractFeatures_NonLatinText(t *testing.T) {
	greek := "Η γάτα κάθισε στο χαλί. Ο σκύλος έτρεξε μακριά! Πέταξε το πουλί στο σπίτι σήμερα;"

	f := ExtractFeaturesAt(greek, time.Time{})
	require.NotNil(t, f)
	assert.Equal(t, 15, f.WordCount)
	assert.Greater(t, f.VocabRichness, 0.8)
}
