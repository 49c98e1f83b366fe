// Package stylometry extracts simple writing-style features from text and compares
// them against a writer's baseline.
//
// Tokenization splits on whitespace and punctuation: words are runs of Unicode letters,
// combining marks, digits and apostrophes, and sentences end at any run of '.', '!' or '?'.
package stylometry

import (
	"math"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// MinTextLength is the minimum trimmed length (in characters) that carries enough signal.
const MinTextLength = 50

// NeutralScore is returned when there is nothing to compare against.
const NeutralScore = 50.0

// Comparison tolerances and penalty weights.
const (
	sentenceLengthTolerance = 5.0
	sentenceLengthPenalty   = 2.0
	vocabRichnessTolerance  = 0.1
	vocabRichnessWeight     = 100.0
	readabilityTolerance    = 2.0
	readabilityPenalty      = 5.0
)

var (
	wordFinder    = regexp.MustCompile(`[\p{L}\p{M}\p{N}'’]+`)
	sentenceSplit = regexp.MustCompile(`[.!?]+`)
)

// Features is a stylometric fingerprint of one text.
type Features struct {
	AvgSentenceLength float64   `json:"avg_sentence_length"`
	VocabRichness     float64   `json:"vocab_richness"`
	ReadabilityScore  float64   `json:"readability_score"`
	WordCount         int       `json:"word_count"`
	Timestamp         time.Time `json:"timestamp"`
}

// ExtractFeatures computes the fingerprint of text, stamped with the current time.
// Returns nil if the text is too short to carry signal.
func ExtractFeatures(text string) *Features {
	return ExtractFeaturesAt(text, time.Now().UTC())
}

// ExtractFeaturesAt is ExtractFeatures with an explicit capture time.
// The metrics depend only on text.
func ExtractFeaturesAt(text string, at time.Time) *Features {
	trimmed := strings.TrimSpace(text)
	if utf8.RuneCountInString(trimmed) < MinTextLength {
		return nil
	}

	words := tokenize(trimmed)
	if len(words) == 0 {
		return nil
	}

	sentences := countSentences(trimmed)
	avgSentence := float64(len(words)) / float64(sentences)

	distinct := make(map[string]struct{}, len(words))
	letters := 0
	for _, w := range words {
		distinct[w] = struct{}{}
		for _, r := range w {
			if unicode.IsLetter(r) {
				letters++
			}
		}
	}
	avgLetters := float64(letters) / float64(len(words))

	return &Features{
		AvgSentenceLength: round(avgSentence),
		VocabRichness:     round(float64(len(distinct)) / float64(len(words))),
		ReadabilityScore:  round(0.39*avgSentence + 11.8*avgLetters - 15.59),
		WordCount:         len(words),
		Timestamp:         at,
	}
}

// CompareToBaseline scores how closely current matches baseline on a 0-100 scale.
// It starts at 100 and subtracts a penalty for each metric that deviates beyond its
// tolerance. A missing baseline or missing current features yields NeutralScore.
func CompareToBaseline(baseline, current *Features) float64 {
	if baseline == nil || current == nil {
		return NeutralScore
	}

	score := 100.0

	if d := math.Abs(current.AvgSentenceLength - baseline.AvgSentenceLength); d > sentenceLengthTolerance {
		score -= (d - sentenceLengthTolerance) * sentenceLengthPenalty
	}

	// Vocabulary drift is penalized on the whole deviation once it exceeds tolerance.
	if d := math.Abs(current.VocabRichness - baseline.VocabRichness); d > vocabRichnessTolerance {
		score -= d * vocabRichnessWeight
	}

	if d := math.Abs(current.ReadabilityScore - baseline.ReadabilityScore); d > readabilityTolerance {
		score -= (d - readabilityTolerance) * readabilityPenalty
	}

	return clamp(round(score), 0, 100)
}

// Baseline builds a reference fingerprint from trusted samples.
// Samples are combined into one text so short samples still contribute.
// Returns nil if the combined text is too short.
func Baseline(samples []string, at time.Time) *Features {
	parts := make([]string, 0, len(samples))
	for _, s := range samples {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return ExtractFeaturesAt(strings.Join(parts, "\n\n"), at)
}

func tokenize(text string) []string {
	return wordFinder.FindAllString(strings.ToLower(text), -1)
}

func countSentences(text string) int {
	n := 0
	for _, part := range sentenceSplit.Split(text, -1) {
		if strings.TrimSpace(part) != "" {
			n++
		}
	}
	if n == 0 {
		return 1
	}
	return n
}

func round(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
