package intelligence

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ekaya-inc/ekaya-integrity/pkg/models"
	"github.com/ekaya-inc/ekaya-integrity/pkg/stylometry"
)

var (
	authorYearCitation = regexp.MustCompile(`\(([A-Z][A-Za-z\-]+(?: et al\.)?(?: (?:and|&) [A-Z][A-Za-z\-]+)?),? (\d{4})\)`)
	numericCitation    = regexp.MustCompile(`\[(\d{1,3})\]`)
	sentenceBoundary   = regexp.MustCompile(`[.!?]+`)
	mockWordFinder     = regexp.MustCompile(`[A-Za-z0-9']+`)
)

// Stock phrases that show up disproportionately in generated prose.
var generatedPhrases = []string{
	"furthermore",
	"moreover",
	"additionally",
	"in conclusion",
	"it is important to note",
	"plays a crucial role",
	"in today's",
	"delve",
}

// Connectives that signal an argument is being built.
var reasoningConnectives = []string{
	"because",
	"therefore",
	"however",
	"thus",
	"consequently",
	"although",
	"whereas",
	"for example",
}

// mockProvider produces deterministic assessments from text heuristics after a fixed delay.
type mockProvider struct {
	delay time.Duration
	now   func() time.Time
}

// NewMockProvider returns the built-in provider. It needs no credentials.
func NewMockProvider(delay time.Duration) Provider {
	return &mockProvider{delay: delay, now: time.Now}
}

func (m *mockProvider) Name() ProviderName { return ProviderMock }

func (m *mockProvider) TestConnection(ctx context.Context) error {
	return ctx.Err()
}

func (m *mockProvider) Analyze(ctx context.Context, req Request) (*models.Assessment, error) {
	if m.delay > 0 {
		timer := time.NewTimer(m.delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	a := &models.Assessment{
		AIRisk:    m.aiRisk(req.Content),
		Citations: m.citations(req.Content, req.CheckCitations),
		Reasoning: m.reasoning(req.Content),
	}
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return a, nil
}

func (m *mockProvider) aiRisk(content string) models.AIRiskAssessment {
	lower := strings.ToLower(content)
	score := 15.0
	markers := []models.Signal{}

	hits := 0
	var found []string
	for _, p := range generatedPhrases {
		if n := strings.Count(lower, p); n > 0 {
			hits += n
			found = append(found, p)
		}
	}
	if hits > 0 {
		score += math.Min(float64(hits)*10, 40)
		markerType := models.SignalWarning
		if hits >= 4 {
			markerType = models.SignalDanger
		}
		markers = append(markers, models.Signal{
			Type:   markerType,
			Label:  "Formulaic transitions",
			Detail: fmt.Sprintf("%d occurrences of: %s", hits, strings.Join(found, ", ")),
		})
	}

	lengths := sentenceLengths(content)
	if cv := coefficientOfVariation(lengths); len(lengths) >= 4 && cv < 0.2 {
		score += 25
		markers = append(markers, models.Signal{
			Type:   models.SignalWarning,
			Label:  "Uniform sentence length",
			Detail: fmt.Sprintf("sentence length varies by %.0f%%", cv*100),
		})
	} else if len(lengths) >= 4 {
		markers = append(markers, models.Signal{
			Type:  models.SignalPositive,
			Label: "Natural variation in sentence length",
		})
	}

	if f := stylometry.ExtractFeatures(content); f != nil && f.WordCount >= 100 && f.VocabRichness < 0.35 {
		score += 15
		markers = append(markers, models.Signal{
			Type:   models.SignalWarning,
			Label:  "Repetitive vocabulary",
			Detail: fmt.Sprintf("type-token ratio %.2f", f.VocabRichness),
		})
	}

	if len(markers) == 0 {
		markers = append(markers, models.Signal{Type: models.SignalNeutral, Label: "Too little text for stylistic markers"})
	}

	fragment := "No passages stand out as machine generated."
	if score >= 50 {
		fragment = "Several passages follow generated-text patterns; review transitions and sentence rhythm."
	}

	return models.AIRiskAssessment{
		Score:            math.Min(score, 100),
		Markers:          markers,
		FragmentAnalysis: fragment,
	}
}

func (m *mockProvider) citations(content string, check bool) models.CitationAssessment {
	result := models.CitationAssessment{Score: 100, CheckResults: []models.CitationCheck{}}
	if !check {
		return result
	}

	currentYear := m.now().Year()
	for _, match := range authorYearCitation.FindAllStringSubmatch(content, -1) {
		year, _ := strconv.Atoi(match[2])
		cc := models.CitationCheck{Citation: match[0], Type: models.CitationVerified}
		if year < 1900 || year > currentYear {
			cc.Type = models.CitationUnverified
			cc.Note = fmt.Sprintf("publication year %d is implausible", year)
		} else {
			result.VerifiedCount++
		}
		result.CheckResults = append(result.CheckResults, cc)
	}
	for _, match := range numericCitation.FindAllString(content, -1) {
		result.CheckResults = append(result.CheckResults, models.CitationCheck{
			Citation: match,
			Type:     models.CitationUnverified,
			Note:     "numbered reference without a resolvable bibliography",
		})
	}

	result.TotalCount = len(result.CheckResults)
	if result.TotalCount > 0 {
		result.Score = math.Round(float64(result.VerifiedCount) / float64(result.TotalCount) * 100)
	}
	return result
}

func (m *mockProvider) reasoning(content string) models.ReasoningAssessment {
	lower := strings.ToLower(content)
	hits := 0
	for _, c := range reasoningConnectives {
		hits += strings.Count(lower, c)
	}

	words := len(mockWordFinder.FindAllString(content, -1))
	score := 30 + math.Min(float64(hits)*8, 50)
	if words >= 300 {
		score += 20
	} else if words >= 120 {
		score += 10
	}
	score = math.Min(score, 100)

	analysis := "The argument relies on assertion with little supporting reasoning."
	switch {
	case score >= 75:
		analysis = "Claims are connected and supported; the argument develops across the text."
	case score >= 50:
		analysis = "Some claims are supported, but the argument is uneven."
	}

	return models.ReasoningAssessment{Score: score, Analysis: analysis}
}

func sentenceLengths(content string) []float64 {
	var lengths []float64
	for _, s := range sentenceBoundary.Split(content, -1) {
		if n := len(mockWordFinder.FindAllString(s, -1)); n > 0 {
			lengths = append(lengths, float64(n))
		}
	}
	return lengths
}

func coefficientOfVariation(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	if mean == 0 {
		return 0
	}
	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))
	return math.Sqrt(variance) / mean
}

var _ Provider = (*mockProvider)(nil)
