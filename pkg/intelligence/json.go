package intelligence

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ekaya-inc/ekaya-integrity/pkg/models"
)

// thinkTagPattern matches a leading <think>...</think> block some models emit.
var thinkTagPattern = regexp.MustCompile(`(?s)^\s*<think>.*?</think>\s*`)

// extractJSONObject returns the first balanced JSON object in a model response.
// Leading think blocks, markdown fences, and surrounding prose are ignored.
func extractJSONObject(response string) (string, error) {
	cleaned := thinkTagPattern.ReplaceAllString(response, "")

	for offset := 0; offset < len(cleaned); {
		start := strings.IndexByte(cleaned[offset:], '{')
		if start < 0 {
			break
		}
		start += offset

		end, ok := balancedEnd(cleaned, start)
		if !ok {
			break
		}
		candidate := cleaned[start : end+1]
		if json.Valid([]byte(candidate)) {
			return candidate, nil
		}
		offset = start + 1
	}

	return "", errors.New("no JSON object found in response")
}

// balancedEnd returns the index of the brace closing the object opened at start.
// Braces inside string literals are skipped.
func balancedEnd(s string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// ParseAssessment parses and validates a provider's JSON answer.
// Any failure wraps ErrInvalidResponse.
func ParseAssessment(response string) (*models.Assessment, error) {
	raw, err := extractJSONObject(response)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	var a models.Assessment
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return nil, fmt.Errorf("%w: unmarshal: %v", ErrInvalidResponse, err)
	}

	normalize(&a)
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return &a, nil
}

// normalize replaces nil slices so assessments always serialize as arrays.
func normalize(a *models.Assessment) {
	if a.AIRisk.Markers == nil {
		a.AIRisk.Markers = []models.Signal{}
	}
	if a.Citations.CheckResults == nil {
		a.Citations.CheckResults = []models.CitationCheck{}
	}
}
