package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildIntegrityPrompt(t *testing.T) {
	prompt := BuildIntegrityPrompt(IntegrityRequest{
		Content:        "  The industrial revolution changed labour markets.  ",
		CheckCitations: true,
	})

	assert.Contains(t, prompt, "The industrial revolution changed labour markets.")
	assert.Contains(t, prompt, "positive, neutral, warning, danger")
	assert.Contains(t, prompt, "verified, unverified")
	assert.Contains(t, prompt, `"fragment_analysis"`)
	assert.Contains(t, prompt, "citations.score: share of citations")
	assert.NotContains(t, prompt, "citation checking is disabled")
}

func TestBuildIntegrityPrompt_CitationsDisabled(t *testing.T) {
	prompt := BuildIntegrityPrompt(IntegrityRequest{Content: "text", CheckCitations: false})
	assert.Contains(t, prompt, "citation checking is disabled")
}

func TestBuildIntegrityPrompt_TruncatesLongContent(t *testing.T) {
	content := strings.Repeat("a", MaxContentChars+10)
	prompt := BuildIntegrityPrompt(IntegrityRequest{Content: content})

	assert.Contains(t, prompt, "[truncated 10 characters]")
	assert.NotContains(t, prompt, strings.Repeat("a", MaxContentChars+1))
}
