// Package prompts builds the prompts sent to external analysis providers.
package prompts

import (
	"fmt"
	"strings"
)

// MaxContentChars caps how much submission text is sent to a provider.
const MaxContentChars = 24000

// IntegritySystemMessage frames the provider as a reviewer that answers only in JSON.
const IntegritySystemMessage = "You are an academic integrity reviewer. " +
	"You assess submitted writing for signs of machine generation, check whether citations look verifiable, " +
	"and rate the depth of reasoning. Respond with a single JSON object and nothing else."

// IntegrityRequest is the input to BuildIntegrityPrompt.
type IntegrityRequest struct {
	Content        string
	CheckCitations bool
}

// BuildIntegrityPrompt creates the user prompt for an integrity assessment.
// The response format section is the contract parsed by the intelligence adapter.
func BuildIntegrityPrompt(req IntegrityRequest) string {
	var prompt strings.Builder

	prompt.WriteString("# Submission Integrity Assessment\n\n")
	prompt.WriteString("Assess the submission below. Scores are integers from 0 to 100.\n\n")

	prompt.WriteString("## Scoring Guide\n\n")
	prompt.WriteString("- ai_risk.score: likelihood the text was machine generated (0 = clearly human, 100 = clearly generated)\n")
	if req.CheckCitations {
		prompt.WriteString("- citations.score: share of citations that look real and correctly attributed (100 = all verifiable)\n")
	} else {
		prompt.WriteString("- citations: citation checking is disabled, return score 100 with empty check_results\n")
	}
	prompt.WriteString("- reasoning.score: depth and coherence of the argument (100 = rigorous)\n\n")

	prompt.WriteString("## Categories\n\n")
	prompt.WriteString("Each marker type must be one of: positive, neutral, warning, danger.\n")
	prompt.WriteString("Each check result type must be one of: verified, unverified.\n\n")

	prompt.WriteString("## Submission\n\n")
	prompt.WriteString("```text\n")
	prompt.WriteString(truncateContent(req.Content))
	prompt.WriteString("\n```\n\n")

	prompt.WriteString("## Response Format\n\n")
	prompt.WriteString("```json\n")
	prompt.WriteString(`{
  "ai_risk": {
    "score": 0,
    "markers": [{"type": "warning", "label": "short finding", "detail": "evidence"}],
    "fragment_analysis": "which passages look generated and why"
  },
  "citations": {
    "score": 0,
    "verified_count": 0,
    "total_count": 0,
    "check_results": [{"citation": "as written", "type": "verified", "note": "why"}]
  },
  "reasoning": {
    "score": 0,
    "analysis": "assessment of the argument"
  }
}`)
	prompt.WriteString("\n```\n")

	return prompt.String()
}

// BuildConnectionCheckPrompt is the minimal prompt used to verify credentials.
func BuildConnectionCheckPrompt() string {
	return "Say 'ok' and nothing else."
}

func truncateContent(content string) string {
	runes := []rune(strings.TrimSpace(content))
	if len(runes) <= MaxContentChars {
		return string(runes)
	}
	return string(runes[:MaxContentChars]) + fmt.Sprintf("\n[truncated %d characters]", len(runes)-MaxContentChars)
}
