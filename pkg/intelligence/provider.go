// Package intelligence runs submissions through an external analysis provider and
// returns AI-risk, citation, and reasoning assessments.
//
// The active provider is chosen from the settings snapshot. Calls are guarded by a
// per-provider circuit breaker and retried with backoff on transient failures.
package intelligence

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ekaya-inc/ekaya-integrity/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-integrity/pkg/models"
)

// ProviderName is the closed set of analysis backends.
type ProviderName string

const (
	ProviderMock      ProviderName = "mock"
	ProviderOpenAI    ProviderName = "openai"
	ProviderAnthropic ProviderName = "anthropic"
	ProviderGemini    ProviderName = "gemini"
	ProviderDeepSeek  ProviderName = "deepseek"
)

// ErrUnknownProvider is returned for any provider name outside the closed set.
var ErrUnknownProvider = fmt.Errorf("%w: unknown analysis provider", apperrors.ErrValidation)

// AllProviders lists every supported provider.
func AllProviders() []ProviderName {
	return []ProviderName{ProviderMock, ProviderOpenAI, ProviderAnthropic, ProviderGemini, ProviderDeepSeek}
}

// ParseProviderName validates s. Unknown names fail; they never fall back to mock.
func ParseProviderName(s string) (ProviderName, error) {
	name := ProviderName(strings.TrimSpace(s))
	for _, p := range AllProviders() {
		if p == name {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w %q", ErrUnknownProvider, s)
}

// RequiresAPIKey reports whether the provider needs a stored credential.
func (p ProviderName) RequiresAPIKey() bool {
	return p != ProviderMock
}

// Request is one analysis call.
type Request struct {
	SubmissionID   uuid.UUID
	Content        string
	CheckCitations bool
}

// Provider is implemented by each analysis backend.
type Provider interface {
	Name() ProviderName
	// Analyze returns a validated assessment of req.Content.
	Analyze(ctx context.Context, req Request) (*models.Assessment, error)
	// TestConnection makes the cheapest call that proves the credential works.
	TestConnection(ctx context.Context) error
}
