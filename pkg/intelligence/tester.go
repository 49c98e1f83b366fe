package intelligence

import (
	"context"
	"fmt"
	"time"

	"github.com/ekaya-inc/ekaya-integrity/pkg/logging"
	"github.com/ekaya-inc/ekaya-integrity/pkg/models"
)

// ConnectionTester checks a provider credential without running an analysis.
// This interface enables mocking in tests.
type ConnectionTester interface {
	TestConnection(ctx context.Context, provider ProviderName, apiKey string) *models.ProviderTestResult
}

type connectionTester struct {
	factory Factory
	timeout time.Duration
}

// NewConnectionTester creates a tester that builds providers through factory.
func NewConnectionTester(factory Factory, timeout time.Duration) ConnectionTester {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &connectionTester{factory: factory, timeout: timeout}
}

func (t *connectionTester) TestConnection(ctx context.Context, name ProviderName, apiKey string) *models.ProviderTestResult {
	provider, err := t.factory.Create(name, apiKey)
	if err != nil {
		return &models.ProviderTestResult{Error: describeError(name, err)}
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	start := time.Now()
	if err := provider.TestConnection(ctx); err != nil {
		return &models.ProviderTestResult{Error: describeError(name, err)}
	}

	return &models.ProviderTestResult{
		Success: true,
		Message: fmt.Sprintf("%s connection successful (%dms)", name, time.Since(start).Milliseconds()),
	}
}

// describeError turns a provider error into a message safe to show an admin.
func describeError(name ProviderName, err error) string {
	classified := ClassifyError(name, err)
	switch classified.Type {
	case ErrorTypeAuth:
		if classified.Cause == nil {
			return fmt.Sprintf("%s: %s", name, classified.Message)
		}
		return fmt.Sprintf("%s: Invalid API key", name)
	case ErrorTypeModel:
		return fmt.Sprintf("%s: Model not found", name)
	case ErrorTypeEndpoint:
		if classified.StatusCode == 404 {
			return fmt.Sprintf("%s: Endpoint not found - check base URL", name)
		}
		return fmt.Sprintf("%s: %s", name, classified.Message)
	case ErrorTypeRateLimit:
		return fmt.Sprintf("%s: Rate limited - try again shortly", name)
	default:
		return fmt.Sprintf("%s: %s", name, logging.SanitizeError(err))
	}
}

var _ ConnectionTester = (*connectionTester)(nil)
