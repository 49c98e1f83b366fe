package intelligence

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-integrity/pkg/config"
)

// Factory builds a Provider for a name and credential.
// This interface enables injecting fake providers in tests.
type Factory interface {
	Create(name ProviderName, apiKey string) (Provider, error)
}

// FactoryConfig holds what every provider needs besides its credential.
type FactoryConfig struct {
	Endpoints config.ProvidersConfig
	MockDelay time.Duration
	Timeout   time.Duration
	// HTTPClient overrides the transport for real providers. Nil uses each SDK's default.
	HTTPClient *http.Client
}

type providerFactory struct {
	cfg    FactoryConfig
	logger *zap.Logger
}

// NewFactory creates the production provider factory.
func NewFactory(cfg FactoryConfig, logger *zap.Logger) Factory {
	return &providerFactory{cfg: cfg, logger: logger.Named("provider")}
}

func (f *providerFactory) Create(name ProviderName, apiKey string) (Provider, error) {
	if name.RequiresAPIKey() && apiKey == "" {
		return nil, &Error{Provider: name, Type: ErrorTypeAuth, Message: "API key not configured"}
	}

	switch name {
	case ProviderMock:
		return NewMockProvider(f.cfg.MockDelay), nil
	case ProviderOpenAI:
		return newOpenAICompatibleProvider(name, f.cfg.Endpoints.OpenAI, apiKey, f.cfg.HTTPClient, f.cfg.Timeout, f.logger), nil
	case ProviderGemini:
		return newOpenAICompatibleProvider(name, f.cfg.Endpoints.Gemini, apiKey, f.cfg.HTTPClient, f.cfg.Timeout, f.logger), nil
	case ProviderDeepSeek:
		return newOpenAICompatibleProvider(name, f.cfg.Endpoints.DeepSeek, apiKey, f.cfg.HTTPClient, f.cfg.Timeout, f.logger), nil
	case ProviderAnthropic:
		return newAnthropicProvider(f.cfg.Endpoints.Anthropic, apiKey, f.cfg.HTTPClient, f.cfg.Timeout, f.logger), nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownProvider, name)
	}
}

var _ Factory = (*providerFactory)(nil)
