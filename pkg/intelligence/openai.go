package intelligence

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-integrity/pkg/config"
	"github.com/ekaya-inc/ekaya-integrity/pkg/models"
	"github.com/ekaya-inc/ekaya-integrity/pkg/prompts"
)

// openAICompatibleProvider serves OpenAI and every backend that exposes the
// OpenAI chat completions API (Gemini, DeepSeek).
type openAICompatibleProvider struct {
	name    ProviderName
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

func newOpenAICompatibleProvider(name ProviderName, ep config.ProviderEndpoint, apiKey string, httpClient *http.Client, timeout time.Duration, logger *zap.Logger) *openAICompatibleProvider {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimSuffix(ep.BaseURL, "/")
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}

	return &openAICompatibleProvider{
		name:    name,
		client:  openai.NewClientWithConfig(cfg),
		model:   ep.Model,
		timeout: timeout,
		logger:  logger.Named(string(name)),
	}
}

func (p *openAICompatibleProvider) Name() ProviderName { return p.name }

func (p *openAICompatibleProvider) Analyze(ctx context.Context, req Request) (*models.Assessment, error) {
	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompts.IntegritySystemMessage},
			{Role: openai.ChatMessageRoleUser, Content: prompts.BuildIntegrityPrompt(prompts.IntegrityRequest{
				Content:        req.Content,
				CheckCitations: req.CheckCitations,
			})},
		},
		Temperature: 0.1,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, ClassifyError(p.name, err)
	}
	if len(resp.Choices) == 0 {
		return nil, ClassifyError(p.name, errors.Join(ErrInvalidResponse, errors.New("no choices in response")))
	}

	p.logger.Debug("Analysis response received",
		zap.String("submission_id", req.SubmissionID.String()),
		zap.String("model", p.model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("elapsed", time.Since(start)))

	assessment, err := ParseAssessment(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, ClassifyError(p.name, err)
	}
	return assessment, nil
}

func (p *openAICompatibleProvider) TestConnection(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompts.BuildConnectionCheckPrompt()},
		},
		MaxTokens: 10,
	})
	if err != nil {
		return ClassifyError(p.name, err)
	}
	if len(resp.Choices) == 0 {
		return ClassifyError(p.name, errors.Join(ErrInvalidResponse, errors.New("no choices in response")))
	}
	return nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

var _ Provider = (*openAICompatibleProvider)(nil)
