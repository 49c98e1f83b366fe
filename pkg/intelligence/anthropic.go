package intelligence

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-integrity/pkg/config"
	"github.com/ekaya-inc/ekaya-integrity/pkg/models"
	"github.com/ekaya-inc/ekaya-integrity/pkg/prompts"
)

const anthropicMaxTokens = 2000

type anthropicProvider struct {
	client  *anthropic.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

func newAnthropicProvider(ep config.ProviderEndpoint, apiKey string, httpClient *http.Client, timeout time.Duration, logger *zap.Logger) *anthropicProvider {
	opts := []anthropic.ClientOption{anthropic.WithBaseURL(strings.TrimSuffix(ep.BaseURL, "/"))}
	if httpClient != nil {
		opts = append(opts, anthropic.WithHTTPClient(httpClient))
	}

	return &anthropicProvider{
		client:  anthropic.NewClient(apiKey, opts...),
		model:   ep.Model,
		timeout: timeout,
		logger:  logger.Named(string(ProviderAnthropic)),
	}
}

func (p *anthropicProvider) Name() ProviderName { return ProviderAnthropic }

func (p *anthropicProvider) Analyze(ctx context.Context, req Request) (*models.Assessment, error) {
	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	prompt := prompts.BuildIntegrityPrompt(prompts.IntegrityRequest{
		Content:        req.Content,
		CheckCitations: req.CheckCitations,
	})

	start := time.Now()
	resp, err := p.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(p.model),
		System:    prompts.IntegritySystemMessage,
		MaxTokens: anthropicMaxTokens,
		Messages: []anthropic.Message{
			{Role: anthropic.RoleUser, Content: []anthropic.MessageContent{
				{Type: "text", Text: &prompt},
			}},
		},
	})
	if err != nil {
		return nil, ClassifyError(ProviderAnthropic, err)
	}

	p.logger.Debug("Analysis response received",
		zap.String("submission_id", req.SubmissionID.String()),
		zap.String("model", p.model),
		zap.Int("input_tokens", resp.Usage.InputTokens),
		zap.Int("output_tokens", resp.Usage.OutputTokens),
		zap.Duration("elapsed", time.Since(start)))

	text := textFromResponse(resp)
	if text == "" {
		return nil, ClassifyError(ProviderAnthropic, errors.Join(ErrInvalidResponse, errors.New("no text content in response")))
	}

	assessment, err := ParseAssessment(text)
	if err != nil {
		return nil, ClassifyError(ProviderAnthropic, err)
	}
	return assessment, nil
}

func (p *anthropicProvider) TestConnection(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	prompt := prompts.BuildConnectionCheckPrompt()
	resp, err := p.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(p.model),
		MaxTokens: 10,
		Messages: []anthropic.Message{
			{Role: anthropic.RoleUser, Content: []anthropic.MessageContent{
				{Type: "text", Text: &prompt},
			}},
		},
	})
	if err != nil {
		return ClassifyError(ProviderAnthropic, err)
	}
	if textFromResponse(resp) == "" {
		return ClassifyError(ProviderAnthropic, errors.Join(ErrInvalidResponse, errors.New("no text content in response")))
	}
	return nil
}

func textFromResponse(resp anthropic.MessagesResponse) string {
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != nil {
			return *block.Text
		}
	}
	return ""
}

var _ Provider = (*anthropicProvider)(nil)
