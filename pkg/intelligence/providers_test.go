package intelligence

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-integrity/pkg/config"
)

const (
	openAIChatURL       = "https://api.openai.com/v1/chat/completions"
	geminiChatURL       = "https://generativelanguage.googleapis.com/v1beta/openai/chat/completions"
	anthropicMessageURL = "https://api.anthropic.com/v1/messages"
)

func newMockedFactory(t *testing.T) (Factory, *httpmock.MockTransport) {
	t.Helper()
	mt := httpmock.NewMockTransport()
	f := NewFactory(FactoryConfig{
		Endpoints:  config.DefaultProviders(),
		Timeout:    5 * time.Second,
		HTTPClient: &http.Client{Transport: mt},
	}, zap.NewNop())
	return f, mt
}

func openAIChatBody(t *testing.T, content string) string {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
		"usage": map[string]any{"prompt_tokens": 120, "completion_tokens": 80, "total_tokens": 200},
	})
	require.NoError(t, err)
	return string(body)
}

func anthropicMessageBody(t *testing.T, text string) string {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"id":          "msg_1",
		"type":        "message",
		"role":        "assistant",
		"model":       "claude-3-5-haiku-latest",
		"content":     []map[string]any{{"type": "text", "text": text}},
		"stop_reason": "end_turn",
		"usage":       map[string]any{"input_tokens": 120, "output_tokens": 80},
	})
	require.NoError(t, err)
	return string(body)
}

func TestOpenAIProvider_Analyze(t *testing.T) {
	f, mt := newMockedFactory(t)

	var captured string
	mt.RegisterResponder("POST", openAIChatURL, func(req *http.Request) (*http.Response, error) {
		b, _ := io.ReadAll(req.Body)
		captured = string(b)
		assert.Equal(t, "Bearer sk-test", req.Header.Get("Authorization"))
		return httpmock.NewStringResponse(200, openAIChatBody(t, validAssessmentJSON)), nil
	})

	p, err := f.Create(ProviderOpenAI, "sk-test")
	require.NoError(t, err)

	a, err := p.Analyze(context.Background(), Request{Content: "The essay body.", CheckCitations: true})
	require.NoError(t, err)

	assert.Equal(t, 42.0, a.AIRisk.Score)
	assert.Equal(t, 2, a.Citations.TotalCount)
	assert.Contains(t, captured, `"model":"gpt-4o-mini"`)
	assert.Contains(t, captured, "The essay body.")
	assert.Contains(t, captured, "json_object")
	assert.Equal(t, 1, mt.GetTotalCallCount())
}

func TestOpenAICompatibleProvider_UsesConfiguredEndpoint(t *testing.T) {
	f, mt := newMockedFactory(t)
	mt.RegisterResponder("POST", geminiChatURL, httpmock.NewStringResponder(200, openAIChatBody(t, validAssessmentJSON)))

	p, err := f.Create(ProviderGemini, "AIza-test")
	require.NoError(t, err)
	assert.Equal(t, ProviderGemini, p.Name())

	_, err = p.Analyze(context.Background(), Request{Content: "text"})
	require.NoError(t, err)
	assert.Equal(t, 1, mt.GetCallCountInfo()["POST "+geminiChatURL])
}

func TestOpenAIProvider_AuthError(t *testing.T) {
	f, mt := newMockedFactory(t)
	mt.RegisterResponder("POST", openAIChatURL, httpmock.NewStringResponder(401,
		`{"error":{"message":"Incorrect API key provided: sk-bad","type":"invalid_request_error","code":"invalid_api_key"}}`))

	p, err := f.Create(ProviderOpenAI, "sk-bad")
	require.NoError(t, err)

	_, err = p.Analyze(context.Background(), Request{Content: "text"})
	require.Error(t, err)

	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ErrorTypeAuth, perr.Type)
	assert.Equal(t, 401, perr.StatusCode)
	assert.False(t, perr.IsRetryable())
}

func TestOpenAIProvider_ServerErrorIsRetryable(t *testing.T) {
	f, mt := newMockedFactory(t)
	mt.RegisterResponder("POST", openAIChatURL, httpmock.NewStringResponder(503,
		`{"error":{"message":"The server is overloaded","type":"server_error"}}`))

	p, err := f.Create(ProviderOpenAI, "sk-test")
	require.NoError(t, err)

	_, err = p.Analyze(context.Background(), Request{Content: "text"})
	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.True(t, perr.IsRetryable())
}

func TestOpenAIProvider_InvalidAssessment(t *testing.T) {
	f, mt := newMockedFactory(t)
	bad := strings.Replace(validAssessmentJSON, `"score": 42`, `"score": 420`, 1)
	mt.RegisterResponder("POST", openAIChatURL, httpmock.NewStringResponder(200, openAIChatBody(t, bad)))

	p, err := f.Create(ProviderOpenAI, "sk-test")
	require.NoError(t, err)

	_, err = p.Analyze(context.Background(), Request{Content: "text"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidResponse)

	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ErrorTypeResponse, perr.Type)
}

func TestAnthropicProvider_Analyze(t *testing.T) {
	f, mt := newMockedFactory(t)

	mt.RegisterResponder("POST", anthropicMessageURL, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "sk-ant-test", req.Header.Get("X-Api-Key"))
		return httpmock.NewStringResponse(200, anthropicMessageBody(t, "```json\n"+validAssessmentJSON+"\n```")), nil
	})

	p, err := f.Create(ProviderAnthropic, "sk-ant-test")
	require.NoError(t, err)

	a, err := p.Analyze(context.Background(), Request{Content: "text", CheckCitations: true})
	require.NoError(t, err)
	assert.Equal(t, 68.0, a.Reasoning.Score)
	assert.Equal(t, 1, mt.GetTotalCallCount())
}

func TestAnthropicProvider_AuthError(t *testing.T) {
	f, mt := newMockedFactory(t)
	mt.RegisterResponder("POST", anthropicMessageURL, httpmock.NewStringResponder(401,
		`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))

	p, err := f.Create(ProviderAnthropic, "sk-ant-bad")
	require.NoError(t, err)

	err = p.TestConnection(context.Background())
	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ErrorTypeAuth, perr.Type)
}

func TestFactory_RequiresAPIKey(t *testing.T) {
	f, _ := newMockedFactory(t)

	for _, name := range []ProviderName{ProviderOpenAI, ProviderAnthropic, ProviderGemini, ProviderDeepSeek} {
		_, err := f.Create(name, "")
		var perr *Error
		require.ErrorAs(t, err, &perr, "provider %s", name)
		assert.Equal(t, ErrorTypeAuth, perr.Type)
	}

	p, err := f.Create(ProviderMock, "")
	require.NoError(t, err)
	assert.Equal(t, ProviderMock, p.Name())

	_, err = f.Create(ProviderName("mistral"), "key")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}
