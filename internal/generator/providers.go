package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/dshills/codescribe/internal/apiclient"
)

// Provider configuration
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"

	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultOllamaBaseURL = "http://localhost:11434"

	DefaultOpenAIModel = "gpt-4o-mini"
	DefaultOllamaModel = "qwen2.5:14b-instruct-q4_K_M"

	EnvOpenAIAPIKey = "OPENAI_API_KEY"
)

// ChatCompletionsProvider talks to any endpoint speaking the OpenAI
// /chat/completions format, including Ollama's /v1 compatibility layer
type ChatCompletionsProvider struct {
	model  string
	client *apiclient.Client
}

// NewChatCompletionsProvider creates an OpenAI-format generator
func NewChatCompletionsProvider(model string, client *apiclient.Client) *ChatCompletionsProvider {
	return &ChatCompletionsProvider{model: model, client: client}
}

func (p *ChatCompletionsProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = p.model
	}

	reqBody := map[string]interface{}{
		"model":    model,
		"messages": req.Messages,
	}

	var apiResp struct {
		Model   string `json:"model"`
		Choices []struct {
			Message Message `json:"message"`
		} `json:"choices"`
	}

	if err := p.client.PostJSON(ctx, "/chat/completions", reqBody, &apiResp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}

	if len(apiResp.Choices) == 0 || strings.TrimSpace(apiResp.Choices[0].Message.Content) == "" {
		return nil, fmt.Errorf("%w: %w", ErrProviderFailed, ErrEmptyResponse)
	}

	return &Response{
		Content: strings.TrimSpace(apiResp.Choices[0].Message.Content),
		Model:   firstNonEmpty(apiResp.Model, model),
	}, nil
}

func (p *ChatCompletionsProvider) Provider() string { return ProviderOpenAI }
func (p *ChatCompletionsProvider) Model() string    { return p.model }

func (p *ChatCompletionsProvider) Close() error {
	p.client.Close()
	return nil
}

// OllamaProvider talks to Ollama's native /api/chat endpoint
type OllamaProvider struct {
	model  string
	client *apiclient.Client
}

// NewOllamaProvider creates a native Ollama generator
func NewOllamaProvider(model string, client *apiclient.Client) *OllamaProvider {
	return &OllamaProvider{model: model, client: client}
}

func (o *OllamaProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = o.model
	}

	reqBody := map[string]interface{}{
		"model":    model,
		"messages": req.Messages,
		"stream":   false,
	}

	var apiResp struct {
		Model   string  `json:"model"`
		Message Message `json:"message"`
		Error   string  `json:"error"`
	}

	if err := o.client.PostJSON(ctx, "/api/chat", reqBody, &apiResp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}

	if apiResp.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrProviderFailed, apiResp.Error)
	}

	if strings.TrimSpace(apiResp.Message.Content) == "" {
		return nil, fmt.Errorf("%w: %w", ErrProviderFailed, ErrEmptyResponse)
	}

	return &Response{
		Content: strings.TrimSpace(apiResp.Message.Content),
		Model:   firstNonEmpty(apiResp.Model, model),
	}, nil
}

func (o *OllamaProvider) Provider() string { return ProviderOllama }
func (o *OllamaProvider) Model() string    { return o.model }

func (o *OllamaProvider) Close() error {
	o.client.Close()
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
