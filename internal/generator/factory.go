package generator

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dshills/codescribe/internal/apiclient"
	"github.com/dshills/codescribe/internal/backoff"
)

// Config holds generator configuration
type Config struct {
	Provider          string
	BaseURL           string
	Model             string
	APIKey            string
	RequestsPerSecond float64
	MaxAttempts       int
	Timeout           time.Duration
}

// New creates a generator with explicit configuration
func New(cfg Config) (Generator, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))

	switch provider {
	case ProviderOpenAI:
		apiKey := firstNonEmpty(cfg.APIKey, os.Getenv(EnvOpenAIAPIKey))
		baseURL := firstNonEmpty(cfg.BaseURL, DefaultOpenAIBaseURL)
		if apiKey == "" && baseURL == DefaultOpenAIBaseURL {
			return nil, fmt.Errorf("%w: %s not set", ErrNoProviderKey, EnvOpenAIAPIKey)
		}
		client, err := newClient(cfg, baseURL, apiKey)
		if err != nil {
			return nil, err
		}
		return NewChatCompletionsProvider(firstNonEmpty(cfg.Model, DefaultOpenAIModel), client), nil

	case ProviderOllama:
		client, err := newClient(cfg, firstNonEmpty(cfg.BaseURL, DefaultOllamaBaseURL), cfg.APIKey)
		if err != nil {
			return nil, err
		}
		return NewOllamaProvider(firstNonEmpty(cfg.Model, DefaultOllamaModel), client), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedModel, cfg.Provider)
	}
}

func newClient(cfg Config, baseURL, apiKey string) (*apiclient.Client, error) {
	return apiclient.New(apiclient.Options{
		BaseURL:           baseURL,
		APIKey:            apiKey,
		Timeout:           cfg.Timeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Retry:             backoff.WithAttempts(cfg.MaxAttempts),
	})
}

// Providers lists the provider names New accepts
func Providers() []string {
	return []string{ProviderOpenAI, ProviderOllama}
}
