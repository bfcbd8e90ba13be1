package embedder

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dshills/codescribe/internal/apiclient"
	"github.com/dshills/codescribe/internal/backoff"
)

// Config holds embedder configuration
type Config struct {
	Provider          string
	BaseURL           string // Optional: provider default when empty
	Model             string // Optional: provider default when empty
	APIKey            string
	CacheSize         int // 0 disables caching
	RequestsPerSecond float64
	MaxAttempts       int // 0 or 1 means no automatic retry
	Timeout           time.Duration
}

// New creates an embedder with explicit configuration
func New(cfg Config) (Embedder, error) {
	emb, err := newProvider(cfg)
	if err != nil {
		return nil, err
	}
	return WithCache(emb, cfg.CacheSize)
}

func newProvider(cfg Config) (Embedder, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))

	switch provider {
	case ProviderLocal:
		return NewLocalProvider(), nil

	case ProviderOpenAI:
		apiKey := firstNonEmpty(cfg.APIKey, os.Getenv(EnvOpenAIAPIKey))
		baseURL := firstNonEmpty(cfg.BaseURL, DefaultOpenAIBaseURL)
		if apiKey == "" && baseURL == DefaultOpenAIBaseURL {
			return nil, fmt.Errorf("%w: %s not set", ErrNoProviderEnabled, EnvOpenAIAPIKey)
		}
		client, err := newClient(cfg, baseURL, apiKey)
		if err != nil {
			return nil, err
		}
		return NewCompatibleProvider(ProviderOpenAI, firstNonEmpty(cfg.Model, DefaultOpenAIModel), client), nil

	case ProviderJina:
		apiKey := firstNonEmpty(cfg.APIKey, os.Getenv(EnvJinaAPIKey))
		if apiKey == "" {
			return nil, fmt.Errorf("%w: %s not set", ErrNoProviderEnabled, EnvJinaAPIKey)
		}
		client, err := newClient(cfg, firstNonEmpty(cfg.BaseURL, DefaultJinaBaseURL), apiKey)
		if err != nil {
			return nil, err
		}
		return NewCompatibleProvider(ProviderJina, firstNonEmpty(cfg.Model, DefaultJinaModel), client), nil

	case ProviderOllama:
		client, err := newClient(cfg, firstNonEmpty(cfg.BaseURL, DefaultOllamaBaseURL), cfg.APIKey)
		if err != nil {
			return nil, err
		}
		return NewOllamaProvider(firstNonEmpty(cfg.Model, DefaultOllamaModel), client), nil

	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrUnsupportedModel, cfg.Provider)
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
	return []string{ProviderOpenAI, ProviderJina, ProviderOllama, ProviderLocal}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
