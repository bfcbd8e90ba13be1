package embedder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name         string
		cfg          Config
		env          map[string]string
		wantProvider string
		wantModel    string
		wantErr      error
	}{
		{
			name:         "local",
			cfg:          Config{Provider: "local"},
			wantProvider: ProviderLocal,
			wantModel:    DefaultLocalModel,
		},
		{
			name:         "ollama defaults",
			cfg:          Config{Provider: "Ollama"},
			wantProvider: ProviderOllama,
			wantModel:    DefaultOllamaModel,
		},
		{
			name:         "openai with key from env",
			cfg:          Config{Provider: "openai"},
			env:          map[string]string{EnvOpenAIAPIKey: "sk-test"},
			wantProvider: ProviderOpenAI,
			wantModel:    DefaultOpenAIModel,
		},
		{
			name:         "openai compatible endpoint without key",
			cfg:          Config{Provider: "openai", BaseURL: "http://localhost:11434/v1", Model: "nomic-embed-text"},
			env:          map[string]string{EnvOpenAIAPIKey: ""},
			wantProvider: ProviderOpenAI,
			wantModel:    "nomic-embed-text",
		},
		{
			name:    "openai hosted without key",
			cfg:     Config{Provider: "openai"},
			env:     map[string]string{EnvOpenAIAPIKey: ""},
			wantErr: ErrNoProviderEnabled,
		},
		{
			name:    "jina without key",
			cfg:     Config{Provider: "jina"},
			env:     map[string]string{EnvJinaAPIKey: ""},
			wantErr: ErrNoProviderEnabled,
		},
		{
			name:         "jina with key",
			cfg:          Config{Provider: "jina", APIKey: "jina-key"},
			wantProvider: ProviderJina,
			wantModel:    DefaultJinaModel,
		},
		{
			name:    "unknown provider",
			cfg:     Config{Provider: "word2vec"},
			wantErr: ErrUnsupportedModel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			emb, err := New(tt.cfg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			defer emb.Close()
			assert.Equal(t, tt.wantProvider, emb.Provider())
			assert.Equal(t, tt.wantModel, emb.Model())
		})
	}
}

func TestNew_WithCache(t *testing.T) {
	emb, err := New(Config{Provider: ProviderLocal, CacheSize: 16})
	require.NoError(t, err)

	_, ok := emb.(*cachedEmbedder)
	assert.True(t, ok)
}

func TestProviders(t *testing.T) {
	assert.ElementsMatch(t, []string{"openai", "jina", "ollama", "local"}, Providers())
}
