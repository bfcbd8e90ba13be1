package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestLoadSettings_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	s, err := LoadSettings("", nil)
	require.NoError(t, err)

	assert.Equal(t, "ollama", s.Generation.Provider)
	assert.Equal(t, "ollama", s.Embedding.Provider)
	assert.Equal(t, 1, s.Generation.MaxAttempts)
	assert.Equal(t, []string{".go"}, s.Pipeline.Suffixes)
	assert.Equal(t, 4, s.Pipeline.Workers)
	assert.True(t, s.Pipeline.IndexSummaries)
	assert.Equal(t, ".codescribe", s.Index.Path)
	assert.True(t, s.Index.Keyword)
	assert.Equal(t, "docs", s.Output.Dir)
	assert.Equal(t, 5, s.Search.K)
	assert.Equal(t, "vector", s.Search.Mode)
	assert.Equal(t, "You are an expert in code analysis.", s.Pipeline.Prompts.Unit)
	assert.NoError(t, ValidateSettings(s))
}

func TestLoadSettings_Priority(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	cfg := []byte(`
generation:
  provider: openai
  model: file-model
embedding:
  provider: local
pipeline:
  workers: 2
  suffixes: [".go", "py"]
output:
  dir: from-file
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "codescribe.yaml"), cfg, 0o644))

	t.Setenv("CODESCRIBE_GENERATION_MODEL", "env-model")
	t.Setenv("CODESCRIBE_OUTPUT_DIR", "from-env")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("output", "", "")
	flags.Int("workers", 0, "")
	require.NoError(t, flags.Parse([]string{"--output", "from-flag"}))

	s, err := LoadSettings("", flags)
	require.NoError(t, err)

	assert.Equal(t, "openai", s.Generation.Provider, "file overrides default")
	assert.Equal(t, "env-model", s.Generation.Model, "env overrides file")
	assert.Equal(t, "from-flag", s.Output.Dir, "flag overrides env")
	assert.Equal(t, 2, s.Pipeline.Workers, "unset flag keeps file value")
	assert.Equal(t, "local", s.Embedding.Provider)
	assert.Equal(t, []string{".go", ".py"}, s.Pipeline.Suffixes)
}

func TestLoadSettings_ExplicitFile(t *testing.T) {
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("index:\n  path: /tmp/idx\n"), 0o644))

	s, err := LoadSettings(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/idx", s.Index.Path)

	_, err = LoadSettings(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestLoadSettings_EnvSuffixes(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CODESCRIBE_PIPELINE_SUFFIXES", ".go, .py ,")

	s, err := LoadSettings("", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{".go", ".py"}, s.Pipeline.Suffixes)
}

func TestLoadSettings_HomeExpansion(t *testing.T) {
	t.Chdir(t.TempDir())
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("CODESCRIBE_INDEX_PATH", "~/idx")

	s, err := LoadSettings("", nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "idx"), s.Index.Path)
}

func TestValidateSettings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"unknown generation provider", func(s *Settings) { s.Generation.Provider = "bard" }},
		{"unknown embedding provider", func(s *Settings) { s.Embedding.Provider = "word2vec" }},
		{"negative rate", func(s *Settings) { s.Embedding.RequestsPerSecond = -1 }},
		{"zero attempts", func(s *Settings) { s.Generation.MaxAttempts = 0 }},
		{"negative timeout", func(s *Settings) { s.Generation.TimeoutSecs = -1 }},
		{"negative cache", func(s *Settings) { s.Embedding.CacheSize = -1 }},
		{"no workers", func(s *Settings) { s.Pipeline.Workers = 0 }},
		{"no suffixes", func(s *Settings) { s.Pipeline.Suffixes = nil }},
		{"no index path", func(s *Settings) { s.Index.Path = "" }},
		{"no output dir", func(s *Settings) { s.Output.Dir = "" }},
		{"k below one", func(s *Settings) { s.Search.K = 0 }},
		{"bad mode", func(s *Settings) { s.Search.Mode = "fuzzy" }},
		{"bad level", func(s *Settings) { s.Log.Level = "loud" }},
		{"bad format", func(s *Settings) { s.Log.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Default()
			tt.mutate(s)
			assert.Error(t, ValidateSettings(s))
		})
	}
}

func TestFactoryConfigs(t *testing.T) {
	s := Default()
	s.Generation.Model = "llama3"
	s.Generation.TimeoutSecs = 30
	s.Embedding.CacheSize = 100

	g := s.GeneratorConfig()
	assert.Equal(t, "ollama", g.Provider)
	assert.Equal(t, "llama3", g.Model)
	assert.Equal(t, 30*time.Second, g.Timeout)

	e := s.EmbedderConfig()
	assert.Equal(t, 100, e.CacheSize)
	assert.Equal(t, time.Minute, e.Timeout)
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "codescribe.yaml")
	require.NoError(t, WriteDefault(path, false))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded Settings
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	assert.Equal(t, *Default(), decoded)

	assert.ErrorIs(t, WriteDefault(path, false), ErrConfigExists)
	assert.NoError(t, WriteDefault(path, true))

	s, err := LoadSettings(path, nil)
	require.NoError(t, err)
	assert.Equal(t, Default().Pipeline, s.Pipeline)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("CODESCRIBE_TEST_DOTENV=loaded\n"), 0o644))
	t.Cleanup(func() { _ = os.Unsetenv("CODESCRIBE_TEST_DOTENV") })

	require.NoError(t, LoadDotEnv(path, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "loaded", os.Getenv("CODESCRIBE_TEST_DOTENV"))
}

func TestLogWithLogger_MasksSecrets(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	s := Default()
	s.Generation.APIKey = "sk-secret-generation"
	s.Embedding.APIKey = "sk-secret-embedding"
	LogWithLogger(s, logger)

	out := buf.String()
	assert.NotContains(t, out, "sk-secret")
	assert.Contains(t, out, masked)
	assert.Contains(t, out, "Config: index.path")

	v := SettingsLogValue(*s)
	assert.NotContains(t, v.String(), "sk-secret")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(LogSettings{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	_, err = NewLogger(LogSettings{Level: "verbose"}, &buf)
	assert.Error(t, err)
}
