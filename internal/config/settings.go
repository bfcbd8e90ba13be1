package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/dshills/codescribe/internal/embedder"
	"github.com/dshills/codescribe/internal/generator"
	"github.com/dshills/codescribe/internal/searcher"
	"github.com/dshills/codescribe/internal/synthesizer"
)

// EnvPrefix prefixes every environment variable read by LoadSettings
const EnvPrefix = "CODESCRIBE"

// DefaultConfigName is looked up in the working directory when no config file is given
const DefaultConfigName = "codescribe"

var ErrConfigExists = errors.New("config file already exists")

// GenerationSettings configures the text-generation backend
type GenerationSettings struct {
	Provider          string  `mapstructure:"provider" yaml:"provider"`
	BaseURL           string  `mapstructure:"base_url" yaml:"base_url"`
	Model             string  `mapstructure:"model" yaml:"model"`
	APIKey            string  `mapstructure:"api_key" yaml:"api_key"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	MaxAttempts       int     `mapstructure:"max_attempts" yaml:"max_attempts"`
	TimeoutSecs       int     `mapstructure:"timeout_secs" yaml:"timeout_secs"`
}

// EmbeddingSettings configures the embedding backend
type EmbeddingSettings struct {
	Provider          string  `mapstructure:"provider" yaml:"provider"`
	BaseURL           string  `mapstructure:"base_url" yaml:"base_url"`
	Model             string  `mapstructure:"model" yaml:"model"`
	APIKey            string  `mapstructure:"api_key" yaml:"api_key"`
	CacheSize         int     `mapstructure:"cache_size" yaml:"cache_size"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	MaxAttempts       int     `mapstructure:"max_attempts" yaml:"max_attempts"`
	TimeoutSecs       int     `mapstructure:"timeout_secs" yaml:"timeout_secs"`
}

// PromptSettings are the system roles of the generation calls
type PromptSettings struct {
	Overview     string `mapstructure:"overview" yaml:"overview"`
	Unit         string `mapstructure:"unit" yaml:"unit"`
	Interactions string `mapstructure:"interactions" yaml:"interactions"`
}

// PipelineSettings configures discovery and concurrency
type PipelineSettings struct {
	Suffixes       []string       `mapstructure:"suffixes" yaml:"suffixes"`
	Workers        int            `mapstructure:"workers" yaml:"workers"`
	IncludeTests   bool           `mapstructure:"include_tests" yaml:"include_tests"`
	IncludeVendor  bool           `mapstructure:"include_vendor" yaml:"include_vendor"`
	IndexSummaries bool           `mapstructure:"index_summaries" yaml:"index_summaries"`
	Prompts        PromptSettings `mapstructure:"prompts" yaml:"prompts"`
}

// IndexSettings locates the embedding index
type IndexSettings struct {
	Path    string `mapstructure:"path" yaml:"path"`
	Keyword bool   `mapstructure:"keyword" yaml:"keyword"`
}

// SearchSettings are the defaults of search requests
type SearchSettings struct {
	K         int    `mapstructure:"k" yaml:"k"`
	Mode      string `mapstructure:"mode" yaml:"mode"`
	CacheSize int    `mapstructure:"cache_size" yaml:"cache_size"`
}

// OutputSettings locates the report artifacts
type OutputSettings struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// LogSettings configures the process logger
type LogSettings struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Settings application settings
type Settings struct {
	Generation GenerationSettings `mapstructure:"generation" yaml:"generation"`
	Embedding  EmbeddingSettings  `mapstructure:"embedding" yaml:"embedding"`
	Pipeline   PipelineSettings   `mapstructure:"pipeline" yaml:"pipeline"`
	Index      IndexSettings      `mapstructure:"index" yaml:"index"`
	Search     SearchSettings     `mapstructure:"search" yaml:"search"`
	Output     OutputSettings     `mapstructure:"output" yaml:"output"`
	Log        LogSettings        `mapstructure:"log" yaml:"log"`
}

// Default returns the built-in settings
func Default() *Settings {
	return &Settings{
		Generation: GenerationSettings{
			Provider:    generator.ProviderOllama,
			MaxAttempts: 1,
			TimeoutSecs: 300,
		},
		Embedding: EmbeddingSettings{
			Provider:    embedder.ProviderOllama,
			MaxAttempts: 1,
			TimeoutSecs: 60,
		},
		Pipeline: PipelineSettings{
			Suffixes:       []string{".go"},
			Workers:        4,
			IndexSummaries: true,
			Prompts: PromptSettings{
				Overview:     synthesizer.DefaultOverviewRole,
				Unit:         synthesizer.DefaultUnitRole,
				Interactions: synthesizer.DefaultInteractionsRole,
			},
		},
		Index:  IndexSettings{Path: ".codescribe", Keyword: true},
		Search: SearchSettings{K: searcher.DefaultK, Mode: string(searcher.SearchModeVector)},
		Output: OutputSettings{Dir: "docs"},
		Log:    LogSettings{Level: "info", Format: "text"},
	}
}

// flagKeys maps CLI flag names onto settings keys
var flagKeys = map[string]string{
	"generation-provider": "generation.provider",
	"generation-model":    "generation.model",
	"generation-base-url": "generation.base_url",
	"embedding-provider":  "embedding.provider",
	"embedding-model":     "embedding.model",
	"embedding-base-url":  "embedding.base_url",
	"workers":             "pipeline.workers",
	"suffixes":            "pipeline.suffixes",
	"include-tests":       "pipeline.include_tests",
	"include-vendor":      "pipeline.include_vendor",
	"index":               "index.path",
	"output":              "output.dir",
	"log-level":           "log.level",
	"log-format":          "log.format",
}

// LoadDotEnv loads variables from .env files into the process environment.
// Missing files are ignored; variables already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// LoadSettings resolves settings.
// Priority: CLI flags > environment variables > config file > defaults.
// configFile may be empty, in which case ./codescribe.yaml is used if present.
func LoadSettings(configFile string, flags *pflag.FlagSet) (*Settings, error) {
	v := viper.New()
	setDefaults(v, Default())

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	// Environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind CLI flags if provided (highest priority)
	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				_ = v.BindPFlag(key, f)
			}
		}
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}

	// Suffixes may arrive from the environment as one comma-separated string
	if env := os.Getenv(EnvPrefix + "_PIPELINE_SUFFIXES"); env != "" && (flags == nil || !flags.Changed("suffixes")) {
		settings.Pipeline.Suffixes = strings.Split(env, ",")
	}
	settings.Pipeline.Suffixes = normalizeSuffixes(settings.Pipeline.Suffixes)

	settings.Index.Path = expandHomeDir(settings.Index.Path)
	settings.Output.Dir = expandHomeDir(settings.Output.Dir)

	return &settings, nil
}

func setDefaults(v *viper.Viper, d *Settings) {
	v.SetDefault("generation.provider", d.Generation.Provider)
	v.SetDefault("generation.base_url", d.Generation.BaseURL)
	v.SetDefault("generation.model", d.Generation.Model)
	v.SetDefault("generation.api_key", d.Generation.APIKey)
	v.SetDefault("generation.requests_per_second", d.Generation.RequestsPerSecond)
	v.SetDefault("generation.max_attempts", d.Generation.MaxAttempts)
	v.SetDefault("generation.timeout_secs", d.Generation.TimeoutSecs)

	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.base_url", d.Embedding.BaseURL)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.api_key", d.Embedding.APIKey)
	v.SetDefault("embedding.cache_size", d.Embedding.CacheSize)
	v.SetDefault("embedding.requests_per_second", d.Embedding.RequestsPerSecond)
	v.SetDefault("embedding.max_attempts", d.Embedding.MaxAttempts)
	v.SetDefault("embedding.timeout_secs", d.Embedding.TimeoutSecs)

	v.SetDefault("pipeline.suffixes", d.Pipeline.Suffixes)
	v.SetDefault("pipeline.workers", d.Pipeline.Workers)
	v.SetDefault("pipeline.include_tests", d.Pipeline.IncludeTests)
	v.SetDefault("pipeline.include_vendor", d.Pipeline.IncludeVendor)
	v.SetDefault("pipeline.index_summaries", d.Pipeline.IndexSummaries)
	v.SetDefault("pipeline.prompts.overview", d.Pipeline.Prompts.Overview)
	v.SetDefault("pipeline.prompts.unit", d.Pipeline.Prompts.Unit)
	v.SetDefault("pipeline.prompts.interactions", d.Pipeline.Prompts.Interactions)

	v.SetDefault("index.path", d.Index.Path)
	v.SetDefault("index.keyword", d.Index.Keyword)
	v.SetDefault("search.k", d.Search.K)
	v.SetDefault("search.mode", d.Search.Mode)
	v.SetDefault("search.cache_size", d.Search.CacheSize)
	v.SetDefault("output.dir", d.Output.Dir)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// ValidateSettings checks that the settings describe a usable configuration
func ValidateSettings(s *Settings) error {
	if !slices.Contains(generator.Providers(), s.Generation.Provider) {
		return fmt.Errorf("generation.provider must be one of %v, got: %q", generator.Providers(), s.Generation.Provider)
	}
	if !slices.Contains(embedder.Providers(), s.Embedding.Provider) {
		return fmt.Errorf("embedding.provider must be one of %v, got: %q", embedder.Providers(), s.Embedding.Provider)
	}

	if s.Generation.RequestsPerSecond < 0 || s.Embedding.RequestsPerSecond < 0 {
		return errors.New("requests_per_second cannot be negative")
	}
	if s.Generation.MaxAttempts < 1 || s.Embedding.MaxAttempts < 1 {
		return errors.New("max_attempts must be at least 1")
	}
	if s.Generation.TimeoutSecs < 0 || s.Embedding.TimeoutSecs < 0 {
		return errors.New("timeout_secs cannot be negative")
	}
	if s.Embedding.CacheSize < 0 || s.Search.CacheSize < 0 {
		return errors.New("cache_size cannot be negative")
	}

	if s.Pipeline.Workers <= 0 {
		return errors.New("pipeline.workers must be positive")
	}
	if len(s.Pipeline.Suffixes) == 0 {
		return errors.New("pipeline.suffixes cannot be empty")
	}

	if s.Index.Path == "" {
		return errors.New("index.path cannot be empty")
	}
	if s.Output.Dir == "" {
		return errors.New("output.dir cannot be empty")
	}

	if s.Search.K < 1 {
		return errors.New("search.k must be at least 1")
	}
	if _, err := searcher.ParseMode(s.Search.Mode); err != nil {
		return fmt.Errorf("search.mode: %w", err)
	}

	if _, err := ParseLevel(s.Log.Level); err != nil {
		return err
	}
	switch s.Log.Format {
	case "text", "json":
	default:
		return errors.New("log.format must be 'text' or 'json', got: " + s.Log.Format)
	}

	return nil
}

// GeneratorConfig maps settings onto the generator factory
func (s *Settings) GeneratorConfig() generator.Config {
	g := s.Generation
	return generator.Config{
		Provider:          g.Provider,
		BaseURL:           g.BaseURL,
		Model:             g.Model,
		APIKey:            g.APIKey,
		RequestsPerSecond: g.RequestsPerSecond,
		MaxAttempts:       g.MaxAttempts,
		Timeout:           time.Duration(g.TimeoutSecs) * time.Second,
	}
}

// EmbedderConfig maps settings onto the embedder factory
func (s *Settings) EmbedderConfig() embedder.Config {
	e := s.Embedding
	return embedder.Config{
		Provider:          e.Provider,
		BaseURL:           e.BaseURL,
		Model:             e.Model,
		APIKey:            e.APIKey,
		CacheSize:         e.CacheSize,
		RequestsPerSecond: e.RequestsPerSecond,
		MaxAttempts:       e.MaxAttempts,
		Timeout:           time.Duration(e.TimeoutSecs) * time.Second,
	}
}

// WriteDefault writes the default settings as YAML to path
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrConfigExists, path)
		}
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("encode defaults: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o600)
}

// normalizeSuffixes trims entries, drops empty ones and adds a leading dot
func normalizeSuffixes(in []string) []string {
	var out []string
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if !strings.HasPrefix(s, ".") && !strings.Contains(s, "_") {
			s = "." + s
		}
		out = append(out, s)
	}
	return out
}

// expandHomeDir expands ~ to the user's home directory
func expandHomeDir(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home
	}
	return path
}
