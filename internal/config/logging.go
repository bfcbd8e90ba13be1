package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

const masked = "****"

// ParseLevel maps a level name onto a slog level
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("log.level must be one of debug, info, warn, error, got: %q", level)
	}
}

// NewLogger builds the process logger writing to w
func NewLogger(s LogSettings, w io.Writer) (*slog.Logger, error) {
	level, err := ParseLevel(s.Level)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: level}
	if s.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// LogWithLogger logs the resolved settings, masking credentials
func LogWithLogger(s *Settings, logger *slog.Logger) {
	ctx := context.Background()
	logger.InfoContext(ctx, "Config: generation", "value", GenerationLogValue(s.Generation))
	logger.InfoContext(ctx, "Config: embedding", "value", EmbeddingLogValue(s.Embedding))
	logger.InfoContext(ctx, "Config: pipeline.suffixes", "value", s.Pipeline.Suffixes)
	logger.InfoContext(ctx, "Config: pipeline.workers", "value", s.Pipeline.Workers)
	logger.InfoContext(ctx, "Config: pipeline.index_summaries", "value", s.Pipeline.IndexSummaries)
	if s.Pipeline.IncludeTests || s.Pipeline.IncludeVendor {
		logger.InfoContext(ctx, "Config: pipeline.include",
			"tests", s.Pipeline.IncludeTests, "vendor", s.Pipeline.IncludeVendor)
	}
	logger.InfoContext(ctx, "Config: index.path", "value", s.Index.Path)
	logger.InfoContext(ctx, "Config: output.dir", "value", s.Output.Dir)
}

// GenerationLogValue returns a slog.Value for GenerationSettings with masked data
func GenerationLogValue(g GenerationSettings) slog.Value {
	return slog.GroupValue(
		slog.String("provider", g.Provider),
		slog.String("base_url", g.BaseURL),
		slog.String("model", g.Model),
		slog.String("api_key", mask(g.APIKey)),
		slog.Int("max_attempts", g.MaxAttempts),
	)
}

// EmbeddingLogValue returns a slog.Value for EmbeddingSettings with masked data
func EmbeddingLogValue(e EmbeddingSettings) slog.Value {
	return slog.GroupValue(
		slog.String("provider", e.Provider),
		slog.String("base_url", e.BaseURL),
		slog.String("model", e.Model),
		slog.String("api_key", mask(e.APIKey)),
		slog.Int("cache_size", e.CacheSize),
		slog.Int("max_attempts", e.MaxAttempts),
	)
}

// SettingsLogValue returns a slog.Value for Settings with masked data
func SettingsLogValue(s Settings) slog.Value {
	return slog.GroupValue(
		slog.Any("generation", GenerationLogValue(s.Generation)),
		slog.Any("embedding", EmbeddingLogValue(s.Embedding)),
		slog.String("index", s.Index.Path),
		slog.String("output", s.Output.Dir),
	)
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return masked
}
