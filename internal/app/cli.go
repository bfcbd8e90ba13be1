package app

import "github.com/spf13/pflag"

// RegisterFlags registers the flags shared by every command
func RegisterFlags(flags *pflag.FlagSet) {
	flags.StringP("config", "c", "", "Config file (default ./codescribe.yaml)")
	flags.String("generation-provider", "", "Text generation provider: openai or ollama")
	flags.String("generation-model", "", "Text generation model")
	flags.String("generation-base-url", "", "Text generation endpoint")
	flags.String("embedding-provider", "", "Embedding provider: openai, ollama, jina or local")
	flags.String("embedding-model", "", "Embedding model")
	flags.String("embedding-base-url", "", "Embedding endpoint")
	flags.String("index", "", "Embedding index directory")
	flags.String("log-level", "", "Log level: debug, info, warn or error")
	flags.String("log-format", "", "Log format: text or json")
}

// RegisterRunFlags registers the flags of the run command
func RegisterRunFlags(flags *pflag.FlagSet) {
	flags.StringP("output", "o", "", "Directory for the generated artifacts")
	flags.IntP("workers", "w", 0, "Concurrent extraction and generation calls")
	flags.StringSlice("suffixes", nil, "File suffixes to document (comma-separated)")
	flags.Bool("include-tests", false, "Document _test files")
	flags.Bool("include-vendor", false, "Descend into vendor directories")
	flags.Bool("no-index", false, "Do not store summaries in the embedding index")
}

// RegisterSearchFlags registers the flags of the search command
func RegisterSearchFlags(flags *pflag.FlagSet) {
	flags.IntP("k", "k", 0, "Number of results")
	flags.StringP("mode", "m", "", "Search mode: vector, keyword or hybrid")
}

// RegisterServeFlags registers the flags of the serve command
func RegisterServeFlags(flags *pflag.FlagSet) {
	flags.StringP("output", "o", "", "Default artifact directory, relative to each documented project")
}
