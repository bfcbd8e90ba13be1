// Package embedder turns text into vector embeddings through pluggable providers.
//
// Providers:
//   - openai: any endpoint speaking the OpenAI /embeddings format. The base
//     URL is configurable, so Ollama's /v1, vLLM and similar servers work.
//   - jina: Jina AI, same wire format with its own defaults.
//   - ollama: Ollama's native /api/embeddings endpoint (default model
//     mxbai-embed-large).
//   - local: deterministic offline hashing of word tokens, useful for tests
//     and air-gapped runs.
//
// # Basic Usage
//
//	emb, err := embedder.New(embedder.Config{Provider: "ollama"})
//	if err != nil {
//	    return err
//	}
//	defer emb.Close()
//
//	result, err := emb.Embed(ctx, embedder.EmbeddingRequest{Text: summary})
//
// # Caching
//
// An LRU cache keyed by the SHA-256 of the text can be layered on top with
// Config.CacheSize. It is off by default.
//
// # Retries
//
// Calls are made once. Config.MaxAttempts > 1 enables exponential backoff
// for transport failures, 429 and 5xx responses.
package embedder
