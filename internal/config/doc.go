// Package config resolves codescribe settings from defaults, a YAML file,
// CODESCRIBE_* environment variables and command-line flags, in increasing
// order of priority.
//
// Nested keys map to environment variables by upper-casing and replacing
// dots with underscores: embedding.api_key is CODESCRIBE_EMBEDDING_API_KEY.
// A .env file is loaded into the environment before settings are resolved.
package config
