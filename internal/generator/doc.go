// Package generator sends chat-style prompts to a remote language model.
//
// Two wire formats are supported: the OpenAI /chat/completions format
// (provider "openai", with a configurable base URL so local servers such as
// Ollama's /v1 endpoint work) and Ollama's native /api/chat (provider
// "ollama"). Requests are a model identifier plus an ordered list of
// system/user messages; responses are the generated text.
package generator
