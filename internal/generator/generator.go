package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Common errors
var (
	ErrNoMessages       = errors.New("at least one message is required")
	ErrInvalidRole      = errors.New("role must be system or user")
	ErrEmptyContent     = errors.New("message content cannot be empty")
	ErrProviderFailed   = errors.New("generation provider failed")
	ErrEmptyResponse    = errors.New("provider returned no content")
	ErrUnsupportedModel = errors.New("unsupported provider")
	ErrNoProviderKey    = errors.New("no generation provider key configured")
)

// Message roles
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is one entry of a chat-style prompt
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request asks the backend to complete a conversation
type Request struct {
	Model    string // Optional: override the provider's model
	Messages []Message
}

// Response carries the generated text
type Response struct {
	Content string
	Model   string
}

// Generator produces text from a prompt through a remote language model
type Generator interface {
	// Generate completes the request. There is no retry unless the provider
	// was built with more than one attempt.
	Generate(ctx context.Context, req Request) (*Response, error)

	// Provider returns the provider name
	Provider() string

	// Model returns the default model identifier
	Model() string

	// Close releases any resources held by the generator
	Close() error
}

// ValidateRequest checks roles and content of every message
func ValidateRequest(req Request) error {
	if len(req.Messages) == 0 {
		return ErrNoMessages
	}

	for i, m := range req.Messages {
		if m.Role != RoleSystem && m.Role != RoleUser {
			return fmt.Errorf("%w: message %d has role %q", ErrInvalidRole, i, m.Role)
		}
		if strings.TrimSpace(m.Content) == "" {
			return fmt.Errorf("%w: message %d", ErrEmptyContent, i)
		}
	}

	return nil
}

// Prompt builds the common system + user request
func Prompt(system, user string) Request {
	var msgs []Message
	if strings.TrimSpace(system) != "" {
		msgs = append(msgs, Message{Role: RoleSystem, Content: system})
	}
	msgs = append(msgs, Message{Role: RoleUser, Content: user})
	return Request{Messages: msgs}
}
