package llm

import (
	"context"
	"errors"
)

// Roles understood by chat-style reasoning services.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is one chat message sent to the reasoning service.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client abstracts the reasoning service used for document comparison.
// Complete returns the raw text of the first answer.
type Client interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// System returns a system message.
func System(content string) Message { return Message{Role: RoleSystem, Content: content} }

// User returns a user message.
func User(content string) Message { return Message{Role: RoleUser, Content: content} }

// ErrNotConfigured is returned by the placeholder client.
var ErrNotConfigured = errors.New("reasoning service not configured")

// PlaceholderClient is used when no reasoning service credentials are configured.
type PlaceholderClient struct{}

// Complete returns ErrNotConfigured.
func (PlaceholderClient) Complete(ctx context.Context, messages []Message) (string, error) {
	_ = ctx
	_ = messages
	return "", ErrNotConfigured
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, messages []Message) (string, error)

// Complete calls f.
func (f ClientFunc) Complete(ctx context.Context, messages []Message) (string, error) {
	return f(ctx, messages)
}
