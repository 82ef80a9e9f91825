// Package llm provides the text-generation collaborators used by NPC stages.
package llm

import (
	"context"
	"strings"
)

// Generator produces text for a prompt.
//
// Implementations fail with *errors.ProviderError for permanent failures
// and *errors.TimeoutError or *errors.RateLimitError for transient ones, so
// Retrying can tell them apart.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// GeneratorFunc adapts a plain function to the Generator interface.
type GeneratorFunc func(ctx context.Context, req Request) (string, error)

// Generate calls f(ctx, req).
func (f GeneratorFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Request configures a generation call.
type Request struct {
	// System is the system instruction.
	System string `json:"system,omitempty"`

	// Messages is the conversation, oldest first.
	Messages []Message `json:"messages"`

	// Model overrides the generator's default model.
	Model string `json:"model,omitempty"`

	// Temperature overrides the generator's default when non-nil.
	Temperature *float64 `json:"temperature,omitempty"`
}

// Message is a conversation turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Role identifies the message sender.
type Role string

// Standard message roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
	RoleSystem    Role = "system"
)

// Prompt builds a request with a system instruction and a single user message.
func Prompt(system, user string) Request {
	return Request{
		System:   system,
		Messages: []Message{{Role: RoleUser, Content: user}},
	}
}

// LastUser returns the content of the final user message, or "".
func (r Request) LastUser() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == RoleUser {
			return r.Messages[i].Content
		}
	}
	return ""
}

// Transcript flattens the messages into "Role: content" lines.
func (r Request) Transcript() string {
	var b strings.Builder
	for _, m := range r.Messages {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(string(m.Role))
		b.WriteString(": ")
		b.WriteString(m.Content)
	}
	return b.String()
}
