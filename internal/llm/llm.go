// Package llm defines the provider-agnostic text-generation interface the
// Cognitive Core's Think and Speak stages call through. Grounded on
// pkg/connector/provider.go's AIProvider shape, narrowed to plain text chat
// completion: no tools, no streaming, no multimodal content, since neither
// stage of spec.md §4.7 needs them.
package llm

import "context"

// Role identifies the sender of a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single turn in a chat-completion request.
type Message struct {
	Role    Role
	Content string
}

// Params configures one generation call.
type Params struct {
	Model        string
	Messages     []Message
	SystemPrompt string
	Temperature  float64
	MaxTokens    int
	StopSequence []string
	// JSONMode marks a request whose output is parsed as a JSON object.
	// Neither provider in this module reads it; JSON output rests on the
	// caller's prompt instructions.
	JSONMode bool
}

// Provider generates a single completion from a prompt.
type Provider interface {
	// Name identifies the provider for logging ("anthropic", "openai").
	Name() string
	Generate(ctx context.Context, params Params) (string, error)
}
