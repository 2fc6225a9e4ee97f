// Package anthropicprovider implements llm.Provider over Anthropic's Claude
// API. Grounded on pkg/connector/provider_anthropic.go, trimmed to plain
// text chat completion (no tools, no streaming).
package anthropicprovider

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"

	"github.com/Saguny/projectghost/internal/llm"
)

// Provider implements llm.Provider for Anthropic's Messages API.
type Provider struct {
	client anthropic.Client
	log    zerolog.Logger
}

// New constructs a Provider. baseURL overrides the default API endpoint when
// non-empty (e.g. a proxy).
func New(apiKey, baseURL string, log zerolog.Logger) *Provider {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Provider{
		client: anthropic.NewClient(opts...),
		log:    log.With().Str("provider", "anthropic").Logger(),
	}
}

func (p *Provider) Name() string { return "anthropic" }

// Generate sends params.Messages as a single non-streaming Messages.New
// call. Anthropic requires system content out-of-band from the turn list,
// so params.SystemPrompt and every RoleSystem message, wherever it appears
// in the list, are hoisted into the System field.
func (p *Provider) Generate(ctx context.Context, params llm.Params) (string, error) {
	messageParams := anthropic.MessageNewParams{
		Model:     anthropic.Model(params.Model),
		Messages:  toAnthropicMessages(params.Messages),
		MaxTokens: int64(maxTokensOr(params.MaxTokens, 1024)),
	}

	system := params.SystemPrompt
	for _, m := range params.Messages {
		if m.Role == llm.RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
		}
	}
	if system != "" {
		messageParams.System = []anthropic.TextBlockParam{{Text: system}}
	}

	if params.Temperature > 0 {
		messageParams.Temperature = anthropic.Float(params.Temperature)
	}
	if len(params.StopSequence) > 0 {
		messageParams.StopSequences = params.StopSequence
	}

	resp, err := p.client.Messages.New(ctx, messageParams)
	if err != nil {
		return "", fmt.Errorf("anthropic generation failed: %w", err)
	}

	var out strings.Builder
	for _, block := range resp.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			out.WriteString(tb.Text)
		}
	}
	return out.String(), nil
}

// toAnthropicMessages drops RoleSystem turns (hoisted into System above) and
// maps the remaining user/assistant turns to plain text blocks.
func toAnthropicMessages(messages []llm.Message) []anthropic.MessageParam {
	var out []anthropic.MessageParam
	for _, m := range messages {
		switch m.Role {
		case llm.RoleUser:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case llm.RoleAssistant:
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	return out
}

func maxTokensOr(n, fallback int) int {
	if n <= 0 {
		return fallback
	}
	return n
}
