// Package openaiprovider implements llm.Provider over the OpenAI Chat
// Completions API. Grounded on pkg/connector/provider_openai.go's
// generateChatCompletions fallback path, trimmed to plain text (no tools,
// no multimodal content, no Responses API).
package openaiprovider

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/rs/zerolog"

	"github.com/Saguny/projectghost/internal/llm"
)

// Provider implements llm.Provider for OpenAI's Chat Completions API.
type Provider struct {
	client openai.Client
	log    zerolog.Logger
}

// New constructs a Provider. baseURL overrides the default API endpoint when
// non-empty (e.g. an OpenAI-compatible proxy).
func New(apiKey, baseURL string, log zerolog.Logger) *Provider {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Provider{
		client: openai.NewClient(opts...),
		log:    log.With().Str("provider", "openai").Logger(),
	}
}

func (p *Provider) Name() string { return "openai" }

func (p *Provider) Generate(ctx context.Context, params llm.Params) (string, error) {
	messages := toChatCompletionMessages(params)
	if len(messages) == 0 {
		return "", fmt.Errorf("openaiprovider: no messages to send")
	}

	req := openai.ChatCompletionNewParams{
		Model:    params.Model,
		Messages: messages,
	}
	if params.MaxTokens > 0 {
		req.MaxCompletionTokens = openai.Int(int64(params.MaxTokens))
	}
	if params.Temperature > 0 {
		req.Temperature = openai.Float(params.Temperature)
	}

	resp, err := p.client.Chat.Completions.New(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func toChatCompletionMessages(params llm.Params) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(params.Messages)+1)
	if params.SystemPrompt != "" {
		result = append(result, openai.SystemMessage(params.SystemPrompt))
	}
	for _, m := range params.Messages {
		switch m.Role {
		case llm.RoleSystem:
			result = append(result, openai.SystemMessage(m.Content))
		case llm.RoleUser:
			result = append(result, openai.UserMessage(m.Content))
		case llm.RoleAssistant:
			result = append(result, openai.AssistantMessage(m.Content))
		}
	}
	return result
}
