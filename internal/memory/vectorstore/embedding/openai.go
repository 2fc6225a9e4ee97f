// Package embedding is the default vectorstore.EmbeddingProvider: OpenAI's
// embeddings endpoint. Grounded on
// beeper-ai-bridge/pkg/memory/embedding/openai.go, narrowed to float32
// (what the SQLite store persists) and without that file's pluggable
// embedBatch/embedQuery closures, since this module has only one backend.
package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "text-embedding-3-small"
)

// OpenAIProvider implements vectorstore.EmbeddingProvider over OpenAI's
// /embeddings endpoint.
type OpenAIProvider struct {
	client openai.Client
	model  string
}

// New constructs an OpenAIProvider. baseURL overrides the default endpoint
// when non-empty (e.g. an OpenAI-compatible proxy).
func New(apiKey, baseURL, model string) (*OpenAIProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("embeddings require an api key")
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithBaseURL(baseURL)}
	return &OpenAIProvider{client: openai.NewClient(opts...), model: model}, nil
}

// ID implements vectorstore.EmbeddingProvider.
func (p *OpenAIProvider) ID() string { return "openai" }

// Model implements vectorstore.EmbeddingProvider.
func (p *OpenAIProvider) Model() string { return p.model }

// EmbedQuery implements vectorstore.EmbeddingProvider.
func (p *OpenAIProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	out, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

// EmbedBatch implements vectorstore.EmbeddingProvider.
func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(p.model),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	}
	resp, err := p.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("embeddings request: %w", err)
	}
	out := make([][]float32, 0, len(resp.Data))
	for _, entry := range resp.Data {
		vec := make([]float32, len(entry.Embedding))
		for i, v := range entry.Embedding {
			vec[i] = float32(v)
		}
		out = append(out, vec)
	}
	return out, nil
}
