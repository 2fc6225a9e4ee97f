// Package vectorstore implements spec.md §4.5's semantic memory tier: a
// cosine-similarity index over embedded message text, persisted to SQLite,
// with recency-weighted reranking and an in-memory substring-matching
// fallback when no embedding backend is configured.
package vectorstore

import (
	"context"
	"math"
	"time"
)

// Entry is one stored semantic memory.
type Entry struct {
	ID        string
	Role      string
	Content   string
	Metadata  map[string]string
	Timestamp time.Time
	Embedding []float32
}

// Stats reports basic store health for diagnostics (get_stats in spec.md §4.5).
type Stats struct {
	TotalMemories int
	FallbackMode  bool
}

// EmbeddingProvider turns text into vectors. Grounded on the teacher's
// pkg/memory.EmbeddingProvider interface shape (ID/Model/EmbedQuery/
// EmbedBatch), narrowed to float32 since that's what gets persisted.
type EmbeddingProvider interface {
	ID() string
	Model() string
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Store is the semantic memory API spec.md §4.5 names.
type Store interface {
	AddMessage(ctx context.Context, entry Entry) error
	Search(ctx context.Context, query string, limit int, rerank bool, timeWeight float64) ([]Entry, error)
	Clear(ctx context.Context) error
	Stats(ctx context.Context) Stats
}

// recencyScore implements spec.md §4.5's exponential recency decay with a
// 7-day half-life: recency = 0.5 ^ (age_seconds / (7*86400)).
func recencyScore(at time.Time, now time.Time) float64 {
	age := now.Sub(at).Seconds()
	if age < 0 {
		age = 0
	}
	const halfLifeSeconds = 7 * 24 * 3600.0
	return math.Pow(0.5, age/halfLifeSeconds)
}
