package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"go.mau.fi/util/dbutil"
)

// SQLiteStore persists embedded entries to a SQLite table and reranks
// candidates by cosine similarity blended with recency, per spec.md §4.5.
// Grounded on pkg/connector/memory_vector.go's blob-encoding pattern, adapted
// away from its vec0-extension loading: similarity is computed in Go over
// decoded float32 slices rather than delegated to a native vector index, so
// this needs no SQLite vector extension (the mattn/go-sqlite3 driver itself
// is cgo-based).
type SQLiteStore struct {
	log      zerolog.Logger
	db       *dbutil.Database
	embedder EmbeddingProvider
}

// NewSQLiteStore opens (or creates) the semantic-memory database at path.
func NewSQLiteStore(log zerolog.Logger, path string, embedder EmbeddingProvider) (*SQLiteStore, error) {
	raw, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: open sqlite: %w", err)
	}
	db, err := dbutil.NewWithDB(raw, "sqlite3")
	if err != nil {
		return nil, fmt.Errorf("vectorstore: wrap db: %w", err)
	}
	s := &SQLiteStore{
		log:      log.With().Str("component", "vectorstore").Logger(),
		db:       db,
		embedder: embedder,
	}
	if err := s.ensureSchema(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) ensureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS semantic_memories (
			id         TEXT PRIMARY KEY,
			role       TEXT NOT NULL,
			content    TEXT NOT NULL,
			metadata   TEXT NOT NULL DEFAULT '{}',
			timestamp  TEXT NOT NULL,
			embedding  BLOB NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("vectorstore: create schema: %w", err)
	}
	return nil
}

// AddMessage embeds and persists entry. If entry.Embedding is already set it
// is used as-is (the caller has pre-scored importance and decided to admit
// the message); otherwise the configured EmbeddingProvider is used.
func (s *SQLiteStore) AddMessage(ctx context.Context, entry Entry) error {
	if entry.ID == "" {
		entry.ID = xid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if len(entry.Embedding) == 0 {
		if s.embedder == nil {
			return fmt.Errorf("vectorstore: no embedding provider configured and entry has no embedding")
		}
		vec, err := s.embedder.EmbedQuery(ctx, entry.Content)
		if err != nil {
			return fmt.Errorf("vectorstore: embed: %w", err)
		}
		entry.Embedding = vec
	}

	metaJSON, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("vectorstore: marshal metadata: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO semantic_memories (id, role, content, metadata, timestamp, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET content=excluded.content, metadata=excluded.metadata
	`, entry.ID, entry.Role, entry.Content, string(metaJSON), entry.Timestamp.Format(time.RFC3339Nano), vectorToBlob(entry.Embedding))
	if err != nil {
		return fmt.Errorf("vectorstore: insert: %w", err)
	}
	return nil
}

// Search retrieves 3*limit candidates by cosine similarity, then (if rerank)
// blends similarity with recency per spec.md §4.5's formula before
// returning the top limit.
func (s *SQLiteStore) Search(ctx context.Context, query string, limit int, rerank bool, timeWeight float64) ([]Entry, error) {
	if limit <= 0 {
		limit = 5
	}
	if s.embedder == nil {
		return nil, fmt.Errorf("vectorstore: no embedding provider configured")
	}
	queryVec, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: embed query: %w", err)
	}

	rows, err := s.db.Query(ctx, `SELECT id, role, content, metadata, timestamp, embedding FROM semantic_memories`)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: query: %w", err)
	}
	defer rows.Close()

	type scored struct {
		entry Entry
		score float64
	}
	var candidates []scored
	now := time.Now().UTC()

	for rows.Next() {
		var e Entry
		var metaJSON, ts string
		var blob []byte
		if err := rows.Scan(&e.ID, &e.Role, &e.Content, &metaJSON, &ts, &blob); err != nil {
			return nil, fmt.Errorf("vectorstore: scan: %w", err)
		}
		_ = json.Unmarshal([]byte(metaJSON), &e.Metadata)
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			e.Timestamp = parsed
		}
		e.Embedding = blobToVector(blob)

		similarity := cosineSimilarity(queryVec, e.Embedding)
		candidates = append(candidates, scored{entry: e, score: similarity})
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

	candidateCount := limit * 3
	if candidateCount > len(candidates) {
		candidateCount = len(candidates)
	}
	candidates = candidates[:candidateCount]

	if rerank {
		for i := range candidates {
			recency := recencyScore(candidates[i].entry.Timestamp, now)
			candidates[i].score = (1-timeWeight)*candidates[i].score + timeWeight*recency
		}
		sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	}

	if limit > len(candidates) {
		limit = len(candidates)
	}
	out := make([]Entry, limit)
	for i := 0; i < limit; i++ {
		out[i] = candidates[i].entry
	}
	return out, nil
}

// Clear removes every stored entry.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DELETE FROM semantic_memories`)
	return err
}

// Stats reports the total stored entry count.
func (s *SQLiteStore) Stats(ctx context.Context) Stats {
	row := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM semantic_memories`)
	var count int
	if err := row.Scan(&count); err != nil {
		s.log.Error().Err(err).Msg("failed to read vector store stats")
		return Stats{}
	}
	return Stats{TotalMemories: count}
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func vectorToBlob(values []float32) []byte {
	buf := make([]byte, 0, len(values)*4)
	for _, v := range values {
		bits := math.Float32bits(v)
		buf = append(buf, byte(bits), byte(bits>>8), byte(bits>>16), byte(bits>>24))
	}
	return buf
}

func blobToVector(blob []byte) []float32 {
	n := len(blob) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		bits := uint32(blob[i*4]) | uint32(blob[i*4+1])<<8 | uint32(blob[i*4+2])<<16 | uint32(blob[i*4+3])<<24
		out[i] = math.Float32frombits(bits)
	}
	return out
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
