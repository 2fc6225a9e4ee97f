package vectorstore

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/xid"
)

// fallbackCap is the soft size limit before FIFO eviction kicks in, per
// spec.md §4.5's "e.g. 1000 entries" fallback description.
const fallbackCap = 1000

// FallbackStore is the in-memory substring-matching degrade path used when
// no embedding backend is available, grounded on
// original_source/ghost/memory/vector_store.py's "_fallback_mode" branch.
// It preserves Store's API shape so callers don't need to special-case it.
type FallbackStore struct {
	mu      sync.Mutex
	entries []Entry
}

// NewFallbackStore constructs an empty fallback store.
func NewFallbackStore() *FallbackStore {
	return &FallbackStore{}
}

// AddMessage appends entry, evicting the oldest entry once the soft cap is
// exceeded (FIFO).
func (f *FallbackStore) AddMessage(ctx context.Context, entry Entry) error {
	if entry.ID == "" {
		entry.ID = xid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	if len(f.entries) > fallbackCap {
		f.entries = f.entries[len(f.entries)-fallbackCap:]
	}
	return nil
}

// Search returns entries whose content contains query as a case-insensitive
// substring, most recent first, up to limit. rerank/timeWeight are accepted
// for interface compatibility but have no effect in substring mode.
func (f *FallbackStore) Search(ctx context.Context, query string, limit int, rerank bool, timeWeight float64) ([]Entry, error) {
	if limit <= 0 {
		limit = 5
	}
	needle := strings.ToLower(query)
	f.mu.Lock()
	defer f.mu.Unlock()

	var matches []Entry
	for i := len(f.entries) - 1; i >= 0; i-- {
		if needle == "" || strings.Contains(strings.ToLower(f.entries[i].Content), needle) {
			matches = append(matches, f.entries[i])
			if len(matches) == limit {
				break
			}
		}
	}
	return matches, nil
}

// Clear removes every stored entry.
func (f *FallbackStore) Clear(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = nil
	return nil
}

// Stats reports the total stored entry count and marks fallback mode.
func (f *FallbackStore) Stats(ctx context.Context) Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Stats{TotalMemories: len(f.entries), FallbackMode: true}
}
