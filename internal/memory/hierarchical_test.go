package memory

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Saguny/projectghost/internal/memory/vectorstore"
)

func newTestHierarchicalMemory(t *testing.T, opts ...Option) (*HierarchicalMemory, *vectorstore.FallbackStore) {
	t.Helper()
	semantic := vectorstore.NewFallbackStore()
	episodic := NewEpisodicBuffer(50)
	h := New(zerolog.Nop(), episodic, semantic, opts...)
	return h, semantic
}

func TestAddMessageFillsWorkingAndEpisodicTiers(t *testing.T) {
	ctx := context.Background()
	h, _ := newTestHierarchicalMemory(t)

	for i := 0; i < 3; i++ {
		if err := h.AddMessage(ctx, Message{Role: "user", Content: "hello there", Timestamp: time.Now()}); err != nil {
			t.Fatalf("AddMessage: %v", err)
		}
	}

	c, err := h.GetContext(ctx, "", true)
	if err != nil {
		t.Fatalf("GetContext: %v", err)
	}
	if len(c.Working) != 3 {
		t.Fatalf("expected 3 working messages, got %d", len(c.Working))
	}
	if len(c.Episodic) != 3 {
		t.Fatalf("expected 3 episodic messages, got %d", len(c.Episodic))
	}
}

func TestWorkingMemoryCapsAtTen(t *testing.T) {
	ctx := context.Background()
	h, _ := newTestHierarchicalMemory(t)

	for i := 0; i < 15; i++ {
		h.AddMessage(ctx, Message{Role: "user", Content: "message", Timestamp: time.Now()})
	}

	c, _ := h.GetContext(ctx, "", true)
	if len(c.Working) != workingMemoryCap {
		t.Fatalf("expected working memory capped at %d, got %d", workingMemoryCap, len(c.Working))
	}
}

func TestLowImportanceMessageSkipsSemanticAdmission(t *testing.T) {
	ctx := context.Background()
	h, semantic := newTestHierarchicalMemory(t, WithImportanceGate(0.9))

	if err := h.AddMessage(ctx, Message{Role: "user", Content: "ok", Timestamp: time.Now()}); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}

	if stats := semantic.Stats(ctx); stats.TotalMemories != 0 {
		t.Fatalf("expected low-importance message to be skipped, got %d stored", stats.TotalMemories)
	}
}

func TestHighImportanceMessageReachesSemanticMemory(t *testing.T) {
	ctx := context.Background()
	h, semantic := newTestHierarchicalMemory(t, WithImportanceGate(0.1))

	msg := Message{
		Role:      "user",
		Content:   "My name is Alex and I live in Denver, remember that please?",
		Timestamp: time.Now(),
	}
	if err := h.AddMessage(ctx, msg); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}

	if stats := semantic.Stats(ctx); stats.TotalMemories != 1 {
		t.Fatalf("expected message to be admitted to semantic memory, got %d stored", stats.TotalMemories)
	}
}

func TestExplicitImportanceMetadataOverridesScorer(t *testing.T) {
	ctx := context.Background()
	h, semantic := newTestHierarchicalMemory(t, WithImportanceGate(0.95))

	msg := Message{
		Role:      "system",
		Content:   "short",
		Timestamp: time.Now(),
		Metadata:  map[string]any{"importance": 0.99},
	}
	if err := h.AddMessage(ctx, msg); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}
	if stats := semantic.Stats(ctx); stats.TotalMemories != 1 {
		t.Fatalf("expected metadata-supplied importance to override scorer and admit message")
	}
}

func TestConsolidationTriggersAtThresholdAndPreservesRecent(t *testing.T) {
	ctx := context.Background()
	h, semantic := newTestHierarchicalMemory(t, WithConsolidationThreshold(5), WithImportanceGate(1.1))

	for i := 0; i < 5; i++ {
		h.AddMessage(ctx, Message{Role: "user", Content: "talking about vacation plans in mountains", Timestamp: time.Now()})
	}

	if h.episodic.Size() != 10 && h.episodic.Size() > 5 {
		t.Fatalf("expected episodic buffer to be trimmed to at most 10 after consolidation, got %d", h.episodic.Size())
	}

	stats := semantic.Stats(ctx)
	if stats.TotalMemories != 1 {
		t.Fatalf("expected exactly one consolidation summary in semantic memory, got %d", stats.TotalMemories)
	}
}

func TestConsolidationFallbackSummaryIncludesCounts(t *testing.T) {
	messages := []Message{
		{Role: "user", Content: "mountains mountains hiking hiking"},
		{Role: "assistant", Content: "that sounds fun"},
		{Role: "user", Content: "mountains camping camping"},
	}
	summary := simpleSummary(messages)
	if !strings.Contains(summary, "2 user messages") {
		t.Fatalf("expected user message count in summary, got %q", summary)
	}
	if !strings.Contains(summary, "1 responses") {
		t.Fatalf("expected assistant response count in summary, got %q", summary)
	}
}

func TestConsolidationFallbackSummaryWithNoMessages(t *testing.T) {
	if got := simpleSummary(nil); got != "No messages to summarize" {
		t.Fatalf("unexpected summary for empty input: %q", got)
	}
}

func TestConsolidationFallbackSummaryWithNoUserMessages(t *testing.T) {
	messages := []Message{{Role: "assistant", Content: "hello"}}
	if got := simpleSummary(messages); got != "Conversation with no user messages" {
		t.Fatalf("unexpected summary: %q", got)
	}
}

func TestGetContextSearchesSemanticMemoryWhenQueryProvided(t *testing.T) {
	ctx := context.Background()
	h, _ := newTestHierarchicalMemory(t, WithImportanceGate(0))

	h.AddMessage(ctx, Message{Role: "user", Content: "I really love kayaking on weekends", Timestamp: time.Now()})

	c, err := h.GetContext(ctx, "kayaking", true)
	if err != nil {
		t.Fatalf("GetContext: %v", err)
	}
	if len(c.Semantic) == 0 {
		t.Fatal("expected semantic search to return a match")
	}
}

func TestBudgetContextNeverTrimsWorkingMemory(t *testing.T) {
	h, _ := newTestHierarchicalMemory(t)
	c := Context{
		Working:  []Message{{Content: "hello"}, {Content: "world"}},
		Episodic: []Message{{Content: strings.Repeat("filler text ", 500)}},
	}
	budgeted, err := h.BudgetContext(c, 1)
	if err != nil {
		t.Fatalf("BudgetContext: %v", err)
	}
	if len(budgeted.Working) != len(c.Working) {
		t.Fatalf("expected working memory to survive budget trimming untouched")
	}
	if len(budgeted.Episodic) != 0 {
		t.Fatalf("expected oversized episodic content to be dropped under a tiny budget")
	}
}

func TestSetSummarizerIsUsedOnNextConsolidation(t *testing.T) {
	ctx := context.Background()
	h, semantic := newTestHierarchicalMemory(t, WithConsolidationThreshold(2), WithImportanceGate(1.1))
	h.SetSummarizer(stubSummarizer{text: "custom summary text"})

	h.AddMessage(ctx, Message{Role: "user", Content: "a"})
	h.AddMessage(ctx, Message{Role: "user", Content: "b"})

	entries, err := semantic.Search(ctx, "custom summary text", 1, false, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(entries) != 1 || !strings.Contains(entries[0].Content, "custom summary text") {
		t.Fatalf("expected custom summarizer output to be stored, got %+v", entries)
	}
}

type stubSummarizer struct{ text string }

func (s stubSummarizer) SummarizeConversation(ctx context.Context, messages []Message) (string, error) {
	return s.text, nil
}
