// Package memory implements spec.md §4.4's three-tier hierarchical memory:
// working memory (last 10 messages), episodic memory (a capped ring buffer
// that periodically consolidates into semantic memory), and semantic memory
// (an importance-gated, embedding-searchable long-term store). Grounded on
// original_source/ghost/memory/hierarchical_memory.py.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog"

	"github.com/Saguny/projectghost/internal/memory/vectorstore"
)

const (
	workingMemoryCap        = 10
	defaultConsolidationMin = 40
	defaultImportanceGate   = 0.4
)

// commonWords is excluded from the fallback summarizer's keyword frequency
// count, per _create_simple_summary's common_words set.
var commonWords = map[string]bool{
	"this": true, "that": true, "with": true, "have": true,
	"from": true, "they": true, "what": true, "when": true, "there": true,
}

// Summarizer optionally produces an intelligent conversation summary (an LLM
// call). When nil or when it errors, HierarchicalMemory falls back to a
// deterministic keyword-frequency summary.
type Summarizer interface {
	SummarizeConversation(ctx context.Context, messages []Message) (string, error)
}

// Context is the per-tier memory bundle returned by GetContext, matching
// spec.md §4.4's working/episodic/semantic context shape.
type Context struct {
	Working  []Message
	Episodic []Message
	Semantic []vectorstore.Entry
}

// HierarchicalMemory ties the three memory tiers together and owns
// consolidation and importance-gated semantic admission.
type HierarchicalMemory struct {
	log                 zerolog.Logger
	episodic            *EpisodicBuffer
	semantic            vectorstore.Store
	consolidationThresh int
	importanceGate      float64
	summarizer          Summarizer
	tokenModel          string
	mu                  sync.Mutex
	working             []Message
	lastInteraction     time.Time
}

// Option configures a HierarchicalMemory.
type Option func(*HierarchicalMemory)

// WithConsolidationThreshold overrides the episodic-buffer fill level that
// triggers consolidation into semantic memory (default 40).
func WithConsolidationThreshold(n int) Option {
	return func(h *HierarchicalMemory) { h.consolidationThresh = n }
}

// WithImportanceGate overrides the minimum importance score required for a
// non-summary message to be admitted into semantic memory (default 0.4).
func WithImportanceGate(threshold float64) Option {
	return func(h *HierarchicalMemory) { h.importanceGate = threshold }
}

// WithSummarizer attaches an LLM-backed summarizer for consolidation.
// Without one, consolidation always uses the deterministic fallback summary.
func WithSummarizer(s Summarizer) Option {
	return func(h *HierarchicalMemory) { h.summarizer = s }
}

// WithTokenizerModel selects the tiktoken encoding used to budget context
// assembled by GetContext (default "gpt-4").
func WithTokenizerModel(model string) Option {
	return func(h *HierarchicalMemory) { h.tokenModel = model }
}

// New constructs a HierarchicalMemory backed by episodic and semantic.
func New(log zerolog.Logger, episodic *EpisodicBuffer, semantic vectorstore.Store, opts ...Option) *HierarchicalMemory {
	h := &HierarchicalMemory{
		log:                 log.With().Str("component", "hierarchical_memory").Logger(),
		episodic:            episodic,
		semantic:            semantic,
		consolidationThresh: defaultConsolidationMin,
		importanceGate:      defaultImportanceGate,
		tokenModel:          "gpt-4",
	}
	for _, opt := range opts {
		opt(h)
	}
	h.log.Info().
		Int("consolidation_threshold", h.consolidationThresh).
		Bool("summarization", h.summarizer != nil).
		Msg("hierarchical memory initialized")
	return h
}

// SetSummarizer attaches a summarizer after construction, per
// hierarchical_memory.py's set_summarizer (late injection once the LLM
// client is available).
func (h *HierarchicalMemory) SetSummarizer(s Summarizer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.summarizer = s
	h.log.Info().Msg("conversation summarizer attached to hierarchical memory")
}

// AddMessage routes message into working memory, the episodic buffer
// (triggering consolidation once full), and semantic memory (subject to the
// importance gate).
func (h *HierarchicalMemory) AddMessage(ctx context.Context, msg Message) error {
	h.mu.Lock()
	h.working = append(h.working, msg)
	if len(h.working) > workingMemoryCap {
		h.working = h.working[len(h.working)-workingMemoryCap:]
	}
	h.lastInteraction = time.Now().UTC()
	h.mu.Unlock()

	h.episodic.Add(msg)

	if h.episodic.Size() >= h.consolidationThresh {
		if err := h.consolidate(ctx); err != nil {
			h.log.Error().Err(err).Msg("consolidation failed")
		}
	}

	return h.admitToSemantic(ctx, msg)
}

// admitToSemantic stores msg in semantic memory if its importance score
// clears the gate. Summaries made by consolidate do not pass through here;
// consolidate adds them to semantic memory directly.
func (h *HierarchicalMemory) admitToSemantic(ctx context.Context, msg Message) error {
	score := ImportanceScore(msg)
	if v, ok := msg.metaFloat("importance"); ok {
		score = v
	}
	if score < h.importanceGate {
		h.log.Debug().Float64("score", score).Float64("threshold", h.importanceGate).Msg("skipping low-importance message")
		return nil
	}
	return h.semantic.AddMessage(ctx, h.toEntry(msg))
}

func (h *HierarchicalMemory) toEntry(msg Message) vectorstore.Entry {
	meta := make(map[string]string, len(msg.Metadata))
	for k, v := range msg.Metadata {
		meta[k] = fmt.Sprintf("%v", v)
	}
	return vectorstore.Entry{
		ID:        msg.ID,
		Role:      msg.Role,
		Content:   msg.Content,
		Metadata:  meta,
		Timestamp: msg.Timestamp,
	}
}

// GetContext assembles context from all three tiers: working memory in
// full, the 15 most recent episodic messages, and (if query is non-empty)
// the top 5 reranked semantic matches.
func (h *HierarchicalMemory) GetContext(ctx context.Context, query string, includeWorking bool) (Context, error) {
	out := Context{}

	if includeWorking {
		h.mu.Lock()
		out.Working = append([]Message(nil), h.working...)
		h.mu.Unlock()
	}

	out.Episodic = h.episodic.Recent(15)

	if query != "" {
		matches, err := h.semantic.Search(ctx, query, 5, true, 0.3)
		if err != nil {
			return out, fmt.Errorf("memory: semantic search: %w", err)
		}
		out.Semantic = matches
	}

	return out, nil
}

// BudgetContext trims a Context's episodic and semantic tiers (oldest and
// lowest-ranked first) so the combined token count fits within maxTokens,
// per SPEC_FULL.md's token-budgeted context assembly. Working memory is
// never trimmed: the immediate turn always survives.
func (h *HierarchicalMemory) BudgetContext(c Context, maxTokens int) (Context, error) {
	enc, err := tiktoken.EncodingForModel(h.tokenModel)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return c, fmt.Errorf("memory: load tokenizer: %w", err)
		}
	}

	count := func(s string) int { return len(enc.Encode(s, nil, nil)) }

	budget := maxTokens
	for _, m := range c.Working {
		budget -= count(m.Content)
	}

	var episodic []Message
	for i := len(c.Episodic) - 1; i >= 0 && budget > 0; i-- {
		n := count(c.Episodic[i].Content)
		if n > budget {
			break
		}
		episodic = append([]Message{c.Episodic[i]}, episodic...)
		budget -= n
	}

	var semantic []vectorstore.Entry
	for _, e := range c.Semantic {
		if budget <= 0 {
			break
		}
		n := count(e.Content)
		if n > budget {
			continue
		}
		semantic = append(semantic, e)
		budget -= n
	}

	return Context{Working: c.Working, Episodic: episodic, Semantic: semantic}, nil
}

// consolidate summarizes the episodic buffer's contents into a semantic
// memory entry, then keeps only the 10 most recent episodic messages.
func (h *HierarchicalMemory) consolidate(ctx context.Context) error {
	episodes := h.episodic.All()
	h.log.Info().Int("buffer_size", len(episodes)).Msg("consolidating episodic memory")

	h.mu.Lock()
	summarizer := h.summarizer
	h.mu.Unlock()

	var summary string
	if summarizer != nil {
		s, err := summarizer.SummarizeConversation(ctx, episodes)
		if err != nil {
			h.log.Error().Err(err).Msg("summarization failed, using fallback")
			summary = simpleSummary(episodes)
		} else {
			summary = s
			h.log.Info().Msg("generated intelligent summary for consolidation")
		}
	} else {
		summary = simpleSummary(episodes)
	}

	summaryMsg := Message{
		Role:      "system",
		Content:   "[MEMORY SUMMARY]\n" + summary,
		Timestamp: time.Now().UTC(),
		Metadata: map[string]any{
			"type":          "summary",
			"message_count": len(episodes),
			"importance":    0.9,
		},
	}
	if err := h.semantic.AddMessage(ctx, h.toEntry(summaryMsg)); err != nil {
		return fmt.Errorf("memory: store consolidation summary: %w", err)
	}
	h.log.Info().Int("message_count", len(episodes)).Msg("stored consolidation summary")

	recent := h.episodic.Recent(10)
	h.episodic.Clear()
	for _, m := range recent {
		h.episodic.Add(m)
	}
	h.log.Info().Int("preserved", len(recent)).Msg("preserved recent messages in episodic buffer")
	return nil
}

// simpleSummary produces a deterministic keyword-frequency summary,
// grounded on hierarchical_memory.py's _create_simple_summary fallback.
func simpleSummary(messages []Message) string {
	if len(messages) == 0 {
		return "No messages to summarize"
	}

	var userMessages []string
	var userCount, assistantCount int
	for _, m := range messages {
		switch m.Role {
		case "user":
			userCount++
			userMessages = append(userMessages, m.Content)
		case "assistant":
			assistantCount++
		}
	}
	if len(userMessages) == 0 {
		return "Conversation with no user messages"
	}

	parts := []string{fmt.Sprintf("Conversation with %d user messages and %d responses", userCount, assistantCount)}

	wordFreq := make(map[string]int)
	for _, text := range userMessages {
		for _, word := range strings.Fields(strings.ToLower(text)) {
			if len(word) > 4 && !commonWords[word] {
				wordFreq[word]++
			}
		}
	}

	type wc struct {
		word  string
		count int
	}
	var ranked []wc
	for w, c := range wordFreq {
		ranked = append(ranked, wc{w, c})
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].count > ranked[j].count })
	if len(ranked) > 5 {
		ranked = ranked[:5]
	}

	var topics []string
	for _, r := range ranked {
		if r.count > 1 {
			topics = append(topics, r.word)
		}
	}
	if len(topics) > 0 {
		parts = append(parts, "Key topics: "+strings.Join(topics, ", "))
	}

	return strings.Join(parts, ". ")
}
