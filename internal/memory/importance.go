package memory

import "strings"

// Keyword lists grounded verbatim on
// original_source/ghost/memory/importance_scorer.py's ImportanceScorer.
var (
	personalInfoKeywords = []string{
		"my name is", "i am", "i'm", "i live", "i work", "my job",
		"my birthday", "i like", "i love", "i hate", "i prefer",
	}
	preferenceKeywords = []string{
		"favorite", "prefer", "like", "dislike", "love", "hate",
		"always", "never", "usually", "often",
	}
	futureKeywords = []string{
		"will", "going to", "plan to", "want to", "need to",
		"tomorrow", "next week", "later", "soon", "remember to",
	}
	emotionalKeywords = []string{
		"feel", "feeling", "happy", "sad", "angry", "excited",
		"worried", "stressed", "anxious", "grateful",
	}
	correctionKeywords = []string{
		"actually", "correction", "i meant", "not", "didn't", "don't",
	}
)

// ImportanceScore computes spec.md §4.4's [0,1] admission score for a
// message headed for semantic memory.
func ImportanceScore(msg Message) float64 {
	if msg.Role != "user" {
		return 0.3
	}

	content := strings.ToLower(msg.Content)
	score := 0.5

	if containsAny(content, personalInfoKeywords) {
		score += 0.3
	}
	if containsAny(content, preferenceKeywords) {
		score += 0.2
	}
	if containsAny(content, futureKeywords) {
		score += 0.2
	}
	if containsAny(content, emotionalKeywords) {
		score += 0.15
	}
	if containsAny(content, correctionKeywords) {
		score += 0.25
	}

	wordCount := len(strings.Fields(content))
	switch {
	case wordCount > 30:
		score += 0.1
	case wordCount < 3:
		score -= 0.2
	}

	if strings.Contains(content, "?") {
		score += 0.1
	}

	return clamp01(score)
}

func containsAny(content string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(content, kw) {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
