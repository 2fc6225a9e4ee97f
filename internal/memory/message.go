// Package memory implements the three-tier hierarchical memory system from
// spec.md §4.4: working memory, an episodic ring buffer, and (via the
// vectorstore subpackage) persistent semantic memory.
package memory

import "time"

// Message is one turn of conversation, the unit every memory tier stores.
type Message struct {
	ID        string
	Role      string // "user" | "assistant" | "system"
	Content   string
	Timestamp time.Time
	Metadata  map[string]any
}

func (m Message) metaString(key string) string {
	if m.Metadata == nil {
		return ""
	}
	v, _ := m.Metadata[key].(string)
	return v
}

func (m Message) metaFloat(key string) (float64, bool) {
	if m.Metadata == nil {
		return 0, false
	}
	switch v := m.Metadata[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}
