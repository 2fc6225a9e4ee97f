// Package cognition implements spec.md §4.7's bicameral Cognitive Core: a
// Think stage that emits a structured ThinkOutput via a staged JSON recovery
// pipeline, and a Speak stage that turns it into persona-voiced text.
// Grounded on original_source/ghost/cognition/cognitive_core.py.
package cognition

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	json5 "github.com/yosuke-furukawa/json5/encoding/json5"
)

// BeliefUpdate is one entry of ThinkOutput.BeliefUpdates.
type BeliefUpdate struct {
	Entity   string `json:"entity"`
	Relation string `json:"relation"`
	Value    string `json:"value"`
}

// ThinkOutput is the structured JSON the Think stage produces, per spec.md §3.
type ThinkOutput struct {
	Intent         string             `json:"intent"`
	Emotion        string             `json:"emotion"`
	BeliefUpdates  []BeliefUpdate     `json:"belief_updates"`
	MemoryQueries  []string           `json:"memory_queries"`
	NeedsUpdate    map[string]float64 `json:"needs_update"`
	ActionRequest  *string            `json:"action_request"`
	SpeechPlan     string             `json:"speech_plan"`
	Confidence     float64            `json:"confidence"`
	ReasoningTrace string             `json:"reasoning_trace"`
	Timestamp      string             `json:"timestamp"`
}

var (
	fenceOpenRe        = regexp.MustCompile("(?m)^```json\\s*")
	fenceBareRe        = regexp.MustCompile("(?m)^```\\s*")
	fenceCloseRe       = regexp.MustCompile("(?m)```$")
	lineCommentSlashRe = regexp.MustCompile(`//.*`)
	lineCommentHashRe  = regexp.MustCompile(`#.*`)
	largestObjectRe    = regexp.MustCompile(`(?s)\{.*`)
	closedObjectRe     = regexp.MustCompile(`(?s)\{.*\}`)
	missingCommaRe     = regexp.MustCompile(`(["\d\]}]|true|false)\s*\n\s*"`)
	trailingCommaRe    = regexp.MustCompile(`,\s*(\}|\])`)
	urlRe              = regexp.MustCompile(`https?://\S+`)
)

// ParseThinkOutput runs spec.md §4.7's staged recovery pipeline over raw LLM
// output and returns a populated ThinkOutput. It never errors: any failure
// degrades to the sanity fallback.
func ParseThinkOutput(raw string) ThinkOutput {
	cleaned := fenceOpenRe.ReplaceAllString(raw, "")
	cleaned = fenceBareRe.ReplaceAllString(cleaned, "")
	cleaned = fenceCloseRe.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(cleaned)

	cleaned = lineCommentSlashRe.ReplaceAllString(cleaned, "")
	cleaned = lineCommentHashRe.ReplaceAllString(cleaned, "")

	if m := largestObjectRe.FindString(cleaned); m != "" {
		cleaned = m
	}

	// The open-ended span keeps truncated objects repairable; if it fails, the
	// span ending at the last closing brace drops any prose after the object.
	var data map[string]any
	parsed := false
	for _, candidate := range []string{cleaned, closedObjectRe.FindString(cleaned)} {
		if candidate == "" {
			continue
		}
		if json5.Unmarshal([]byte(candidate), &data) == nil || json5.Unmarshal([]byte(repairJSON(candidate)), &data) == nil {
			parsed = true
			break
		}
	}
	if !parsed {
		return sanityFallback(raw)
	}

	return thinkOutputFromMap(data)
}

// repairJSON implements cognitive_core.py's _repair_json: insert missing
// commas between adjacent string/number/bool lines, drop trailing commas,
// and balance unmatched opening braces/brackets by appending closers.
func repairJSON(s string) string {
	s = missingCommaRe.ReplaceAllString(s, "$1,\n\"")
	s = trailingCommaRe.ReplaceAllString(s, "$1")

	openBraces := strings.Count(s, "{")
	closeBraces := strings.Count(s, "}")
	openBrackets := strings.Count(s, "[")
	closeBrackets := strings.Count(s, "]")

	for openBrackets > closeBrackets {
		s += "]"
		closeBrackets++
	}
	for openBraces > closeBraces {
		s += "}"
		closeBraces++
	}
	return s
}

func thinkOutputFromMap(data map[string]any) ThinkOutput {
	out := ThinkOutput{
		Intent:         stringOr(data["intent"], "text_response"),
		Emotion:        stringOr(data["emotion"], "neutral"),
		SpeechPlan:     stringOr(data["speech_plan"], "continue conversation"),
		Confidence:     floatOr(data["confidence"], 0.5),
		ReasoningTrace: stringOr(data["reasoning_trace"], ""),
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
	}

	if list, ok := data["belief_updates"].([]any); ok {
		for _, item := range list {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			out.BeliefUpdates = append(out.BeliefUpdates, BeliefUpdate{
				Entity:   stringOr(m["entity"], ""),
				Relation: stringOr(m["relation"], ""),
				Value:    stringOr(m["value"], ""),
			})
		}
	}

	if list, ok := data["memory_queries"].([]any); ok {
		for _, item := range list {
			if s, ok := item.(string); ok {
				out.MemoryQueries = append(out.MemoryQueries, s)
			}
		}
	}

	if m, ok := data["needs_update"].(map[string]any); ok {
		out.NeedsUpdate = make(map[string]float64, len(m))
		for k, v := range m {
			out.NeedsUpdate[k] = floatOr(v, 0)
		}
	}

	if s, ok := data["action_request"].(string); ok && s != "" {
		out.ActionRequest = &s
	}

	return out
}

// sanityFallback implements cognitive_core.py's _sanity_fallback: a safe
// ThinkOutput built from a sanitized, truncated prefix of the raw output
// when every recovery attempt fails.
func sanityFallback(raw string) ThinkOutput {
	sanitized := strings.TrimSpace(urlRe.ReplaceAllString(raw, ""))
	speechPlan := "acknowledge"
	if sanitized != "" {
		speechPlan = truncate(sanitized, 100)
	}
	return ThinkOutput{
		Intent:         "text_response",
		Emotion:        "neutral",
		SpeechPlan:     speechPlan,
		Confidence:     0.3,
		ReasoningTrace: "fallback: " + strconv.Itoa(len(raw)) + " chars",
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
	}
}

// errorThinkOutput is returned when the Think stage's LLM call itself fails
// (as opposed to succeeding with unparseable output).
func errorThinkOutput(err error) ThinkOutput {
	return ThinkOutput{
		Intent:         "error",
		Emotion:        "confused",
		SpeechPlan:     "apologize",
		Confidence:     0,
		ReasoningTrace: err.Error(),
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
	}
}

func stringOr(v any, fallback string) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fallback
}

func floatOr(v any, fallback float64) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return fallback
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

