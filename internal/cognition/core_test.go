package cognition

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Saguny/projectghost/internal/llm"
	"github.com/Saguny/projectghost/internal/memory"
)

type stubProvider struct {
	name    string
	outputs []string
	errs    []error
	calls   []llm.Params
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Generate(ctx context.Context, params llm.Params) (string, error) {
	s.calls = append(s.calls, params)
	i := len(s.calls) - 1
	var out string
	var err error
	if i < len(s.outputs) {
		out = s.outputs[i]
	}
	if i < len(s.errs) {
		err = s.errs[i]
	}
	return out, err
}

func testPersona() PersonaConfig {
	return PersonaConfig{
		Name:            "Nova",
		SystemPrompt:    "You are Nova, a curious companion.",
		Temperature:     0.8,
		MaxOutputTokens: 256,
		Examples: []string{
			"User: hi\nAssistant: hey there!",
		},
	}
}

func TestProcessParsesThinkOutputAndProducesSpeech(t *testing.T) {
	think := &stubProvider{name: "think", outputs: []string{
		`{"intent":"greet","emotion":"happy","speech_plan":"say hi back","confidence":0.9}`,
	}}
	speak := &stubProvider{name: "speak", outputs: []string{"Hey! Good to see you."}}

	core := New(zerolog.Nop(), think, speak, "test-model", testPersona())

	thought, speech := core.Process(context.Background(), "hello", memory.Context{}, nil, map[string]float64{"social": 0.5}, "")

	if thought.Intent != "greet" {
		t.Fatalf("expected intent 'greet', got %q", thought.Intent)
	}
	if speech != "Hey! Good to see you." {
		t.Fatalf("unexpected speech: %q", speech)
	}
	if len(think.calls) != 1 {
		t.Fatalf("expected exactly one think-stage call, got %d", len(think.calls))
	}
	if think.calls[0].Temperature != 0.3 {
		t.Fatalf("expected low think-stage temperature, got %v", think.calls[0].Temperature)
	}
}

func TestThinkStageLLMFailureReturnsErrorThinkOutput(t *testing.T) {
	think := &stubProvider{name: "think", errs: []error{errors.New("connection refused")}}
	speak := &stubProvider{name: "speak", outputs: []string{"sorry, something went wrong"}}

	core := New(zerolog.Nop(), think, speak, "test-model", testPersona())
	thought, _ := core.Process(context.Background(), "hello", memory.Context{}, nil, nil, "")

	if thought.Intent != "error" {
		t.Fatalf("expected intent 'error', got %q", thought.Intent)
	}
	if thought.Confidence != 0 {
		t.Fatalf("expected zero confidence, got %v", thought.Confidence)
	}
}

func TestSpeakStageLLMFailureReturnsPlaceholder(t *testing.T) {
	think := &stubProvider{name: "think", outputs: []string{
		`{"intent":"greet","emotion":"happy","speech_plan":"say hi","confidence":0.9}`,
	}}
	speak := &stubProvider{name: "speak", errs: []error{errors.New("rate limited")}}

	core := New(zerolog.Nop(), think, speak, "test-model", testPersona())
	_, speech := core.Process(context.Background(), "hello", memory.Context{}, nil, nil, "")

	if speech != "..." {
		t.Fatalf("expected placeholder speech, got %q", speech)
	}
}

func TestSpeakStageInjectsInternalStateAndFewShotExamples(t *testing.T) {
	think := &stubProvider{name: "think", outputs: []string{
		`{"intent":"greet","emotion":"curious","speech_plan":"ask a question","confidence":0.8}`,
	}}
	speak := &stubProvider{name: "speak", outputs: []string{"What brings you here?"}}

	core := New(zerolog.Nop(), think, speak, "test-model", testPersona())
	core.Process(context.Background(), "hello", memory.Context{}, nil, nil, "")

	if len(speak.calls) != 1 {
		t.Fatalf("expected one speak-stage call, got %d", len(speak.calls))
	}
	msgs := speak.calls[0].Messages
	if len(msgs) == 0 || !strings.Contains(msgs[0].Content, "[INTERNAL STATE]") {
		t.Fatalf("expected first message to carry internal state block, got %+v", msgs)
	}
	if !strings.Contains(msgs[0].Content, "curious") {
		t.Fatalf("expected mood to be injected, got %q", msgs[0].Content)
	}

	foundExampleUser, foundExampleAssistant := false, false
	for i, m := range msgs {
		if m.Role == llm.RoleUser && m.Content == "hi" {
			foundExampleUser = true
		}
		if m.Role == llm.RoleAssistant && m.Content == "hey there!" {
			foundExampleAssistant = true
			_ = i
		}
	}
	if !foundExampleUser || !foundExampleAssistant {
		t.Fatalf("expected few-shot example turns present, got %+v", msgs)
	}
}

func TestSpeakStageIncludesRecentWorkingMemoryWithoutDuplicatingCurrentInput(t *testing.T) {
	think := &stubProvider{name: "think", outputs: []string{
		`{"intent":"chat","emotion":"neutral","speech_plan":"continue","confidence":0.7}`,
	}}
	speak := &stubProvider{name: "speak", outputs: []string{"sure, tell me more"}}

	core := New(zerolog.Nop(), think, speak, "test-model", testPersona())

	now := time.Unix(0, 0)
	mem := memory.Context{Working: []memory.Message{
		{Role: "user", Content: "what's your favorite color", Timestamp: now},
		{Role: "assistant", Content: "blue, I think", Timestamp: now},
		{Role: "user", Content: "tell me a story", Timestamp: now},
	}}

	core.Process(context.Background(), "tell me a story", mem, nil, nil, "")

	msgs := speak.calls[0].Messages
	duplicateCount := 0
	for _, m := range msgs {
		if m.Content == "tell me a story" {
			duplicateCount++
		}
	}
	if duplicateCount != 1 {
		t.Fatalf("expected current input to appear exactly once, got %d times in %+v", duplicateCount, msgs)
	}
}

func TestFormatThinkInputSplitsSelfTraitsFromUserFacts(t *testing.T) {
	beliefs := map[string]string{
		"likes_coffee": "true",
		"name":         "Nova",
		"user_job":     "engineer",
	}
	input := formatThinkInput("hi", beliefs, map[string]float64{"social": 0.4}, "")

	if !strings.Contains(input, "MY TRAITS (Self):") || !strings.Contains(input, "KNOWN FACTS (User):") {
		t.Fatalf("expected both sections present, got %q", input)
	}
	selfIdx := strings.Index(input, "MY TRAITS (Self):")
	userIdx := strings.Index(input, "KNOWN FACTS (User):")
	selfSection := input[selfIdx:]
	userSection := input[userIdx:selfIdx]
	if !strings.Contains(selfSection, "likes_coffee") || !strings.Contains(selfSection, "name") {
		t.Fatalf("expected self traits in self section, got %q", selfSection)
	}
	if !strings.Contains(userSection, "user_job") {
		t.Fatalf("expected user fact in user section, got %q", userSection)
	}
	if strings.Contains(input, "CONTEXT:") {
		t.Fatalf("expected no CONTEXT section when envContext is empty, got %q", input)
	}
}

func TestFormatThinkInputIncludesEnvContextWhenNonEmpty(t *testing.T) {
	input := formatThinkInput("hi", nil, nil, "user is coding in VS Code")
	if !strings.Contains(input, "CONTEXT:\nuser is coding in VS Code") {
		t.Fatalf("expected env context section, got %q", input)
	}
}

func TestFormatNeedsProducesDeterministicOrdering(t *testing.T) {
	needs := map[string]float64{"social": 0.5, "affiliation": 0.2, "curiosity": 0.9}
	got := formatNeeds(needs)
	wantOrder := []string{"affiliation", "curiosity", "social"}
	lastIdx := -1
	for _, name := range wantOrder {
		idx := strings.Index(got, name)
		if idx < lastIdx {
			t.Fatalf("expected alphabetical ordering, got %q", got)
		}
		lastIdx = idx
	}
}
