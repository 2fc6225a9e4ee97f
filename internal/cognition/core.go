package cognition

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Saguny/projectghost/internal/llm"
	"github.com/Saguny/projectghost/internal/memory"
)

const thinkSystemPrompt = `You are the INTERNAL REASONING SYSTEM.
Output ONLY valid JSON.
{
  "intent": "str",
  "emotion": "str",
  "belief_updates": [{"entity": "agent", "relation": "likes", "value": "x"}],
  "memory_queries": [],
  "needs_update": {},
  "action_request": null,
  "speech_plan": "what to say",
  "confidence": 0.0,
  "reasoning_trace": "str"
}`

// PersonaConfig is the subset of config.PersonaConfig the Speak stage needs.
// Defined locally (rather than importing internal/config) to keep cognition
// dependency-free of the config package's YAML concerns.
type PersonaConfig struct {
	Name            string
	SystemPrompt    string
	Temperature     float64
	StopTokens      []string
	MaxOutputTokens int
	Examples        []string
}

// Core is the bicameral Think -> Speak engine.
type Core struct {
	log     zerolog.Logger
	think   llm.Provider
	speak   llm.Provider
	model   string
	persona PersonaConfig
}

// New constructs a Core. think and speak may be the same Provider; they are
// kept separate so a cheaper/faster model can drive the Think stage.
func New(log zerolog.Logger, think, speak llm.Provider, model string, persona PersonaConfig) *Core {
	return &Core{
		log:     log.With().Str("component", "cognition").Logger(),
		think:   think,
		speak:   speak,
		model:   model,
		persona: persona,
	}
}

// Process runs both stages and returns the Think output plus the final
// utterance. envContext carries the emotional/sensory context gathered by
// the orchestrator's step 3 (spec.md §4.9) as free-form text.
func (c *Core) Process(ctx context.Context, userInput string, context_ memory.Context, beliefs map[string]string, needs map[string]float64, envContext string) (ThinkOutput, string) {
	thought := c.thinkStage(ctx, userInput, beliefs, needs, envContext)
	c.log.Debug().Str("intent", thought.Intent).Str("emotion", thought.Emotion).Msg("think stage complete")

	speech := c.speakStage(ctx, thought, context_, userInput)
	return thought, speech
}

func (c *Core) thinkStage(ctx context.Context, userInput string, beliefs map[string]string, needs map[string]float64, envContext string) ThinkOutput {
	params := llm.Params{
		Model:        c.model,
		SystemPrompt: thinkSystemPrompt,
		Temperature:  0.3,
		MaxTokens:    600,
		JSONMode:     true,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: formatThinkInput(userInput, beliefs, needs, envContext)},
		},
	}
	raw, err := c.think.Generate(ctx, params)
	if err != nil {
		c.log.Error().Err(err).Msg("think stage failed")
		return errorThinkOutput(err)
	}
	return ParseThinkOutput(raw)
}

func (c *Core) speakStage(ctx context.Context, thought ThinkOutput, mem memory.Context, userInput string) string {
	systemContent := fmt.Sprintf(
		"%s\n\n[INTERNAL STATE]\nMood: %s\nGoal: %s\nInstruction: Respond naturally to the user. Do NOT mention your internal state.",
		c.persona.SystemPrompt, thought.Emotion, thought.SpeechPlan,
	)

	var messages []llm.Message
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: systemContent})

	for _, ex := range c.persona.Examples {
		parts := strings.SplitN(ex, "\nAssistant:", 2)
		if len(parts) != 2 {
			continue
		}
		userText := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(parts[0]), "User:"))
		assistantText := strings.TrimSpace(parts[1])
		messages = append(messages,
			llm.Message{Role: llm.RoleUser, Content: userText},
			llm.Message{Role: llm.RoleAssistant, Content: assistantText},
		)
	}

	recent := mem.Working
	if len(recent) > 6 {
		recent = recent[len(recent)-6:]
	}
	for _, m := range recent {
		if strings.TrimSpace(m.Content) == strings.TrimSpace(userInput) {
			continue
		}
		messages = append(messages, llm.Message{Role: llm.Role(m.Role), Content: m.Content})
	}

	if len(messages) == 0 || strings.TrimSpace(messages[len(messages)-1].Content) != strings.TrimSpace(userInput) {
		messages = append(messages, llm.Message{Role: llm.RoleUser, Content: userInput})
	}

	messages = append(messages, llm.Message{
		Role:    llm.RoleSystem,
		Content: fmt.Sprintf("(Remember: You are %s. Speak with %s energy.)", c.persona.Name, thought.Emotion),
	})

	params := llm.Params{
		Model:        c.model,
		Messages:     messages,
		Temperature:  c.persona.Temperature,
		MaxTokens:    c.persona.MaxOutputTokens,
		StopSequence: c.persona.StopTokens,
	}

	speech, err := c.speak.Generate(ctx, params)
	if err != nil {
		c.log.Error().Err(err).Msg("speak stage failed")
		return "..."
	}
	return strings.TrimSpace(speech)
}

// formatThinkInput builds the Think stage's user-turn content: the raw
// input, a compact belief summary split into self-traits vs. user facts, and
// the current need vector.
func formatThinkInput(userInput string, beliefs map[string]string, needs map[string]float64, envContext string) string {
	var userFacts, selfTraits []string
	for k, v := range beliefs {
		if k == "is_ai" || k == "can_think" || k == "name" || strings.Contains(k, "likes") || strings.Contains(k, "dislikes") {
			selfTraits = append(selfTraits, fmt.Sprintf("- %s: %s", k, v))
		} else {
			userFacts = append(userFacts, fmt.Sprintf("- %s: %s", k, v))
		}
	}
	sort.Strings(userFacts)
	sort.Strings(selfTraits)
	userFacts = capLines(userFacts, 5)
	selfTraits = capLines(selfTraits, 5)

	beliefSummary := "KNOWN FACTS (User):\n" + joinOr(userFacts, "None")
	selfSummary := "MY TRAITS (Self):\n" + joinOr(selfTraits, "None")

	envSection := ""
	if strings.TrimSpace(envContext) != "" {
		envSection = "\nCONTEXT:\n" + envContext
	}

	return fmt.Sprintf("USER: %s\n%s\n%s%s\nNEEDS: %s\nAnalyze and output JSON.", userInput, beliefSummary, selfSummary, envSection, formatNeeds(needs))
}

func capLines(lines []string, max int) []string {
	if len(lines) > max {
		return lines[:max]
	}
	return lines
}

func joinOr(lines []string, fallback string) string {
	if len(lines) == 0 {
		return fallback
	}
	return strings.Join(lines, "\n")
}

func formatNeeds(needs map[string]float64) string {
	names := make([]string, 0, len(needs))
	for name := range needs {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%.2f", name, needs[name]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
