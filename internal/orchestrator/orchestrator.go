// Package orchestrator implements spec.md §4.9's Cognitive Orchestrator: it
// subscribes to MessageReceived and ProactiveImpulse and drives the full
// pipeline (wake gate, willpower gate, context/belief/need gathering,
// Think/Speak/Validate with up to 3 attempts, emotion update, belief writes,
// memory writes, need satisfaction, resume monitoring) described there.
// Grounded on
// original_source/ghost/cognition/cognitive_orchestrator.py's
// CognitiveOrchestrator, including its emotion-mapping table and its
// retry/auto-correct/safe-placeholder cognitive loop.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Saguny/projectghost/internal/bdi"
	"github.com/Saguny/projectghost/internal/beliefs"
	"github.com/Saguny/projectghost/internal/cognition"
	"github.com/Saguny/projectghost/internal/cryostasis"
	"github.com/Saguny/projectghost/internal/emotion"
	"github.com/Saguny/projectghost/internal/eventbus"
	"github.com/Saguny/projectghost/internal/memory"
	"github.com/Saguny/projectghost/internal/sensors"
	"github.com/Saguny/projectghost/internal/validator"
)

const (
	maxCognitiveAttempts = 3
	confusedPlaceholder  = "sorry, i had a confusing thought there"
	troubleFallback      = "i'm having trouble organizing my thoughts"
	errorFallback        = "sorry, i'm having trouble thinking right now..."
	defaultPollInterval  = 15 * time.Second
)

// emotionDeltas maps ThinkOutput.Emotion to PAD stimulus deltas, per
// cognitive_orchestrator.py's _update_emotion table.
var emotionDeltas = map[string]emotion.Delta{
	"happy":    {Pleasure: 0.3, Arousal: 0.2, Dominance: 0.1},
	"sad":      {Pleasure: -0.3, Arousal: -0.1, Dominance: -0.1},
	"excited":  {Pleasure: 0.2, Arousal: 0.4, Dominance: 0.2},
	"calm":     {Pleasure: 0.1, Arousal: -0.2, Dominance: 0.0},
	"anxious":  {Pleasure: -0.2, Arousal: 0.3, Dominance: -0.2},
	"confused": {Pleasure: -0.1, Arousal: 0.0, Dominance: -0.3},
	"neutral":  {Pleasure: 0.0, Arousal: 0.0, Dominance: 0.0},
}

// Orchestrator wires every owning component together and drives the
// pipeline from event-bus subscriptions.
type Orchestrator struct {
	log zerolog.Logger
	bus *eventbus.Bus

	memory    *memory.HierarchicalMemory
	emotion   *emotion.Service
	beliefs   *beliefs.Store
	bdi       *bdi.Engine
	core      *cognition.Core
	validator *validator.Validator
	gater     *cryostasis.Gater
	sensors   []sensors.Sensor

	primaryChannelID string
}

// New constructs an Orchestrator and subscribes its handlers to bus.
func New(
	log zerolog.Logger,
	bus *eventbus.Bus,
	mem *memory.HierarchicalMemory,
	emo *emotion.Service,
	bel *beliefs.Store,
	bdiEngine *bdi.Engine,
	core *cognition.Core,
	val *validator.Validator,
	gater *cryostasis.Gater,
	sensorList []sensors.Sensor,
	primaryChannelID string,
) *Orchestrator {
	o := &Orchestrator{
		log:              log.With().Str("component", "orchestrator").Logger(),
		bus:              bus,
		memory:           mem,
		emotion:          emo,
		beliefs:          bel,
		bdi:              bdiEngine,
		core:             core,
		validator:        val,
		gater:            gater,
		sensors:          sensorList,
		primaryChannelID: primaryChannelID,
	}
	eventbus.Subscribe(bus, o.handleMessage)
	eventbus.Subscribe(bus, o.handleImpulse)
	return o
}

// handleMessage implements spec.md §4.9's inbound pipeline.
func (o *Orchestrator) handleMessage(ctx context.Context, event eventbus.MessageReceived) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			o.log.Error().Interface("panic", r).Msg("message handling panicked")
			o.gater.ResumeMonitoring(defaultPollInterval)
			o.bus.Publish(eventbus.ResponseGenerated{Timestamp: time.Now(), Content: errorFallback})
		}
	}()

	if o.gater.IsHibernating() {
		o.log.Info().Msg("waking from cryostasis for message")
		o.gater.Wake(ctx)
	}
	o.gater.PauseMonitoring()

	allowed, reason := o.bdi.CheckWillpower(0.1)
	if !allowed {
		o.gater.ResumeMonitoring(defaultPollInterval)
		o.bus.Publish(eventbus.ResponseGenerated{Timestamp: time.Now(), Content: reason})
		return
	}

	memCtx := o.gatherMemoryContext(ctx, event.Content)
	beliefSummary := o.gatherBeliefs(ctx)
	needs := o.bdi.GetNeedState()
	envContext := o.gatherEnvContext(ctx)

	think, speech := o.cognitiveProcess(ctx, event.Content, memCtx, beliefSummary, needs, envContext)

	o.emotion.UpdateState(ctx, emotionDelta(think))
	o.storeBeliefs(ctx, think, event.UserName)
	o.storeInteraction(ctx, event, speech)
	o.satisfyNeeds(think)

	o.gater.ResumeMonitoring(defaultPollInterval)

	o.log.Info().Str("intent", think.Intent).Dur("generation_time", time.Since(start)).Msg("response generated")
	o.bus.Publish(eventbus.ResponseGenerated{
		Timestamp:      time.Now(),
		Content:        speech,
		GenerationTime: time.Since(start),
	})
}

// handleImpulse implements spec.md §4.9's autonomous pipeline.
func (o *Orchestrator) handleImpulse(ctx context.Context, event eventbus.ProactiveImpulse) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Error().Interface("panic", r).Msg("impulse handling panicked")
			o.gater.ResumeMonitoring(defaultPollInterval)
		}
	}()

	if o.gater.IsHibernating() {
		o.log.Debug().Msg("skipping impulse (hibernating)")
		return
	}

	impulseInput := "[AUTONOMOUS] Trigger: " + event.TriggerReason
	memCtx := o.gatherMemoryContext(ctx, event.TriggerReason)
	beliefSummary := o.gatherBeliefs(ctx)
	needs := o.bdi.GetNeedState()
	envContext := o.gatherEnvContext(ctx)

	o.gater.PauseMonitoring()
	think, speech := o.cognitiveProcess(ctx, impulseInput, memCtx, beliefSummary, needs, envContext)
	o.gater.ResumeMonitoring(defaultPollInterval)

	_ = o.memory.AddMessage(ctx, memory.Message{
		Role:      "assistant",
		Content:   speech,
		Timestamp: time.Now(),
		Metadata:  map[string]any{"autonomous": true, "trigger": event.TriggerReason},
	})

	o.log.Info().Str("trigger", event.TriggerReason).Str("intent", think.Intent).Float64("confidence", think.Confidence).Msg("autonomous message")
	o.bus.Publish(eventbus.AutonomousMessageSent{
		Timestamp: time.Now(),
		Content:   speech,
		ChannelID: o.primaryChannelID,
	})
}

// cognitiveProcess runs Think -> Speak -> Validate up to maxCognitiveAttempts
// times, attempting auto-correction on non-critical failure and
// short-circuiting to a safe placeholder on critical failure.
func (o *Orchestrator) cognitiveProcess(ctx context.Context, userInput string, memCtx memory.Context, beliefSummary map[string]string, needs map[string]float64, envContext string) (cognition.ThinkOutput, string) {
	var think cognition.ThinkOutput
	var speech string

	for attempt := 1; attempt <= maxCognitiveAttempts; attempt++ {
		think, speech = o.core.Process(ctx, userInput, memCtx, beliefSummary, needs, envContext)

		result := o.validator.Validate(ctx, think, speech)
		if result.Approved {
			return think, speech
		}

		o.log.Warn().Strs("violations", result.Violations).Int("attempt", attempt).Msg("validation failed")

		if corrected, changed := o.validator.AutoCorrect(result, speech); changed {
			o.log.Info().Msg("auto-corrected speech")
			return think, corrected
		}

		if result.Severity == validator.SeverityCritical {
			o.log.Error().Strs("violations", result.Violations).Msg("critical validation failure")
			return think, confusedPlaceholder
		}
	}

	o.log.Error().Msg("cognitive process failed after max attempts")
	return think, troubleFallback
}

func (o *Orchestrator) gatherMemoryContext(ctx context.Context, query string) memory.Context {
	memCtx, err := o.memory.GetContext(ctx, query, true)
	if err != nil {
		o.log.Error().Err(err).Msg("memory context gathering failed")
	}
	return memCtx
}

// gatherEnvContext collects the emotional and sensory context spec.md §4.9
// step 3 feeds into the Think stage. A failing sensor is isolated (logged
// and skipped) rather than aborting context gathering for the others, per
// _gather_context's per-sensor try/except in the original.
func (o *Orchestrator) gatherEnvContext(ctx context.Context) string {
	mods := o.emotion.GetContextualModifiers()
	modParts := make([]string, 0, len(mods))
	for _, k := range []string{"mood_description", "circadian_phase", "energy_level", "emotional_stability", "mood_override"} {
		if v, ok := mods[k]; ok {
			modParts = append(modParts, fmt.Sprintf("%s=%v", k, v))
		}
	}

	parts := []string{"emotional: " + strings.Join(modParts, ", ")}
	for _, sensor := range o.sensors {
		ctxStr := o.safeSensorContext(ctx, sensor)
		if ctxStr != "" {
			parts = append(parts, ctxStr)
		}
	}
	return strings.Join(parts, "\n")
}

func (o *Orchestrator) safeSensorContext(ctx context.Context, sensor sensors.Sensor) (result string) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Error().Interface("panic", r).Msg("sensor context gathering panicked")
			result = ""
		}
	}()
	return sensor.GetContext(ctx)
}

func (o *Orchestrator) gatherBeliefs(ctx context.Context) map[string]string {
	userBeliefs := o.beliefs.GetAll(ctx, "user")
	agentProfile := o.beliefs.GetAgentProfile(ctx)

	combined := make(map[string]string, len(userBeliefs)+len(agentProfile.Identity)+len(agentProfile.Opinions)+len(agentProfile.Traits))
	for k, v := range userBeliefs {
		combined["user_"+k] = v
	}
	for k, v := range agentProfile.Identity {
		combined[k] = v
	}
	for k, v := range agentProfile.Opinions {
		combined[k] = v
	}
	for k, v := range agentProfile.Traits {
		combined[k] = v
	}
	return combined
}

func (o *Orchestrator) storeBeliefs(ctx context.Context, think cognition.ThinkOutput, userName string) {
	for _, update := range think.BeliefUpdates {
		entity := update.Entity
		if entity == "" {
			entity = "user"
		}
		value := update.Value
		if entity == "user" && update.Relation == "name" && value == "" {
			value = userName
		}
		if update.Relation == "" || value == "" {
			continue
		}
		if entity == "agent" {
			o.log.Info().Str("relation", update.Relation).Str("value", value).Msg("personality update: agent belief stored")
		}
		o.beliefs.Store(ctx, entity, update.Relation, value, think.Confidence, "inference")
	}
}

func (o *Orchestrator) storeInteraction(ctx context.Context, event eventbus.MessageReceived, speech string) {
	now := time.Now()
	_ = o.memory.AddMessage(ctx, memory.Message{
		Role:      "user",
		Content:   event.UserName + ": " + event.Content,
		Timestamp: now,
		Metadata: map[string]any{
			"user_id":   event.UserID,
			"user_name": event.UserName,
		},
	})
	_ = o.memory.AddMessage(ctx, memory.Message{
		Role:      "assistant",
		Content:   speech,
		Timestamp: now,
	})
}

func (o *Orchestrator) satisfyNeeds(think cognition.ThinkOutput) {
	o.bdi.UpdateNeed("social", -0.3)
	if strings.Contains(think.SpeechPlan, "?") {
		o.bdi.UpdateNeed("curiosity", 0.1)
	}
	for name, delta := range think.NeedsUpdate {
		o.bdi.UpdateNeed(name, delta)
	}
}

func emotionDelta(think cognition.ThinkOutput) emotion.Delta {
	d, ok := emotionDeltas[strings.ToLower(think.Emotion)]
	if !ok {
		d = emotion.Delta{}
	}
	d.Reason = "think_stage:" + think.Intent
	return d
}

