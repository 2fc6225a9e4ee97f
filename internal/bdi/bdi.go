// Package bdi implements spec.md §4.6's Belief-Desire-Intention engine: a
// time-decaying need vector, desire evaluation, intention formation with a
// cooldown, and intention execution that publishes ProactiveImpulse events.
// Grounded on original_source/ghost/cognition/bdi_engine.py's decay/evaluate/
// form/execute cycle.
package bdi

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Saguny/projectghost/internal/eventbus"
)

// decaySkipThreshold matches bdi_engine.py's "skip if < 36 seconds" guard
// (0.01 hours).
const decaySkipThreshold = 0.01

// Need is one internal drive. value=0 means satisfied, value=1 means
// critical. DecayRate is per hour.
type Need struct {
	Name          string
	Value         float64
	DecayRatePerH float64
	TriggerAt     float64
	LastSatisfied time.Time
	LastDecay     time.Time
}

func (n *Need) decay(hours float64) {
	n.Value = clamp01(n.Value + n.DecayRatePerH*hours)
	n.LastDecay = time.Now().UTC()
}

func (n *Need) satisfy(amount float64) {
	n.Value = clamp01(n.Value - amount)
	n.LastSatisfied = time.Now().UTC()
}

func (n *Need) isCritical() bool { return n.Value >= n.TriggerAt }

// Intention is a planned action, re-derived from needs after restart; it is
// never persisted on its own.
type Intention struct {
	Action     string
	Motivation string
	Priority   float64
	CreatedAt  time.Time
	Executed   bool
}

// desireRule is one row of spec.md §4.6's desire/action/priority table.
type desireRule struct {
	desire       string
	need         string
	action       string
	priority     float64
	satisfyAmt   float64
	triggerText  string
}

var desireRules = []desireRule{
	{desire: "seek_interaction", need: "social", action: "initiate_conversation", priority: 0.7, satisfyAmt: 0.5, triggerText: "haven't talked in a while, wanted to check in"},
	{desire: "strengthen_bond", need: "affiliation", action: "share_thought", priority: 0.6, satisfyAmt: 0.4, triggerText: "thinking about you"},
	{desire: "seek_knowledge", need: "curiosity", action: "ask_question", priority: 0.5, satisfyAmt: 0.3, triggerText: "curious about what you're up to"},
}

// Engine owns the need vector and intention queue.
type Engine struct {
	log               zerolog.Logger
	bus               *eventbus.Bus
	store             *store
	minIntervalPerTick time.Duration

	mu         sync.Mutex
	needs      map[string]*Need
	intentions []Intention
	lastAction time.Time

	energyGating bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithMinInterval sets the cooldown between formed intentions. Without it
// there is no cooldown; callers pass the configured min_interval_minutes.
func WithMinInterval(d time.Duration) Option {
	return func(e *Engine) { e.minIntervalPerTick = d }
}

// WithEnergyGating enables the optional energy-need willpower refusal
// described in spec.md §9's Open Question. Disabled by default: the
// canonical three-need set (social, curiosity, affiliation) has no energy
// need, so WithEnergyGating also registers one.
func WithEnergyGating() Option {
	return func(e *Engine) {
		e.energyGating = true
		e.needs["energy"] = &Need{
			Name:          "energy",
			Value:         0.2,
			DecayRatePerH: 0.05,
			TriggerAt:     0.8,
			LastSatisfied: time.Now().UTC(),
			LastDecay:     time.Now().UTC(),
		}
	}
}

// New constructs an Engine with the canonical three-need set and loads any
// persisted state found at statePath.
func New(log zerolog.Logger, bus *eventbus.Bus, statePath string, opts ...Option) *Engine {
	now := time.Now().UTC()
	e := &Engine{
		log:        log.With().Str("component", "bdi").Logger(),
		bus:        bus,
		store:      newStore(statePath),
		lastAction: now,
		needs: map[string]*Need{
			"social":      {Name: "social", Value: 0.3, DecayRatePerH: 0.15, TriggerAt: 0.7, LastSatisfied: now, LastDecay: now},
			"curiosity":   {Name: "curiosity", Value: 0.2, DecayRatePerH: 0.08, TriggerAt: 0.6, LastSatisfied: now, LastDecay: now},
			"affiliation": {Name: "affiliation", Value: 0.5, DecayRatePerH: 0.1, TriggerAt: 0.8, LastSatisfied: now, LastDecay: now},
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.loadState()
	e.log.Info().Msg("BDI engine initialized")
	return e
}

// Tick runs one full decay → evaluate → form → execute cycle. Intended to be
// called by a scheduler on check_interval_seconds.
func (e *Engine) Tick(ctx context.Context) {
	e.decayNeeds()
	desires := e.evaluateDesires()
	if len(desires) > 0 {
		e.formIntention(desires)
	}
	e.executeIntentions(ctx)
}

func (e *Engine) decayNeeds() {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := time.Now().UTC()
	var critical []string
	for _, n := range e.needs {
		hours := now.Sub(n.LastDecay).Hours()
		if hours < decaySkipThreshold {
			continue
		}
		n.decay(hours)
		if n.isCritical() {
			critical = append(critical, n.Name)
		}
	}
	if len(critical) > 0 {
		e.log.Info().Strs("critical_needs", critical).Msg("critical needs detected")
	}
}

func (e *Engine) evaluateDesires() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	var desires []string
	for _, rule := range desireRules {
		if n, ok := e.needs[rule.need]; ok && n.isCritical() {
			desires = append(desires, rule.desire)
		}
	}
	return desires
}

func (e *Engine) formIntention(desires []string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.minIntervalPerTick > 0 && time.Since(e.lastAction) < e.minIntervalPerTick {
		return
	}

	var best *desireRule
	for i := range desireRules {
		rule := &desireRules[i]
		if !containsStr(desires, rule.desire) {
			continue
		}
		if best == nil || rule.priority > best.priority {
			best = rule
		}
	}
	if best == nil {
		return
	}

	e.intentions = append(e.intentions, Intention{
		Action:     best.action,
		Motivation: best.desire,
		Priority:   best.priority,
		CreatedAt:  time.Now().UTC(),
	})
}

func (e *Engine) executeIntentions(ctx context.Context) {
	e.mu.Lock()
	if len(e.intentions) == 0 {
		e.mu.Unlock()
		return
	}
	sortIntentionsByPriorityDesc(e.intentions)
	head := e.intentions[0]
	if head.Executed {
		e.intentions = e.intentions[1:]
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()

	rule := ruleForAction(head.Action)
	if rule == nil {
		e.log.Warn().Str("action", head.Action).Msg("unknown action")
		e.mu.Lock()
		e.intentions = e.intentions[1:]
		e.mu.Unlock()
		return
	}

	e.log.Info().Str("action", head.Action).Str("motivation", head.Motivation).Float64("priority", head.Priority).Msg("executing intention")
	e.bus.Publish(eventbus.ProactiveImpulse{
		Timestamp:     time.Now().UTC(),
		TriggerReason: rule.triggerText,
		Confidence:    head.Priority,
	})

	e.mu.Lock()
	if n, ok := e.needs[rule.need]; ok {
		n.satisfy(rule.satisfyAmt)
	}
	e.intentions = e.intentions[1:]
	e.lastAction = time.Now().UTC()
	e.mu.Unlock()

	e.persist()
}

// UpdateNeed applies a signed delta to need: negative deltas satisfy
// (subtract), positive deltas additively increase, both clamped to [0,1].
// This is the channel by which the orchestrator records post-interaction
// consequences.
func (e *Engine) UpdateNeed(name string, delta float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	n, ok := e.needs[name]
	if !ok {
		return
	}
	old := n.Value
	if delta < 0 {
		n.satisfy(-delta)
	} else {
		n.Value = clamp01(n.Value + delta)
	}
	e.log.Debug().Str("need", name).Float64("old", old).Float64("new", n.Value).Float64("delta", delta).Msg("need updated")
}

// GetNeedState returns a snapshot of every need's current value.
func (e *Engine) GetNeedState() map[string]float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]float64, len(e.needs))
	for name, n := range e.needs {
		out[name] = n.Value
	}
	return out
}

// CheckWillpower reports whether the agent has capacity to perform a task
// costing taskCost. With energy gating disabled (the default), this always
// returns (true, ""). With WithEnergyGating, it refuses when energy > 0.8
// and taskCost > 0.1.
func (e *Engine) CheckWillpower(taskCost float64) (bool, string) {
	if !e.energyGating {
		return true, ""
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	energy, ok := e.needs["energy"]
	if !ok {
		return true, ""
	}
	if energy.Value > 0.8 && taskCost > 0.1 {
		return false, "energy too low for requested task cost"
	}
	return true, ""
}

// Shutdown persists state. Call once on daemon exit.
func (e *Engine) Shutdown() {
	e.persist()
	e.log.Info().Msg("BDI engine stopped")
}

func (e *Engine) persist() {
	e.mu.Lock()
	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.store.save(e.log, snap)
}

func ruleForAction(action string) *desireRule {
	for i := range desireRules {
		if desireRules[i].action == action {
			return &desireRules[i]
		}
	}
	return nil
}

func containsStr(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func sortIntentionsByPriorityDesc(intentions []Intention) {
	for i := 1; i < len(intentions); i++ {
		for j := i; j > 0 && intentions[j].Priority > intentions[j-1].Priority; j-- {
			intentions[j], intentions[j-1] = intentions[j-1], intentions[j]
		}
	}
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
