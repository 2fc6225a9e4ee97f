// Package emotion implements the PAD (Pleasure-Arousal-Dominance) emotional
// model: stimulus updates with decay, a grudge latch, circadian modulation,
// and atomic cross-restart persistence.
package emotion

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Saguny/projectghost/internal/eventbus"
)

// Inertia weights named per spec.md §4.2. Kept as documented constants only:
// no code reads them, and ApplyCircadianTick goes through UpdateState like
// any other delta. See DESIGN.md's "Inertia algebra" entry for
// why update_state applies the decayed-then-full-delta formula
// instead of Δ_effective = W_stimulus·Δ (which can never reproduce scenario
// 5's single-update grudge trigger for any weight split summing to 1).
const (
	InertiaWeight  = 0.8
	StimulusWeight = 0.2
)

// apologyTokens release the grudge latch when present in an update's reason string.
var apologyTokens = []string{"sorry", "apology", "apologize", "my bad", "forgive"}

const grudgeTimeout = 30 * time.Minute

// State is the PAD vector, each coordinate clamped to [-1, 1].
type State struct {
	Pleasure  float64
	Arousal   float64
	Dominance float64
}

// Grudge is the persistent "cold, defensive, curt" mode latch.
type Grudge struct {
	Active      bool
	TriggerReason string
	StartedAt   time.Time
}

// Delta is a proposed (pre-dampening) stimulus to apply to the PAD vector.
type Delta struct {
	Pleasure  float64
	Arousal   float64
	Dominance float64
	Reason    string
}

// Service holds the PAD vector, grudge latch, and circadian model, and
// publishes EmotionalStateChanged on every update.
type Service struct {
	log       zerolog.Logger
	bus       *eventbus.Bus
	decayRate float64
	store     *store

	mu     sync.Mutex
	state  State
	grudge Grudge
}

// Option customizes Service construction.
type Option func(*Service)

// WithDecayRate overrides the per-update decay-toward-neutral rate.
func WithDecayRate(rate float64) Option {
	return func(s *Service) {
		if rate > 0 {
			s.decayRate = rate
		}
	}
}

// New constructs a Service seeded with initial and backed by persistence at
// statePath. If statePath already holds a valid snapshot, it overrides
// initial (matching spec.md's "load on startup" persistence contract).
func New(log zerolog.Logger, bus *eventbus.Bus, statePath string, initial State, opts ...Option) *Service {
	s := &Service{
		log:       log.With().Str("component", "emotion").Logger(),
		bus:       bus,
		decayRate: 0.05,
		store:     newStore(statePath),
		state:     clampState(initial),
	}
	for _, opt := range opts {
		opt(s)
	}
	if snap, ok := s.store.load(s.log); ok {
		s.state = State{Pleasure: snap.Pleasure, Arousal: snap.Arousal, Dominance: snap.Dominance}
		s.grudge = Grudge{Active: snap.GrudgeMode, TriggerReason: snap.GrudgeTrigger, StartedAt: snap.GrudgeStart}
	}
	return s
}

// GetState returns a snapshot of the current PAD vector.
func (s *Service) GetState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// GetGrudge returns a snapshot of the grudge latch.
func (s *Service) GetGrudge() Grudge {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grudge
}

// UpdateState applies a stimulus delta to the PAD vector: grudge-dampens a
// positive pleasure delta, decays the current state toward neutral, adds
// the (possibly dampened) delta, clamps, re-evaluates the grudge latch, and
// persists + publishes the transition. Returns the post-update state.
func (s *Service) UpdateState(ctx context.Context, d Delta) State {
	s.mu.Lock()
	old := s.state

	dp := d.Pleasure
	if s.grudge.Active && dp > 0 {
		dp *= 0.3
	}

	decayed := State{
		Pleasure:  decayToward(old.Pleasure, s.decayRate),
		Arousal:   decayToward(old.Arousal, s.decayRate),
		Dominance: decayToward(old.Dominance, s.decayRate),
	}
	next := clampState(State{
		Pleasure:  decayed.Pleasure + dp,
		Arousal:   decayed.Arousal + d.Arousal,
		Dominance: decayed.Dominance + d.Dominance,
	})
	s.state = next
	s.evaluateGrudgeLocked(next, d.Reason)
	grudge := s.grudge
	s.mu.Unlock()

	s.store.save(s.log, next, grudge)

	s.bus.Publish(eventbus.EmotionalStateChanged{
		Timestamp: time.Now(),
		OldP:      old.Pleasure,
		OldA:      old.Arousal,
		OldD:      old.Dominance,
		NewP:      next.Pleasure,
		NewA:      next.Arousal,
		NewD:      next.Dominance,
		Trigger:   d.Reason,
	})
	return next
}

// evaluateGrudgeLocked applies trigger/release rules. Caller holds s.mu.
func (s *Service) evaluateGrudgeLocked(state State, reason string) {
	if !s.grudge.Active {
		if state.Pleasure < -0.5 && state.Dominance > 0.5 {
			s.grudge = Grudge{Active: true, TriggerReason: reason, StartedAt: time.Now()}
		}
		return
	}

	if containsApology(reason) || state.Pleasure > 0.2 || time.Since(s.grudge.StartedAt) > grudgeTimeout {
		s.grudge = Grudge{}
	}
}

func containsApology(reason string) bool {
	lower := strings.ToLower(reason)
	for _, tok := range apologyTokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}

// GetContextualModifiers returns the prompt-construction hints spec.md §4.2
// describes: mood description, circadian phase, energy/stability labels,
// and (while the grudge is active) a mood_override.
func (s *Service) GetContextualModifiers() map[string]any {
	state := s.GetState()
	grudge := s.GetGrudge()

	energy := "low"
	if state.Arousal > 0.3 {
		energy = "high"
	}
	stability := "stable"
	if math.Abs(state.Pleasure) >= 0.5 {
		stability = "intense"
	}

	mods := map[string]any{
		"mood_description":    describeMood(state),
		"circadian_phase":     PhaseDescription(time.Now()),
		"energy_level":        energy,
		"emotional_stability": stability,
	}
	if grudge.Active {
		mods["mood_override"] = "cold, defensive, curt"
	}
	return mods
}

func describeMood(s State) string {
	switch {
	case s.Pleasure > 0.3 && s.Arousal > 0.3:
		return "excited"
	case s.Pleasure > 0.3:
		return "content"
	case s.Pleasure < -0.3 && s.Dominance > 0.3:
		return "indignant"
	case s.Pleasure < -0.3:
		return "down"
	case s.Arousal < -0.3:
		return "subdued"
	default:
		return "neutral"
	}
}

func clampState(s State) State {
	return State{
		Pleasure:  clamp(s.Pleasure),
		Arousal:   clamp(s.Arousal),
		Dominance: clamp(s.Dominance),
	}
}

func clamp(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

// decayToward pulls value toward zero by rate, never overshooting (zero stays zero).
func decayToward(value, rate float64) float64 {
	switch {
	case value > 0:
		return math.Max(0, value-rate)
	case value < 0:
		return math.Min(0, value+rate)
	default:
		return 0
	}
}
