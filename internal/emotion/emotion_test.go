package emotion

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Saguny/projectghost/internal/eventbus"
)

func newTestService(t *testing.T) (*Service, *eventbus.Bus) {
	t.Helper()
	bus := eventbus.New(zerolog.Nop())
	bus.Start()
	t.Cleanup(bus.Stop)
	path := filepath.Join(t.TempDir(), "emotional_state.json")
	svc := New(zerolog.Nop(), bus, path, State{})
	return svc, bus
}

// scenario 5 from spec.md §8: a single large insult delta from neutral must
// cross the grudge-trigger thresholds, and a follow-up apology must release it.
func TestGrudgeLatchTriggerAndApologyRelease(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	next := svc.UpdateState(ctx, Delta{Pleasure: -1.0, Arousal: 0, Dominance: 0.6, Reason: "insult"})
	if !(next.Pleasure < -0.5) {
		t.Fatalf("expected pleasure < -0.5, got %v", next.Pleasure)
	}
	if !(next.Dominance > 0.5) {
		t.Fatalf("expected dominance > 0.5, got %v", next.Dominance)
	}
	if g := svc.GetGrudge(); !g.Active {
		t.Fatal("expected grudge to be active after insult")
	}

	svc.UpdateState(ctx, Delta{Pleasure: 0.5, Arousal: 0, Dominance: 0, Reason: "user said sorry"})
	if g := svc.GetGrudge(); g.Active {
		t.Fatal("expected grudge cleared after apology token")
	}
}

func TestGrudgeReleaseOnPleasureRecovery(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	svc.UpdateState(ctx, Delta{Pleasure: -1.0, Dominance: 0.6, Reason: "insult"})
	if !svc.GetGrudge().Active {
		t.Fatal("expected grudge active")
	}
	// No apology token. Positive deltas are dampened to 30% while the grudge
	// is active, so pleasure climbs past the 0.2 release threshold only after
	// several strong positive updates (-0.65, -0.30, 0.05, ~0.30).
	for i := 0; i < 4; i++ {
		svc.UpdateState(ctx, Delta{Pleasure: 1.0, Reason: "great news"})
	}
	if svc.GetGrudge().Active {
		t.Fatal("expected grudge cleared on pleasure recovery")
	}
}

func TestGrudgeReleaseOnTimeout(t *testing.T) {
	svc, _ := newTestService(t)
	svc.mu.Lock()
	svc.grudge = Grudge{Active: true, TriggerReason: "insult", StartedAt: time.Now().Add(-31 * time.Minute)}
	svc.mu.Unlock()
	svc.UpdateState(context.Background(), Delta{Reason: "unrelated"})
	if svc.GetGrudge().Active {
		t.Fatal("expected grudge cleared after 30 minute timeout")
	}
}

func TestGrudgeDampensPositivePleasureDelta(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	svc.UpdateState(ctx, Delta{Pleasure: -1.0, Dominance: 0.6, Reason: "insult"})
	before := svc.GetState().Pleasure

	// A small positive delta while the grudge is active is dampened to 30%.
	after := svc.UpdateState(ctx, Delta{Pleasure: 0.1, Reason: "neutral comment"})
	// decay pulls pleasure up slightly too, so just assert the grudge-gated
	// move is much smaller than an undampened 0.1 would produce.
	if after.Pleasure-before > 0.1 {
		t.Fatalf("expected dampened pleasure delta, moved from %v to %v", before, after.Pleasure)
	}
}

func TestUpdateStateClampsToUnitRange(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		svc.UpdateState(ctx, Delta{Pleasure: -5, Arousal: 5, Dominance: -5, Reason: "stress test"})
	}
	s := svc.GetState()
	if s.Pleasure < -1 || s.Pleasure > 1 || s.Arousal < -1 || s.Arousal > 1 || s.Dominance < -1 || s.Dominance > 1 {
		t.Fatalf("state escaped [-1,1]: %+v", s)
	}
}

func TestDecayPullsTowardNeutralWithoutDelta(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	svc.UpdateState(ctx, Delta{Pleasure: 0.9, Reason: "seed"})
	first := svc.GetState().Pleasure
	svc.UpdateState(ctx, Delta{Reason: "idle tick"})
	second := svc.GetState().Pleasure
	if !(second < first) {
		t.Fatalf("expected decay to reduce pleasure from %v, got %v", first, second)
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	bus := eventbus.New(zerolog.Nop())
	bus.Start()
	defer bus.Stop()
	path := filepath.Join(t.TempDir(), "emotional_state.json")

	svc := New(zerolog.Nop(), bus, path, State{})
	svc.UpdateState(context.Background(), Delta{Pleasure: 0.4, Arousal: 0.2, Dominance: 0.1, Reason: "good chat"})
	want := svc.GetState()

	reloaded := New(zerolog.Nop(), bus, path, State{})
	got := reloaded.GetState()
	if got != want {
		t.Fatalf("persisted state mismatch: want %+v got %+v", want, got)
	}
}

func TestContextualModifiersIncludeMoodOverrideWhileGrudgeActive(t *testing.T) {
	svc, _ := newTestService(t)
	svc.UpdateState(context.Background(), Delta{Pleasure: -1.0, Dominance: 0.6, Reason: "insult"})
	mods := svc.GetContextualModifiers()
	if mods["mood_override"] != "cold, defensive, curt" {
		t.Fatalf("expected mood_override while grudge active, got %v", mods["mood_override"])
	}
}

func TestContextualModifiersOmitMoodOverrideWhenInactive(t *testing.T) {
	svc, _ := newTestService(t)
	mods := svc.GetContextualModifiers()
	if _, ok := mods["mood_override"]; ok {
		t.Fatal("did not expect mood_override with no active grudge")
	}
}

func TestCircadianPhaseDescriptionBands(t *testing.T) {
	cases := []struct {
		hour int
		want string
	}{
		{6, "Early Morning (Waking Up)"},
		{10, "Morning (Alert)"},
		{13, "Midday (Peak Energy)"},
		{16, "Afternoon (Active)"},
		{20, "Evening (Winding Down)"},
		{23, "Late Night (Low Energy)"},
		{2, "Deep Night (Sleepy)"},
	}
	for _, tc := range cases {
		at := time.Date(2026, 1, 1, tc.hour, 0, 0, 0, time.UTC)
		if got := PhaseDescription(at); got != tc.want {
			t.Errorf("hour %d: got %q want %q", tc.hour, got, tc.want)
		}
	}
}

func TestProactivityModifierRange(t *testing.T) {
	for hour := 0; hour < 24; hour++ {
		at := time.Date(2026, 1, 1, hour, 0, 0, 0, time.UTC)
		m := ProactivityModifier(at)
		if m < 0.1 || m > 1.0 {
			t.Fatalf("hour %d: proactivity modifier %v out of [0.1, 1.0]", hour, m)
		}
	}
}
