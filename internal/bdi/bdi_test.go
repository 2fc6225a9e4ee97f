package bdi

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Saguny/projectghost/internal/eventbus"
)

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *eventbus.Bus) {
	t.Helper()
	bus := eventbus.New(zerolog.Nop())
	bus.Start()
	t.Cleanup(bus.Stop)
	path := filepath.Join(t.TempDir(), "bdi_state.json")
	e := New(zerolog.Nop(), bus, path, opts...)
	return e, bus
}

func TestDecaySkipsBelowThirtySixSeconds(t *testing.T) {
	e, _ := newTestEngine(t)
	before := e.GetNeedState()["social"]
	e.decayNeeds()
	after := e.GetNeedState()["social"]
	if before != after {
		t.Fatalf("expected no decay within the 36-second guard, got %v -> %v", before, after)
	}
}

func TestDecayIncreasesNeedOverElapsedTime(t *testing.T) {
	e, _ := newTestEngine(t)
	e.mu.Lock()
	e.needs["social"].LastDecay = time.Now().UTC().Add(-2 * time.Hour)
	e.mu.Unlock()

	e.decayNeeds()

	got := e.GetNeedState()["social"]
	want := clamp01(0.3 + 0.15*2)
	if diffAbs(got, want) > 0.001 {
		t.Fatalf("expected social need to decay to ~%v, got %v", want, got)
	}
}

func TestDecayClampsAtOne(t *testing.T) {
	e, _ := newTestEngine(t)
	e.mu.Lock()
	e.needs["social"].LastDecay = time.Now().UTC().Add(-100 * time.Hour)
	e.mu.Unlock()

	e.decayNeeds()

	if got := e.GetNeedState()["social"]; got != 1.0 {
		t.Fatalf("expected need to clamp at 1.0, got %v", got)
	}
}

func TestEvaluateDesiresFiresAtThreshold(t *testing.T) {
	e, _ := newTestEngine(t)
	e.mu.Lock()
	e.needs["social"].Value = 0.7
	e.mu.Unlock()

	desires := e.evaluateDesires()
	if !containsStr(desires, "seek_interaction") {
		t.Fatalf("expected seek_interaction desire, got %v", desires)
	}
}

func TestFormIntentionPicksHighestPriorityDesire(t *testing.T) {
	e, _ := newTestEngine(t)
	e.mu.Lock()
	e.needs["social"].Value = 0.7
	e.needs["curiosity"].Value = 0.6
	e.lastAction = time.Now().Add(-time.Hour)
	e.mu.Unlock()

	e.formIntention([]string{"seek_interaction", "seek_knowledge"})

	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.intentions) != 1 {
		t.Fatalf("expected exactly one intention formed, got %d", len(e.intentions))
	}
	if e.intentions[0].Action != "initiate_conversation" {
		t.Fatalf("expected the higher-priority desire (seek_interaction) to win, got %q", e.intentions[0].Action)
	}
}

func TestFormIntentionRespectsCooldown(t *testing.T) {
	e, _ := newTestEngine(t, WithMinInterval(time.Hour))
	e.mu.Lock()
	e.lastAction = time.Now()
	e.mu.Unlock()

	e.formIntention([]string{"seek_interaction"})

	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.intentions) != 0 {
		t.Fatalf("expected cooldown to suppress intention formation, got %d intentions", len(e.intentions))
	}
}

func TestExecuteIntentionPublishesProactiveImpulseAndSatisfiesNeed(t *testing.T) {
	ctx := context.Background()
	e, bus := newTestEngine(t)

	received := make(chan eventbus.ProactiveImpulse, 1)
	eventbus.Subscribe(bus, func(ctx context.Context, ev eventbus.ProactiveImpulse) {
		received <- ev
	})

	e.mu.Lock()
	e.needs["social"].Value = 0.9
	e.intentions = []Intention{{Action: "initiate_conversation", Motivation: "seek_interaction", Priority: 0.7}}
	e.mu.Unlock()

	e.executeIntentions(ctx)

	select {
	case ev := <-received:
		if ev.TriggerReason == "" {
			t.Fatal("expected a non-empty trigger reason")
		}
	case <-time.After(time.Second):
		t.Fatal("expected ProactiveImpulse to be published")
	}

	if got := e.GetNeedState()["social"]; got >= 0.9 {
		t.Fatalf("expected social need to be satisfied after execution, got %v", got)
	}
}

func TestUpdateNeedNegativeDeltaSatisfies(t *testing.T) {
	e, _ := newTestEngine(t)
	e.mu.Lock()
	e.needs["social"].Value = 0.5
	e.mu.Unlock()

	e.UpdateNeed("social", -0.3)

	if got := e.GetNeedState()["social"]; diffAbs(got, 0.2) > 0.001 {
		t.Fatalf("expected social need 0.2, got %v", got)
	}
}

func TestUpdateNeedPositiveDeltaIncreasesAndClamps(t *testing.T) {
	e, _ := newTestEngine(t)
	e.UpdateNeed("curiosity", 5.0)
	if got := e.GetNeedState()["curiosity"]; got != 1.0 {
		t.Fatalf("expected curiosity to clamp at 1.0, got %v", got)
	}
}

func TestCheckWillpowerDefaultAlwaysAllows(t *testing.T) {
	e, _ := newTestEngine(t)
	ok, reason := e.CheckWillpower(0.9)
	if !ok || reason != "" {
		t.Fatalf("expected default willpower check to always allow, got (%v, %q)", ok, reason)
	}
}

func TestCheckWillpowerEnergyGatingRefusesWhenDepleted(t *testing.T) {
	e, _ := newTestEngine(t, WithEnergyGating())
	e.mu.Lock()
	e.needs["energy"].Value = 0.9
	e.mu.Unlock()

	ok, reason := e.CheckWillpower(0.5)
	if ok {
		t.Fatal("expected refusal when energy > 0.8 and task cost > 0.1")
	}
	if reason == "" {
		t.Fatal("expected a non-empty refusal reason")
	}
}

func TestCheckWillpowerEnergyGatingAllowsCheapTask(t *testing.T) {
	e, _ := newTestEngine(t, WithEnergyGating())
	e.mu.Lock()
	e.needs["energy"].Value = 0.9
	e.mu.Unlock()

	ok, _ := e.CheckWillpower(0.05)
	if !ok {
		t.Fatal("expected cheap tasks to be allowed regardless of energy level")
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bdi_state.json")
	bus := eventbus.New(zerolog.Nop())
	bus.Start()
	defer bus.Stop()

	e1 := New(zerolog.Nop(), bus, path)
	e1.UpdateNeed("social", -0.25)
	e1.Shutdown()

	e2 := New(zerolog.Nop(), bus, path)
	got := e2.GetNeedState()["social"]
	want := clamp01(0.3 - 0.25)
	if diffAbs(got, want) > 0.001 {
		t.Fatalf("expected restored social need %v, got %v", want, got)
	}
}

func TestLoadStateIgnoresMalformedTimestamps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bdi_state.json")
	s := newStore(path)
	snap := snapshot{
		Timestamp: "garbage",
		Needs: map[string]needSnapshot{
			"social": {Value: 0.4, LastSatisfied: "not-a-time", LastDecay: "also-not-a-time"},
		},
		LastAction: "still-not-a-time",
		Version:    2,
	}
	s.save(zerolog.Nop(), snap)

	bus := eventbus.New(zerolog.Nop())
	bus.Start()
	defer bus.Stop()
	e := New(zerolog.Nop(), bus, path)

	if got := e.GetNeedState()["social"]; diffAbs(got, 0.4) > 0.001 {
		t.Fatalf("expected value 0.4 to load despite malformed timestamps elsewhere, got %v", got)
	}
}

func diffAbs(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}
