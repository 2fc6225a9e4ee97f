package activity

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Saguny/projectghost/internal/eventbus"
)

func newTestBus(t *testing.T) *eventbus.Bus {
	t.Helper()
	bus := eventbus.New(zerolog.Nop())
	bus.Start()
	t.Cleanup(bus.Stop)
	return bus
}

func TestGetContextReturnsIdleWhenNoCategoryProcessRunning(t *testing.T) {
	bus := newTestBus(t)
	s := New(bus, Categories{Gaming: []string{"definitely-not-a-real-process.exe"}})
	ctx := s.GetContext(context.Background())
	if !strings.Contains(ctx, "Idle") {
		t.Fatalf("expected Idle context, got %q", ctx)
	}
}

// selfProcessName returns the test binary's own /proc comm name, the one
// process name guaranteed to be running while the test runs.
func selfProcessName(t *testing.T) string {
	t.Helper()
	comm, err := os.ReadFile("/proc/self/comm")
	if err != nil {
		t.Fatalf("reading own process name: %v", err)
	}
	return strings.TrimSpace(string(comm))
}

func TestDetectActivityPrioritizesGamingOverCoding(t *testing.T) {
	self := selfProcessName(t)
	// The running test process is listed in both categories; Gaming wins.
	s := New(newTestBus(t), Categories{
		Gaming: []string{self},
		Coding: []string{self},
	})
	activity, app := s.detectActivity()
	if activity != "Gaming" || app != self {
		t.Fatalf("expected Gaming/%s, got %s/%s", self, activity, app)
	}
}

func TestGetContextEmitsOnChangeThenSuppressesRepeat(t *testing.T) {
	bus := newTestBus(t)
	s := New(bus, Categories{})

	changes := make(chan eventbus.UserActivityChanged, 4)
	eventbus.Subscribe(bus, func(ctx context.Context, e eventbus.UserActivityChanged) {
		changes <- e
	})

	s.GetContext(context.Background())
	select {
	case e := <-changes:
		if e.Old != "Unknown" || e.New != "Idle" {
			t.Fatalf("expected Unknown->Idle transition, got %+v", e)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected an activity-change event on first call")
	}

	s.GetContext(context.Background())
	select {
	case e := <-changes:
		t.Fatalf("expected no repeat event for unchanged activity, got %+v", e)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestGetContextIncludesAppNameWhenPresent(t *testing.T) {
	bus := newTestBus(t)
	self := selfProcessName(t)
	s := New(bus, Categories{Coding: []string{self}})
	s.lastActivity = "Coding"
	ctx := s.GetContext(context.Background())
	if !strings.Contains(ctx, "User Activity:") {
		t.Fatalf("expected activity label in context, got %q", ctx)
	}
	if !strings.Contains(ctx, "Active App: "+self) {
		t.Fatalf("expected app name %q in context, got %q", self, ctx)
	}
}
