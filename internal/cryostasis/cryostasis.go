// Package cryostasis implements spec.md §4.11's Resource Gater: a poll loop
// that hibernates the LLM endpoint when resource pressure or a blacklisted
// process is detected, and wakes it back up once pressure clears, subject to
// a cooldown that prevents thrashing.
package cryostasis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Saguny/projectghost/internal/eventbus"
	"github.com/Saguny/projectghost/internal/scheduler"
)

// Sample is one reading from a ResourceProbe.
type Sample struct {
	GPUUtilPct float64
	VRAMMb     float64
	CPUUtilPct float64
	// BlacklistHit, if non-empty, names the blacklisted process found running.
	BlacklistHit string
}

// ResourceProbe is the abstract external monitor spec.md §6 names. Samples
// must not block longer than the gater's poll interval.
type ResourceProbe interface {
	Sample(ctx context.Context) (Sample, error)
}

// Unloader is the subset of the LLMClient contract the gater drives:
// unload() to free model memory on hibernation.
type Unloader interface {
	Unload(ctx context.Context) error
}

// NoopUnloader is the Unloader for remote-API providers (anthropic,
// openai): there is no local model weight to free. The gater itself rejects
// no requests; while IsHibernating the orchestrator skips proactive impulses
// and calls Wake before handling a user message.
type NoopUnloader struct{}

// Unload implements Unloader.
func (NoopUnloader) Unload(ctx context.Context) error { return nil }

// Policy holds the configured thresholds.
type Policy struct {
	GPUPct        float64
	CPUPct        float64
	VRAMMb        float64
	Blacklist     []string
	WakeCooldown  time.Duration
}

// Gater owns the hibernation state and the poll loop.
type Gater struct {
	log      zerolog.Logger
	bus      *eventbus.Bus
	sched    *scheduler.Scheduler
	probe    ResourceProbe
	unloader Unloader
	policy   Policy

	mu          sync.Mutex
	hibernating  bool
	lastWake     time.Time
	hibernatedAt time.Time
	entryID     scheduler.EntryID
	registered  bool
}

// New constructs a Gater. Call Start to begin polling.
func New(log zerolog.Logger, bus *eventbus.Bus, sched *scheduler.Scheduler, probe ResourceProbe, unloader Unloader, policy Policy) *Gater {
	return &Gater{
		log:      log.With().Str("component", "cryostasis").Logger(),
		bus:      bus,
		sched:    sched,
		probe:    probe,
		unloader: unloader,
		policy:   policy,
	}
}

// Start registers the poll loop with the shared scheduler.
func (g *Gater) Start(pollInterval time.Duration) error {
	id, err := g.sched.Every("cryostasis-poll", pollInterval, g.poll)
	if err != nil {
		return fmt.Errorf("cryostasis: start poll loop: %w", err)
	}
	g.mu.Lock()
	g.entryID = id
	g.registered = true
	g.mu.Unlock()
	return nil
}

// PauseMonitoring unregisters the poll loop for the duration of a pipeline
// run, so resource thresholds cannot flip hibernation state mid-inference.
func (g *Gater) PauseMonitoring() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.registered {
		g.sched.Unregister(g.entryID)
		g.registered = false
	}
}

// ResumeMonitoring re-registers the poll loop after a pipeline run completes.
func (g *Gater) ResumeMonitoring(pollInterval time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.registered {
		return
	}
	id, err := g.sched.Every("cryostasis-poll", pollInterval, g.poll)
	if err != nil {
		g.log.Error().Err(err).Msg("failed to resume resource monitoring")
		return
	}
	g.entryID = id
	g.registered = true
}

// IsHibernating reports the current hibernation state.
func (g *Gater) IsHibernating() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.hibernating
}

// Wake forces the gater out of hibernation, enforcing the wake cooldown
// measured from the start of the current hibernation.
// Used by the orchestrator's wake gate before running the cognitive pipeline.
func (g *Gater) Wake(ctx context.Context) {
	g.mu.Lock()
	if !g.hibernating {
		g.mu.Unlock()
		return
	}
	since := time.Since(g.hibernatedAt)
	g.mu.Unlock()
	if since < g.policy.WakeCooldown {
		time.Sleep(g.policy.WakeCooldown - since)
	}
	g.setHibernating(false, 0)
}

func (g *Gater) poll() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sample, err := g.probe.Sample(ctx)
	if err != nil {
		g.log.Warn().Err(err).Msg("resource probe sample failed")
		return
	}

	shouldHibernate, resource, value, threshold := g.evaluate(sample)
	if shouldHibernate == g.IsHibernating() {
		return
	}

	if shouldHibernate {
		g.hibernate(ctx, resource, value, threshold)
	} else {
		since := time.Since(g.lastWakeSnapshot())
		if since < g.policy.WakeCooldown {
			return
		}
		g.setHibernating(false, 0)
	}
}

func (g *Gater) evaluate(s Sample) (bool, string, float64, float64) {
	if s.BlacklistHit != "" {
		return true, "blacklisted_process", 1, 1
	}
	if g.policy.GPUPct > 0 && s.GPUUtilPct >= g.policy.GPUPct {
		return true, "gpu_util", s.GPUUtilPct, g.policy.GPUPct
	}
	if g.policy.CPUPct > 0 && s.CPUUtilPct >= g.policy.CPUPct {
		return true, "cpu_util", s.CPUUtilPct, g.policy.CPUPct
	}
	if g.policy.VRAMMb > 0 && s.VRAMMb >= g.policy.VRAMMb {
		return true, "vram_mb", s.VRAMMb, g.policy.VRAMMb
	}
	return false, "", 0, 0
}

func (g *Gater) hibernate(ctx context.Context, resource string, value, threshold float64) {
	var freedMB float64
	if g.unloader != nil {
		if err := g.unloader.Unload(ctx); err != nil {
			g.log.Error().Err(err).Msg("failed to unload LLM on hibernation")
		}
	}
	g.setHibernating(true, 0)

	g.bus.Publish(eventbus.SystemResourceAlert{
		Timestamp: time.Now(),
		Resource:  resource,
		Value:     value,
		Threshold: threshold,
		Action:    "hibernate",
	})
	g.bus.Publish(eventbus.CryostasisActivated{
		Timestamp: time.Now(),
		Reason:    resource,
		FreedMB:   freedMB,
	})
}

func (g *Gater) setHibernating(state bool, loadTime time.Duration) {
	g.mu.Lock()
	wasHibernating := g.hibernating
	g.hibernating = state
	if !state {
		g.lastWake = time.Now()
	} else if !wasHibernating {
		g.hibernatedAt = time.Now()
	}
	g.mu.Unlock()

	if wasHibernating && !state {
		g.bus.Publish(eventbus.CryostasisDeactivated{
			Timestamp: time.Now(),
			LoadTime:  loadTime,
		})
	}
}

func (g *Gater) lastWakeSnapshot() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastWake
}
