// Package scheduler wraps robfig/cron/v3 into the small registration surface
// SPEC_FULL.md's ambient scheduling section names: the BDI tick loop, the
// emotion circadian tick and the cryostasis poll loop all register against
// one shared scheduler rather than each rolling its own goroutine+ticker
// (no memory-snapshot job is registered), matching the injectable-clock,
// single-owner-service shape of the teacher's pkg/cron/service.go (adapted
// down from its persistent job store, which this daemon doesn't need — its
// jobs are in-process background loops, not user-authored cron jobs).
package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// EntryID identifies a registered job, returned by Every/Cron so callers can
// Unregister it later (the pause/resume shape internal/cryostasis needs).
type EntryID = cron.EntryID

// Scheduler owns a single robfig/cron/v3 instance. Safe for concurrent use.
type Scheduler struct {
	log zerolog.Logger
	c   *cron.Cron

	mu    sync.Mutex
	names map[cron.EntryID]string
}

// New constructs a Scheduler. Call Start before any registered job will run.
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		log:   log.With().Str("component", "scheduler").Logger(),
		c:     cron.New(),
		names: make(map[cron.EntryID]string),
	}
}

// Start launches the underlying cron loop in its own goroutine.
func (s *Scheduler) Start() {
	s.c.Start()
}

// Stop halts the scheduler, waiting for any running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.c.Stop()
	<-ctx.Done()
}

// fixedInterval is a cron.Schedule that fires every d after the previous run.
// cron's own "@every" descriptor rounds intervals below one second up to a
// full second; this keeps them as given.
type fixedInterval time.Duration

// Next implements cron.Schedule.
func (d fixedInterval) Next(t time.Time) time.Time { return t.Add(time.Duration(d)) }

// Every registers fn to run at a fixed interval, panic-isolated and logged
// per-invocation failure the way internal/eventbus isolates handlers.
func (s *Scheduler) Every(name string, interval time.Duration, fn func()) (EntryID, error) {
	if interval <= 0 {
		return 0, fmt.Errorf("scheduler: register %q: interval must be positive, got %s", name, interval)
	}
	id := s.c.Schedule(fixedInterval(interval), cron.FuncJob(s.wrap(name, fn)))
	s.mu.Lock()
	s.names[id] = name
	s.mu.Unlock()
	return id, nil
}

// Cron registers fn against a standard 5-field cron expression (or a
// robfig "@every"/"@hourly"-style descriptor).
func (s *Scheduler) Cron(name, expr string, fn func()) (EntryID, error) {
	id, err := s.c.AddFunc(expr, s.wrap(name, fn))
	if err != nil {
		return 0, fmt.Errorf("scheduler: register %q: %w", name, err)
	}
	s.mu.Lock()
	s.names[id] = name
	s.mu.Unlock()
	return id, nil
}

// Unregister removes a previously registered job. Used by internal/cryostasis
// to pause its own poll loop during a pipeline run and register it again with
// Every afterwards, rather than gating it behind a boolean flag checked on
// every tick.
func (s *Scheduler) Unregister(id EntryID) {
	s.c.Remove(id)
	s.mu.Lock()
	delete(s.names, id)
	s.mu.Unlock()
}

func (s *Scheduler) wrap(name string, fn func()) func() {
	return func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error().Str("job", name).Interface("panic", r).Msg("scheduled job panicked")
			}
		}()
		start := time.Now()
		fn()
		s.log.Debug().Str("job", name).Dur("took", time.Since(start)).Msg("scheduled job ran")
	}
}
