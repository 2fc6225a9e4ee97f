package bdi

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

const stateVersion = 2

// needSnapshot mirrors bdi_state.json's per-need document shape.
type needSnapshot struct {
	Value         float64 `json:"value"`
	LastSatisfied string  `json:"last_satisfied"`
	LastDecay     string  `json:"last_decay"`
}

type snapshot struct {
	Timestamp  string                  `json:"timestamp"`
	Needs      map[string]needSnapshot `json:"needs"`
	LastAction string                  `json:"last_action"`
	Version    int                     `json:"version"`
}

type store struct {
	path string
}

func newStore(path string) *store { return &store{path: path} }

// snapshotLocked builds a snapshot from e.needs/e.lastAction. Caller must
// already hold e.mu.
func (e *Engine) snapshotLocked() snapshot {
	needs := make(map[string]needSnapshot, len(e.needs))
	for name, n := range e.needs {
		needs[name] = needSnapshot{
			Value:         n.Value,
			LastSatisfied: n.LastSatisfied.Format(time.RFC3339Nano),
			LastDecay:     n.LastDecay.Format(time.RFC3339Nano),
		}
	}
	return snapshot{
		Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
		Needs:      needs,
		LastAction: e.lastAction.Format(time.RFC3339Nano),
		Version:    stateVersion,
	}
}

func (s *store) save(log zerolog.Logger, snap snapshot) {
	if s.path == "" {
		return
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal BDI state")
		return
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		log.Error().Err(err).Msg("failed to create BDI state directory")
		return
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		log.Error().Err(err).Msg("failed to write BDI state")
		return
	}
	if err := os.Rename(tmp, s.path); err != nil {
		log.Error().Err(err).Msg("failed to finalize BDI state")
		return
	}
	log.Debug().Msg("BDI state saved")
}

// loadState restores need values and timestamps from disk, per
// bdi_engine.py's _load_state: unknown fields are ignored, malformed
// timestamps fall back to now, and a missing file is not an error.
func (e *Engine) loadState() {
	if e.store.path == "" {
		return
	}
	data, err := os.ReadFile(e.store.path)
	if err != nil {
		return
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		e.log.Warn().Err(err).Msg("failed to load BDI state (using defaults)")
		return
	}

	now := time.Now().UTC()
	safeParse := func(s string) time.Time {
		if s == "" {
			return now
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return now
		}
		return t
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for name, data := range snap.Needs {
		n, ok := e.needs[name]
		if !ok {
			continue
		}
		n.Value = clamp01(data.Value)
		n.LastSatisfied = safeParse(data.LastSatisfied)
		n.LastDecay = safeParse(data.LastDecay)
	}
	e.lastAction = safeParse(snap.LastAction)
	e.log.Info().Msg("loaded BDI state from disk")
}
