package emotion

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

const stateVersion = 1

// snapshot is the on-disk schema for emotional_state.json, matching
// spec.md's documented field list exactly.
type snapshot struct {
	Timestamp     time.Time `json:"timestamp"`
	Pleasure      float64   `json:"pleasure"`
	Arousal       float64   `json:"arousal"`
	Dominance     float64   `json:"dominance"`
	GrudgeMode    bool      `json:"grudge_mode"`
	GrudgeTrigger string    `json:"grudge_trigger,omitempty"`
	GrudgeStart   time.Time `json:"grudge_start,omitempty"`
	Version       int       `json:"version"`
}

// store persists PAD + grudge state to a single JSON document, written
// atomically (temp file + rename), matching the write-to-temp-then-rename
// pattern used throughout the teacher's own state files
// (pkg/cron/run_log.go's pruneCronLog).
type store struct {
	path string
}

func newStore(path string) *store {
	return &store{path: path}
}

func (st *store) save(log zerolog.Logger, s State, g Grudge) {
	if st.path == "" {
		return
	}
	snap := snapshot{
		Timestamp:     time.Now().UTC(),
		Pleasure:      s.Pleasure,
		Arousal:       s.Arousal,
		Dominance:     s.Dominance,
		GrudgeMode:    g.Active,
		GrudgeTrigger: g.TriggerReason,
		GrudgeStart:   g.StartedAt,
		Version:       stateVersion,
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal emotional state")
		return
	}
	if err := os.MkdirAll(filepath.Dir(st.path), 0o755); err != nil {
		log.Error().Err(err).Msg("failed to create emotional state directory")
		return
	}
	tmp := st.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		log.Error().Err(err).Msg("failed to write emotional state")
		return
	}
	if err := os.Rename(tmp, st.path); err != nil {
		log.Error().Err(err).Msg("failed to persist emotional state")
	}
}

// load reads a previously persisted snapshot. A missing file is not an
// error (ok=false, nothing logged). A parse error falls back to defaults
// with a warning, matching spec.md §4.2's persistence contract.
func (st *store) load(log zerolog.Logger) (snapshot, bool) {
	if st.path == "" {
		return snapshot{}, false
	}
	data, err := os.ReadFile(st.path)
	if err != nil {
		return snapshot{}, false
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		log.Warn().Err(err).Msg("failed to parse emotional state, falling back to defaults")
		return snapshot{}, false
	}
	return snap, true
}
