package beliefs

import "context"

// GenesisTriplet is one immutable bootstrap fact written by SeedGenesis.
type GenesisTriplet struct {
	Entity   string
	Relation string
	Value    string
}

// DefaultGenesis is the agent's immutable self-model, grounded on
// original_source/ghost/cognition/belief_system.py's _load_core_beliefs
// list (source renamed from "core" to spec.md's "genesis" terminology; the
// sample persona name replaced with a generic one rather than carrying over
// the original's fictional-character name).
func DefaultGenesis(personaName string) []GenesisTriplet {
	if personaName == "" {
		personaName = "Nova"
	}
	return []GenesisTriplet{
		{"agent", "is_ai", "true"},
		{"agent", "has_body", "false"},
		{"agent", "has_location", "false"},
		{"agent", "exists_physically", "false"},
		{"agent", "can_physical_action", "false"},
		{"agent", "name", personaName},
		{"agent", "type", "autonomous_ai"},
		{"agent", "can_think", "true"},
		{"agent", "can_remember", "true"},
		{"agent", "can_reason", "true"},
		{"agent", "can_converse", "true"},
		{"agent", "can_form_opinions", "true"},
	}
}

// SeedGenesis writes each genesis triplet with confidence 1.0 and
// source=genesis. Safe to call on every startup: genesis writes are
// idempotent overwrites.
func SeedGenesis(ctx context.Context, s *Store, triplets []GenesisTriplet) {
	for _, t := range triplets {
		s.Store(ctx, t.Entity, t.Relation, t.Value, 1.0, SourceGenesis)
	}
}
