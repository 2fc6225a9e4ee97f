// Package beliefs implements the triplet knowledge graph described in
// spec.md §4.3: (entity, relation, value) facts with confidence, source, and
// a monotonic timestamp, backed by an embedded SQLite database accessed
// through go.mau.fi/util/dbutil the way the teacher's pkg/textfs.Store does.
package beliefs

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"go.mau.fi/util/dbutil"
)

// Triplet is one belief fact.
type Triplet struct {
	Entity     string
	Relation   string
	Value      string
	Timestamp  time.Time
	Confidence float64
	Source     string
}

// SourceGenesis marks an immutable, bootstrap-seeded triplet. Everything
// else (SourceInference, SourceUserTold, or any caller-chosen string) is
// mutable and can be overwritten by a later write to the same key.
const SourceGenesis = "genesis"

// Profile is the agent's self-model as spec.md §4.3 partitions it.
type Profile struct {
	Identity map[string]string
	Opinions map[string]string
	Traits   map[string]string
	Memories map[string]string
}

func emptyProfile() Profile {
	return Profile{
		Identity: map[string]string{},
		Opinions: map[string]string{},
		Traits:   map[string]string{},
		Memories: map[string]string{},
	}
}

// identityRelations is the fixed allowlist spec.md §4.3 names.
var identityRelations = map[string]bool{
	"is_ai": true, "has_body": true, "has_location": true,
	"exists_physically": true, "can_physical_action": true,
	"name": true, "type": true, "created_by": true, "purpose": true,
	"can_think": true, "can_remember": true, "can_reason": true,
	"can_converse": true, "can_form_opinions": true,
}

// Store is the belief knowledge graph. Construct with New, then call
// Initialize exactly once before any read, matching spec.md's split between
// schema setup (constructor) and initialization (counting genesis triplets,
// warning if the agent has no identity).
type Store struct {
	log zerolog.Logger
	db  *dbutil.Database

	lastTS map[string]time.Time
}

// New opens (or creates) the SQLite-backed belief database at path and
// ensures its schema exists. It does not seed genesis beliefs or perform the
// "no identity" check — call Initialize for that.
func New(log zerolog.Logger, path string) (*Store, error) {
	raw, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("beliefs: open sqlite: %w", err)
	}
	db, err := dbutil.NewWithDB(raw, "sqlite3")
	if err != nil {
		return nil, fmt.Errorf("beliefs: wrap db: %w", err)
	}
	s := &Store{
		log:    log.With().Str("component", "beliefs").Logger(),
		db:     db,
		lastTS: make(map[string]time.Time),
	}
	if err := s.ensureSchema(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS beliefs (
			entity     TEXT NOT NULL,
			relation   TEXT NOT NULL,
			value      TEXT NOT NULL,
			timestamp  TEXT NOT NULL,
			confidence REAL NOT NULL DEFAULT 1.0,
			source     TEXT NOT NULL DEFAULT 'inference',
			PRIMARY KEY (entity, relation)
		)
	`)
	if err != nil {
		return fmt.Errorf("beliefs: create schema: %w", err)
	}
	if _, err := s.db.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_beliefs_entity ON beliefs(entity)`); err != nil {
		return fmt.Errorf("beliefs: create entity index: %w", err)
	}
	if _, err := s.db.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_beliefs_relation ON beliefs(relation)`); err != nil {
		return fmt.Errorf("beliefs: create relation index: %w", err)
	}
	if _, err := s.db.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_beliefs_source ON beliefs(source)`); err != nil {
		return fmt.Errorf("beliefs: create source index: %w", err)
	}
	return nil
}

// Initialize counts genesis triplets and logs a prominent warning if none
// exist. Must be called exactly once, before any other Store method.
func (s *Store) Initialize(ctx context.Context) error {
	row := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM beliefs WHERE source = $1`, SourceGenesis)
	var count int
	if err := row.Scan(&count); err != nil {
		return fmt.Errorf("beliefs: count genesis triplets: %w", err)
	}
	if count == 0 {
		s.log.Warn().Msg("belief system has no genesis triplets: agent has no identity")
	}
	return nil
}

// timestampLayout is fixed-width (no trimmed fractional zeros) so that
// Search's ORDER BY on the text column sorts chronologically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func key(entity, relation string) string {
	return entity + "\x00" + relation
}

// Store writes or overwrites the (entity, relation) triplet. Genesis writes
// always succeed (idempotent overwrite). A non-genesis write is rejected if
// the existing entry for the key has source=genesis. Never returns an error
// to the caller: failures are logged and reported via the bool return,
// matching spec.md §4.3's "no exception crosses the API boundary".
func (s *Store) Store(ctx context.Context, entity, relation, value string, confidence float64, source string) bool {
	if source != SourceGenesis {
		existingSource, ok := s.sourceOf(ctx, entity, relation)
		if ok && existingSource == SourceGenesis {
			s.log.Warn().Str("entity", entity).Str("relation", relation).
				Msg("rejected write to immutable genesis belief")
			return false
		}
	}

	ts := s.nextTimestamp(entity, relation)
	_, err := s.db.Exec(ctx, `
		INSERT INTO beliefs (entity, relation, value, timestamp, confidence, source)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (entity, relation)
		DO UPDATE SET value=excluded.value, timestamp=excluded.timestamp,
		              confidence=excluded.confidence, source=excluded.source
	`, entity, relation, value, ts.Format(timestampLayout), confidence, source)
	if err != nil {
		s.log.Error().Err(err).Str("entity", entity).Str("relation", relation).Msg("failed to store belief")
		return false
	}
	return true
}

// nextTimestamp returns a timestamp strictly greater than the last one used
// for this key, guaranteeing the monotonic-timestamp invariant even under a
// coarse or adjusted system clock.
func (s *Store) nextTimestamp(entity, relation string) time.Time {
	now := time.Now().UTC()
	k := key(entity, relation)
	if prev, ok := s.lastTS[k]; ok && !now.After(prev) {
		now = prev.Add(time.Nanosecond)
	}
	s.lastTS[k] = now
	return now
}

func (s *Store) sourceOf(ctx context.Context, entity, relation string) (string, bool) {
	row := s.db.QueryRow(ctx, `SELECT source FROM beliefs WHERE entity=$1 AND relation=$2`, entity, relation)
	var source string
	if err := row.Scan(&source); err != nil {
		return "", false
	}
	return source, true
}

// Query returns the current value for (entity, relation), or ("", false) if
// unknown or on backend error.
func (s *Store) Query(ctx context.Context, entity, relation string) (string, bool) {
	row := s.db.QueryRow(ctx, `SELECT value FROM beliefs WHERE entity=$1 AND relation=$2`, entity, relation)
	var value string
	if err := row.Scan(&value); err != nil {
		if err != sql.ErrNoRows {
			s.log.Error().Err(err).Msg("query failed")
		}
		return "", false
	}
	return value, true
}

// Verify reports whether value matches the stored belief for (entity,
// relation). An unknown key is not a contradiction: Verify returns true.
func (s *Store) Verify(ctx context.Context, entity, relation, value string) bool {
	stored, ok := s.Query(ctx, entity, relation)
	if !ok {
		return true
	}
	return strings.EqualFold(stored, value)
}

// GetAll returns every (relation -> value) pair known about entity.
func (s *Store) GetAll(ctx context.Context, entity string) map[string]string {
	out := map[string]string{}
	rows, err := s.db.Query(ctx, `SELECT relation, value FROM beliefs WHERE entity=$1`, entity)
	if err != nil {
		s.log.Error().Err(err).Msg("get_all failed")
		return out
	}
	defer rows.Close()
	for rows.Next() {
		var relation, value string
		if err := rows.Scan(&relation, &value); err != nil {
			s.log.Error().Err(err).Msg("get_all scan failed")
			return map[string]string{}
		}
		out[relation] = value
	}
	return out
}

// GetAgentProfile partitions all entity="agent" triplets into
// identity/opinions/traits/memories per spec.md §4.3's relation-prefix rules.
func (s *Store) GetAgentProfile(ctx context.Context) Profile {
	profile := emptyProfile()
	for relation, value := range s.GetAll(ctx, "agent") {
		switch {
		case identityRelations[relation]:
			profile.Identity[relation] = value
		case strings.HasPrefix(relation, "trait_"):
			profile.Traits[relation] = value
		case strings.HasPrefix(relation, "memory_"):
			profile.Memories[relation] = value
		case strings.HasPrefix(relation, "likes_"), strings.HasPrefix(relation, "dislikes_"), strings.HasPrefix(relation, "opinion_on_"):
			profile.Opinions[relation] = value
		default:
			profile.Opinions[relation] = value
		}
	}
	return profile
}

// Search returns up to limit triplets matching the given (optional) entity
// and/or relation filters, most recent first.
func (s *Store) Search(ctx context.Context, entity, relation string, limit int) []Triplet {
	if limit <= 0 {
		limit = 10
	}
	query := `SELECT entity, relation, value, timestamp, confidence, source FROM beliefs WHERE 1=1`
	var args []any
	n := 1
	if entity != "" {
		n++
		query += fmt.Sprintf(" AND entity=$%d", n-1)
		args = append(args, entity)
	}
	if relation != "" {
		n++
		query += fmt.Sprintf(" AND relation=$%d", n-1)
		args = append(args, relation)
	}
	query += fmt.Sprintf(" ORDER BY timestamp DESC LIMIT $%d", n)
	args = append(args, limit)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		s.log.Error().Err(err).Msg("search failed")
		return nil
	}
	defer rows.Close()

	var out []Triplet
	for rows.Next() {
		var t Triplet
		var ts string
		if err := rows.Scan(&t.Entity, &t.Relation, &t.Value, &ts, &t.Confidence, &t.Source); err != nil {
			s.log.Error().Err(err).Msg("search scan failed")
			return nil
		}
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			t.Timestamp = parsed
		}
		out = append(out, t)
	}
	return out
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
