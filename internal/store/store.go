// Package store implements the Persistent Store (C1): a single embedded
// SQL engine with one process-wide connection guarded by mutual exclusion,
// schema-versioned through monotonically applied migrations. Grounded on
// the teacher's internal/db package (same pure-Go sqlite driver, same
// schema_migrations pattern) and on original_source's state/db.rs for the
// v1 table set.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure-Go sqlite driver, no cgo
)

// Store wraps the single shared *sql.DB connection. Every public method
// acquires mu, performs at most one transaction, and releases it before
// returning — per SPEC_FULL.md §4.1.
type Store struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

// Open is idempotent: it ensures the parent directory exists, opens the
// connection, sets WAL journal mode and foreign keys on, and runs
// migrations. Migration failure aborts Open (fatal, per §4.1).
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("store: create dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	db.SetMaxOpenConns(1) // single process-wide connection, per §4.1

	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: set wal: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=ON;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: set foreign_keys: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	if err := s.seedPromptsLocked(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: seed prompts: %w", err)
	}
	return s, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SchemaVersion returns the highest applied migration version.
func (s *Store) SchemaVersion() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var version int
	err := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version)
	return version, err
}

var migrations = []string{migration1, migration2, migration3, migration4, migration5}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`); err != nil {
		return err
	}

	var current int
	if err := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return err
	}

	for i, migration := range migrations {
		version := i + 1
		if version <= current {
			continue
		}
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(migration); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: %w", version, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: record: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d: commit: %w", version, err)
		}
	}
	return nil
}

// migration1 establishes the v1 schema from SPEC_FULL.md §4.1: a single
// embedded store holding pipeline state, snapshots, features,
// interactions, prompts, and project documents.
const migration1 = `
CREATE TABLE IF NOT EXISTS project_state (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	data TEXT NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS codebase_profile (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	data TEXT NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS features (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	stage TEXT NOT NULL DEFAULT 'Idea',
	description TEXT NOT NULL DEFAULT '',
	worktree_path TEXT NOT NULL DEFAULT '',
	error TEXT NOT NULL DEFAULT '',
	mode TEXT NOT NULL DEFAULT '',
	rejection_count INTEGER NOT NULL DEFAULT 0,
	parent_id TEXT NOT NULL DEFAULT '',
	tags TEXT NOT NULL DEFAULT '[]',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_features_stage ON features(stage);

CREATE TABLE IF NOT EXISTS snapshots (
	id TEXT PRIMARY KEY,
	stage TEXT NOT NULL,
	timestamp DATETIME NOT NULL,
	state TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	parent_id TEXT NOT NULL DEFAULT '',
	is_rollback_point INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_snapshots_stage ON snapshots(stage);

CREATE TABLE IF NOT EXISTS memories (
	id TEXT PRIMARY KEY,
	text TEXT NOT NULL,
	source_type TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_memories_text ON memories(text);
CREATE INDEX IF NOT EXISTS idx_memories_source_type ON memories(source_type);

CREATE TABLE IF NOT EXISTS interactions (
	id TEXT PRIMARY KEY,
	thread_id TEXT NOT NULL DEFAULT '',
	kind TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'Pending',
	from_agent TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	options TEXT NOT NULL DEFAULT '[]',
	schema TEXT NOT NULL DEFAULT '',
	response TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	resolved_at DATETIME
);
CREATE INDEX IF NOT EXISTS idx_interactions_status ON interactions(status);

CREATE TABLE IF NOT EXISTS ideas (
	id TEXT PRIMARY KEY,
	text TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS context_manifest (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	data TEXT NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS prompt_templates (
	slug TEXT NOT NULL,
	version INTEGER NOT NULL,
	content TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (slug, version)
);
CREATE INDEX IF NOT EXISTS idx_prompt_templates_slug ON prompt_templates(slug);

CREATE TABLE IF NOT EXISTS project_documents (
	slug TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	content TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// migration2 adds the events audit trail — append-only, per invariant 5.
const migration2 = `
CREATE TABLE IF NOT EXISTS events (
	id TEXT PRIMARY KEY,
	timestamp DATETIME NOT NULL,
	kind TEXT NOT NULL,
	agent TEXT NOT NULL DEFAULT '',
	unknown_id TEXT NOT NULL DEFAULT '',
	data TEXT NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_events_kind ON events(kind);
`

// migration3 adds decisions/verdicts/research-result persistence, needed
// to satisfy P1 (every Decision has exactly one upstream ResearchResult
// and Verdict, recoverable after a crash).
const migration3 = `
CREATE TABLE IF NOT EXISTS research_results (
	unknown_id TEXT PRIMARY KEY,
	data TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS decisions (
	unknown_id TEXT PRIMARY KEY,
	data TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS verdicts (
	unknown_id TEXT PRIMARY KEY,
	data TEXT NOT NULL
);
`

// migration4 adds per-adapter provider/model pinning, grounded in the
// teacher's agent_provider_config table.
const migration4 = `
CREATE TABLE IF NOT EXISTS agent_provider_config (
	agent_type TEXT PRIMARY KEY,
	provider TEXT NOT NULL DEFAULT 'anthropic',
	model TEXT NOT NULL DEFAULT '',
	system_prompt_override TEXT NOT NULL DEFAULT ''
);
`

// migration5 adds agent run bookkeeping for the housekeeping stale-run
// reaper (§4.9), grounded in the teacher's agent_runs table.
const migration5 = `
CREATE TABLE IF NOT EXISTS agent_runs (
	id TEXT PRIMARY KEY,
	agent TEXT NOT NULL,
	feature_id TEXT NOT NULL DEFAULT '',
	worktree TEXT NOT NULL DEFAULT '',
	started_at DATETIME NOT NULL,
	ended_at DATETIME,
	status TEXT NOT NULL DEFAULT 'running',
	output TEXT NOT NULL DEFAULT '',
	error TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_agent_runs_status ON agent_runs(status);
`
