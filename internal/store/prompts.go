package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/madhatter5501/catalyst/domain"
)

// defaultPrompts seeds the prompt_templates table on first boot, one slug
// per adapter named in SPEC_FULL.md §4.6.
var defaultPrompts = map[string]string{
	"parse":       "You are the Parse agent. Identify ambiguities in the goal.",
	"research":    "You are the Research agent. Investigate one unknown at a time.",
	"architect":   "You are the Architect agent. Decide how to resolve one unknown.",
	"critic":      "You are the Critic agent. Review a Decision for soundness.",
	"atomizer":    "You are the Atomizer agent. Break a feature into agent-sized modules.",
	"taskmaster":  "You are the Taskmaster agent. Produce an ordered Mission.",
	"drafter":     "You are the Drafter agent. Write the source for one file.",
	"builder":     "You are the Builder agent. Make the build and tests pass.",
	"webscraper":  "You are the WebScraper agent. Extract the relevant content from HTML.",
}

// GetPrompt returns the latest content for slug, failing with
// domain.KindNotFound if absent.
func (s *Store) GetPrompt(slug string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var content string
	err := s.db.QueryRow(`
		SELECT content FROM prompt_templates
		WHERE slug = ? ORDER BY version DESC LIMIT 1
	`, slug).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.NewError(domain.KindNotFound, fmt.Sprintf("prompt %q not found", slug), nil)
	}
	if err != nil {
		return "", domain.NewError(domain.KindStorage, "get_prompt", err)
	}
	return content, nil
}

// SetPrompt upserts a new version of slug's content. The version
// monotonically increases even when content equals the prior version
// (per R1 — "version strictly increases").
func (s *Store) SetPrompt(slug, content string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, domain.NewError(domain.KindStorage, "set_prompt: begin", err)
	}
	defer tx.Rollback()

	var maxVersion int
	if err := tx.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM prompt_templates WHERE slug = ?`, slug).Scan(&maxVersion); err != nil {
		return 0, domain.NewError(domain.KindStorage, "set_prompt: read version", err)
	}
	newVersion := maxVersion + 1

	if _, err := tx.Exec(`
		INSERT INTO prompt_templates (slug, version, content) VALUES (?, ?, ?)
	`, slug, newVersion, content); err != nil {
		return 0, domain.NewError(domain.KindStorage, "set_prompt: insert", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, domain.NewError(domain.KindStorage, "set_prompt: commit", err)
	}
	return newVersion, nil
}

// ListPrompts returns every distinct slug currently stored.
func (s *Store) ListPrompts() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT DISTINCT slug FROM prompt_templates ORDER BY slug`)
	if err != nil {
		return nil, domain.NewError(domain.KindStorage, "list_prompts", err)
	}
	defer rows.Close()

	var slugs []string
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, domain.NewError(domain.KindStorage, "list_prompts: scan", err)
		}
		slugs = append(slugs, slug)
	}
	return slugs, rows.Err()
}

// seedPromptsLocked is atomic and a no-op if any prompt already exists.
// Called from Open and SeedPrompts; it takes s.mu itself, so the caller
// must not hold it.
func (s *Store) seedPromptsLocked() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM prompt_templates`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for slug, content := range defaultPrompts {
		if _, err := tx.Exec(`
			INSERT INTO prompt_templates (slug, version, content) VALUES (?, 1, ?)
		`, slug, content); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SeedPrompts is the public, idempotent entry point to the seeding Open
// already performs; no-op if count>0, per §4.1.
func (s *Store) SeedPrompts() error {
	return s.seedPromptsLocked()
}
