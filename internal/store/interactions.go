package store

import (
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/madhatter5501/catalyst/domain"
)

func scanInteraction(row interface {
	Scan(dest ...any) error
}) (domain.Interaction, error) {
	var in domain.Interaction
	var optionsJSON string
	var resolvedAt sql.NullTime
	err := row.Scan(&in.ID, &in.ThreadID, &in.Kind, &in.Status, &in.FromAgent, &in.Title,
		&in.Description, &optionsJSON, &in.Schema, &in.Response, &in.CreatedAt, &resolvedAt)
	if err != nil {
		return in, err
	}
	if optionsJSON != "" {
		_ = json.Unmarshal([]byte(optionsJSON), &in.Options)
	}
	if resolvedAt.Valid {
		in.ResolvedAt = &resolvedAt.Time
	}
	return in, nil
}

// SaveInteraction upserts an Interaction by id — the C3 "save" contract.
func (s *Store) SaveInteraction(in domain.Interaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if in.CreatedAt.IsZero() {
		in.CreatedAt = timeNow()
	}
	optionsJSON, _ := json.Marshal(in.Options)

	_, err := s.db.Exec(`
		INSERT INTO interactions (id, thread_id, kind, status, from_agent, title, description,
			options, schema, response, created_at, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			thread_id=excluded.thread_id, kind=excluded.kind, status=excluded.status,
			from_agent=excluded.from_agent, title=excluded.title, description=excluded.description,
			options=excluded.options, schema=excluded.schema, response=excluded.response,
			resolved_at=excluded.resolved_at
	`, in.ID, in.ThreadID, in.Kind, in.Status, in.FromAgent, in.Title, in.Description,
		string(optionsJSON), in.Schema, in.Response, in.CreatedAt, in.ResolvedAt)
	if err != nil {
		return domain.NewError(domain.KindStorage, "save_interaction", err)
	}
	return nil
}

// ResolveInteraction sets status=Responded, stamps resolved_at, and stores
// the response. Fails with domain.KindNotFound if id is absent.
func (s *Store) ResolveInteraction(id, response string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := timeNow()
	res, err := s.db.Exec(`
		UPDATE interactions SET status=?, response=?, resolved_at=? WHERE id=?
	`, domain.InteractionResponded, response, now, id)
	if err != nil {
		return domain.NewError(domain.KindStorage, "resolve_interaction", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.NewError(domain.KindNotFound, "interaction "+id, nil)
	}
	return nil
}

// GetInteraction returns one Interaction by id.
func (s *Store) GetInteraction(id string) (domain.Interaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRow(`
		SELECT id, thread_id, kind, status, from_agent, title, description, options, schema,
			response, created_at, resolved_at
		FROM interactions WHERE id = ?
	`, id)
	in, err := scanInteraction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Interaction{}, domain.NewError(domain.KindNotFound, "interaction "+id, nil)
	}
	if err != nil {
		return domain.Interaction{}, domain.NewError(domain.KindStorage, "get_interaction", err)
	}
	return in, nil
}

// ListPendingInteractions returns Pending interactions, newest-first.
func (s *Store) ListPendingInteractions() ([]domain.Interaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queryInteractions(`
		SELECT id, thread_id, kind, status, from_agent, title, description, options, schema,
			response, created_at, resolved_at
		FROM interactions WHERE status = ? ORDER BY created_at DESC
	`, domain.InteractionPending)
}

// ListInteractionHistory returns the most recent `limit` interactions of
// any status, newest-first.
func (s *Store) ListInteractionHistory(limit int) ([]domain.Interaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queryInteractions(`
		SELECT id, thread_id, kind, status, from_agent, title, description, options, schema,
			response, created_at, resolved_at
		FROM interactions ORDER BY created_at DESC LIMIT ?
	`, limit)
}

func (s *Store) queryInteractions(query string, args ...any) ([]domain.Interaction, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, domain.NewError(domain.KindStorage, "query_interactions", err)
	}
	defer rows.Close()

	var out []domain.Interaction
	for rows.Next() {
		in, err := scanInteraction(rows)
		if err != nil {
			return nil, domain.NewError(domain.KindStorage, "query_interactions: scan", err)
		}
		out = append(out, in)
	}
	return out, rows.Err()
}
