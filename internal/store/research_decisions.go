package store

import (
	"database/sql"
	"encoding/json"

	"github.com/madhatter5501/catalyst/domain"
)

// SaveResearchResult persists one ResearchResult, keyed by unknown_id.
func (s *Store) SaveResearchResult(r domain.ResearchResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return upsertJSONRow(s.db, "research_results", "unknown_id", r.UnknownID, r)
}

// SaveDecision persists one Decision, keyed by unknown_id.
func (s *Store) SaveDecision(d domain.Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return upsertJSONRow(s.db, "decisions", "unknown_id", d.UnknownID, d)
}

// SaveVerdict persists one Verdict, keyed by unknown_id.
func (s *Store) SaveVerdict(v domain.Verdict) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return upsertJSONRow(s.db, "verdicts", "unknown_id", v.UnknownID, v)
}

// ListDecisions returns every persisted Decision.
func (s *Store) ListDecisions() ([]domain.Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Decision
	err := scanJSONRows(s.db, "decisions", &out)
	return out, err
}

// ListVerdicts returns every persisted Verdict.
func (s *Store) ListVerdicts() ([]domain.Verdict, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Verdict
	err := scanJSONRows(s.db, "verdicts", &out)
	return out, err
}

// ListResearchResults returns every persisted ResearchResult.
func (s *Store) ListResearchResults() ([]domain.ResearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ResearchResult
	err := scanJSONRows(s.db, "research_results", &out)
	return out, err
}

func upsertJSONRow(db *sql.DB, table, keyCol, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return domain.NewError(domain.KindStorage, "encode "+table, err)
	}
	_, err = db.Exec(`INSERT INTO `+table+` (`+keyCol+`, data) VALUES (?, ?)
		ON CONFLICT(`+keyCol+`) DO UPDATE SET data = excluded.data`, key, string(data))
	if err != nil {
		return domain.NewError(domain.KindStorage, "upsert "+table, err)
	}
	return nil
}

func scanJSONRows(db *sql.DB, table string, out any) error {
	rows, err := db.Query(`SELECT data FROM ` + table)
	if err != nil {
		return domain.NewError(domain.KindStorage, "list "+table, err)
	}
	defer rows.Close()

	var raw []json.RawMessage
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return domain.NewError(domain.KindStorage, "list "+table+": scan", err)
		}
		raw = append(raw, json.RawMessage(data))
	}
	if err := rows.Err(); err != nil {
		return domain.NewError(domain.KindStorage, "list "+table+": rows", err)
	}

	combined, err := json.Marshal(raw)
	if err != nil {
		return domain.NewError(domain.KindStorage, "list "+table+": combine", err)
	}
	return json.Unmarshal(combined, out)
}
