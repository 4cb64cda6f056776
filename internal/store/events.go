package store

import (
	"encoding/json"

	"github.com/madhatter5501/catalyst/domain"
)

// AppendEvent persists one Event to the append-only audit trail. Per
// DESIGN NOTES, the event bus is advisory and lossy — critical
// transitions are also durably recorded here so nothing depends on a
// subscriber having received a broadcast.
func (s *Store) AppendEvent(e domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(e.Data)
	if err != nil {
		return domain.NewError(domain.KindStorage, "append_event: encode", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO events (id, timestamp, kind, agent, unknown_id, data) VALUES (?, ?, ?, ?, ?, ?)
	`, e.ID, e.Timestamp, e.Kind, e.Agent, e.UnknownID, string(data))
	if err != nil {
		return domain.NewError(domain.KindStorage, "append_event", err)
	}
	return nil
}

// ListEvents returns every persisted Event, oldest-first. Per invariant
//5, this is an audit trail only — replay does not reconstruct state.
func (s *Store) ListEvents() ([]domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT id, timestamp, kind, agent, unknown_id, data FROM events ORDER BY timestamp`)
	if err != nil {
		return nil, domain.NewError(domain.KindStorage, "list_events", err)
	}
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		var e domain.Event
		var dataJSON string
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Kind, &e.Agent, &e.UnknownID, &dataJSON); err != nil {
			return nil, domain.NewError(domain.KindStorage, "list_events: scan", err)
		}
		if dataJSON != "" {
			_ = json.Unmarshal([]byte(dataJSON), &e.Data)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
