package store

import (
	"encoding/json"

	"github.com/madhatter5501/catalyst/domain"
)

// GetProjectState returns the single project_state row as a generic map.
func (s *Store) GetProjectState() (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getProjectStateLocked()
}

func (s *Store) getProjectStateLocked() (map[string]any, error) {
	var data string
	err := s.db.QueryRow(`SELECT data FROM project_state WHERE id = 1`).Scan(&data)
	if err != nil {
		// No row yet is not an error: empty state.
		return map[string]any{}, nil
	}
	var state map[string]any
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, domain.NewError(domain.KindStorage, "get_project_state: decode", err)
	}
	return state, nil
}

// SetProjectState upserts the single project_state row.
func (s *Store) SetProjectState(state map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(state)
	if err != nil {
		return domain.NewError(domain.KindStorage, "set_project_state: encode", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO project_state (id, data) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data
	`, string(data))
	if err != nil {
		return domain.NewError(domain.KindStorage, "set_project_state", err)
	}
	return nil
}

// GetCodebaseProfile returns the single codebase_profile row.
func (s *Store) GetCodebaseProfile() (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var data string
	err := s.db.QueryRow(`SELECT data FROM codebase_profile WHERE id = 1`).Scan(&data)
	if err != nil {
		return map[string]any{}, nil
	}
	var profile map[string]any
	if err := json.Unmarshal([]byte(data), &profile); err != nil {
		return nil, domain.NewError(domain.KindStorage, "get_codebase_profile: decode", err)
	}
	return profile, nil
}

// SetCodebaseProfile upserts the single codebase_profile row.
func (s *Store) SetCodebaseProfile(profile map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(profile)
	if err != nil {
		return domain.NewError(domain.KindStorage, "set_codebase_profile: encode", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO codebase_profile (id, data) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data
	`, string(data))
	if err != nil {
		return domain.NewError(domain.KindStorage, "set_codebase_profile", err)
	}
	return nil
}
