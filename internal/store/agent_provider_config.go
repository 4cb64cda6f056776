package store

import (
	"database/sql"
	"errors"

	"github.com/madhatter5501/catalyst/domain"
)

// GetAgentProviderConfig returns the provider/model override for one
// adapter, or domain.KindNotFound if never set (callers fall back to the
// global default provider/model in that case).
func (s *Store) GetAgentProviderConfig(agentType string) (domain.AgentProviderConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var cfg domain.AgentProviderConfig
	cfg.AgentType = agentType
	err := s.db.QueryRow(`
		SELECT provider, model, system_prompt_override FROM agent_provider_config WHERE agent_type = ?
	`, agentType).Scan(&cfg.Provider, &cfg.Model, &cfg.SystemPromptOverride)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.AgentProviderConfig{}, domain.NewError(domain.KindNotFound, "agent_provider_config "+agentType, nil)
	}
	if err != nil {
		return domain.AgentProviderConfig{}, domain.NewError(domain.KindStorage, "get_agent_provider_config", err)
	}
	return cfg, nil
}

// SetAgentProviderConfig upserts the provider/model override for one
// adapter.
func (s *Store) SetAgentProviderConfig(cfg domain.AgentProviderConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO agent_provider_config (agent_type, provider, model, system_prompt_override)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(agent_type) DO UPDATE SET
			provider=excluded.provider, model=excluded.model,
			system_prompt_override=excluded.system_prompt_override
	`, cfg.AgentType, cfg.Provider, cfg.Model, cfg.SystemPromptOverride)
	if err != nil {
		return domain.NewError(domain.KindStorage, "set_agent_provider_config", err)
	}
	return nil
}

// ListAgentProviderConfigs returns every pinned adapter override.
func (s *Store) ListAgentProviderConfigs() ([]domain.AgentProviderConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT agent_type, provider, model, system_prompt_override FROM agent_provider_config`)
	if err != nil {
		return nil, domain.NewError(domain.KindStorage, "list_agent_provider_configs", err)
	}
	defer rows.Close()

	var out []domain.AgentProviderConfig
	for rows.Next() {
		var cfg domain.AgentProviderConfig
		if err := rows.Scan(&cfg.AgentType, &cfg.Provider, &cfg.Model, &cfg.SystemPromptOverride); err != nil {
			return nil, domain.NewError(domain.KindStorage, "list_agent_provider_configs: scan", err)
		}
		out = append(out, cfg)
	}
	return out, rows.Err()
}
