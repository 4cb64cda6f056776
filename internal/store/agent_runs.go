package store

import (
	"database/sql"
	"time"

	"github.com/madhatter5501/catalyst/domain"
)

// AgentRun records one adapter invocation, used by the housekeeping
// stale-run reaper (§4.9) to detect and clean up hung runs.
type AgentRun struct {
	ID        string
	Agent     string
	FeatureID string
	Worktree  string
	StartedAt time.Time
	EndedAt   *time.Time
	Status    string // running, success, failed
	Output    string
	Error     string
}

// StartAgentRun inserts a new run row with status "running".
func (s *Store) StartAgentRun(run AgentRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.StartedAt.IsZero() {
		run.StartedAt = timeNow()
	}
	if run.Status == "" {
		run.Status = "running"
	}
	_, err := s.db.Exec(`
		INSERT INTO agent_runs (id, agent, feature_id, worktree, started_at, status)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.ID, run.Agent, run.FeatureID, run.Worktree, run.StartedAt, run.Status)
	if err != nil {
		return domain.NewError(domain.KindStorage, "start_agent_run", err)
	}
	return nil
}

// CompleteAgentRun marks a run terminal with status/output/error.
func (s *Store) CompleteAgentRun(id, status, output, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := timeNow()
	_, err := s.db.Exec(`
		UPDATE agent_runs SET status=?, ended_at=?, output=?, error=? WHERE id=?
	`, status, now, output, errMsg, id)
	if err != nil {
		return domain.NewError(domain.KindStorage, "complete_agent_run", err)
	}
	return nil
}

// ListRunningAgentRuns returns every run still marked "running".
func (s *Store) ListRunningAgentRuns() ([]AgentRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT id, agent, feature_id, worktree, started_at, ended_at, status, output, error
		FROM agent_runs WHERE status = 'running'
	`)
	if err != nil {
		return nil, domain.NewError(domain.KindStorage, "list_running_agent_runs", err)
	}
	defer rows.Close()

	var out []AgentRun
	for rows.Next() {
		var run AgentRun
		var endedAt sql.NullTime
		if err := rows.Scan(&run.ID, &run.Agent, &run.FeatureID, &run.Worktree, &run.StartedAt,
			&endedAt, &run.Status, &run.Output, &run.Error); err != nil {
			return nil, domain.NewError(domain.KindStorage, "list_running_agent_runs: scan", err)
		}
		if endedAt.Valid {
			run.EndedAt = &endedAt.Time
		}
		out = append(out, run)
	}
	return out, rows.Err()
}
