package store

import (
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/madhatter5501/catalyst/domain"
)

func scanSnapshot(row interface {
	Scan(dest ...any) error
}) (domain.Snapshot, error) {
	var snap domain.Snapshot
	var stateJSON string
	var isRollback int
	err := row.Scan(&snap.ID, &snap.Stage, &snap.Timestamp, &stateJSON, &snap.Description,
		&snap.ParentID, &isRollback)
	if err != nil {
		return snap, err
	}
	snap.IsRollbackPoint = isRollback != 0
	if err := json.Unmarshal([]byte(stateJSON), &snap.State); err != nil {
		return snap, err
	}
	return snap, nil
}

// InsertSnapshot persists a new, already-constructed Snapshot row.
func (s *Store) InsertSnapshot(snap domain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertSnapshotLocked(s.db, snap)
}

func (s *Store) insertSnapshotLocked(exec interface {
	Exec(query string, args ...any) (sql.Result, error)
}, snap domain.Snapshot) error {
	stateJSON, err := json.Marshal(snap.State)
	if err != nil {
		return domain.NewError(domain.KindStorage, "insert_snapshot: encode", err)
	}
	rollback := 0
	if snap.IsRollbackPoint {
		rollback = 1
	}
	_, err = exec.Exec(`
		INSERT INTO snapshots (id, stage, timestamp, state, description, parent_id, is_rollback_point)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, snap.ID, snap.Stage, snap.Timestamp, string(stateJSON), snap.Description, snap.ParentID, rollback)
	if err != nil {
		return domain.NewError(domain.KindStorage, "insert_snapshot", err)
	}
	return nil
}

// GetSnapshot returns one Snapshot by id, or domain.KindNotFound.
func (s *Store) GetSnapshot(id string) (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRow(`
		SELECT id, stage, timestamp, state, description, parent_id, is_rollback_point
		FROM snapshots WHERE id = ?
	`, id)
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Snapshot{}, domain.NewError(domain.KindNotFound, "snapshot "+id, nil)
	}
	if err != nil {
		return domain.Snapshot{}, domain.NewError(domain.KindStorage, "get_snapshot", err)
	}
	return snap, nil
}

func (s *Store) queryScanSnapshots(query string, args ...any) ([]domain.Snapshot, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, domain.NewError(domain.KindStorage, "list_snapshots", err)
	}
	defer rows.Close()

	var out []domain.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, domain.NewError(domain.KindStorage, "list_snapshots: scan", err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// ListSnapshots returns every Snapshot, newest-first.
func (s *Store) ListSnapshots() ([]domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queryScanSnapshots(`
		SELECT id, stage, timestamp, state, description, parent_id, is_rollback_point
		FROM snapshots ORDER BY timestamp DESC
	`)
}

// ListSnapshotsByStage returns every Snapshot for one stage, newest-first.
func (s *Store) ListSnapshotsByStage(stage string) ([]domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queryScanSnapshots(`
		SELECT id, stage, timestamp, state, description, parent_id, is_rollback_point
		FROM snapshots WHERE stage = ? ORDER BY timestamp DESC
	`, stage)
}

// LatestSnapshot returns the most recent Snapshot, or domain.KindNotFound.
func (s *Store) LatestSnapshot() (domain.Snapshot, error) {
	snaps, err := s.ListSnapshots()
	if err != nil {
		return domain.Snapshot{}, err
	}
	if len(snaps) == 0 {
		return domain.Snapshot{}, domain.NewError(domain.KindNotFound, "no snapshots", nil)
	}
	return snaps[0], nil
}

// LatestSnapshotForStage returns the most recent Snapshot for one stage.
func (s *Store) LatestSnapshotForStage(stage string) (domain.Snapshot, error) {
	snaps, err := s.ListSnapshotsByStage(stage)
	if err != nil {
		return domain.Snapshot{}, err
	}
	if len(snaps) == 0 {
		return domain.Snapshot{}, domain.NewError(domain.KindNotFound, "no snapshots for stage "+stage, nil)
	}
	return snaps[0], nil
}

// DeleteSnapshot removes a Snapshot by id, reporting whether it existed.
func (s *Store) DeleteSnapshot(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM snapshots WHERE id = ?`, id)
	if err != nil {
		return false, domain.NewError(domain.KindStorage, "delete_snapshot", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// RestoreSnapshot implements the transactional restore contract of §4.4:
// within one transaction, (a) upsert project_state if present in the
// snapshot's state, (b) clear and re-insert features if present, and
// (c) insert a new rollback-point snapshot chained to parentID. On any
// failure the whole transaction rolls back — no partial restore (P4).
func (s *Store) RestoreSnapshot(parentID string, state map[string]any, rollbackStage string) (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return domain.Snapshot{}, domain.NewError(domain.KindStorage, "restore: begin", err)
	}
	defer tx.Rollback()

	if projectState, ok := state["project_state"]; ok {
		data, err := json.Marshal(projectState)
		if err != nil {
			return domain.Snapshot{}, domain.NewError(domain.KindStorage, "restore: encode project_state", err)
		}
		if _, err := tx.Exec(`
			INSERT INTO project_state (id, data) VALUES (1, ?)
			ON CONFLICT(id) DO UPDATE SET data = excluded.data
		`, string(data)); err != nil {
			return domain.Snapshot{}, domain.NewError(domain.KindStorage, "restore: project_state", err)
		}
	}

	if rawFeatures, ok := state["features"]; ok {
		var features []domain.Feature
		encoded, err := json.Marshal(rawFeatures)
		if err != nil {
			return domain.Snapshot{}, domain.NewError(domain.KindStorage, "restore: encode features", err)
		}
		if err := json.Unmarshal(encoded, &features); err != nil {
			return domain.Snapshot{}, domain.NewError(domain.KindStorage, "restore: decode features", err)
		}
		if err := replaceFeaturesLocked(tx, features); err != nil {
			return domain.Snapshot{}, domain.NewError(domain.KindStorage, "restore: replace features", err)
		}
	}

	rollback := domain.Snapshot{
		ID:              parentID + "_rollback_" + rollbackID(),
		Stage:           "Rollback",
		State:           map[string]any{},
		ParentID:        parentID,
		IsRollbackPoint: true,
	}
	rollback.Timestamp = timeNow()
	if err := s.insertSnapshotLocked(tx, rollback); err != nil {
		return domain.Snapshot{}, err
	}

	if err := tx.Commit(); err != nil {
		return domain.Snapshot{}, domain.NewError(domain.KindStorage, "restore: commit", err)
	}
	return rollback, nil
}
