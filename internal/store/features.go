package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/madhatter5501/catalyst/domain"
)

func scanFeature(row interface {
	Scan(dest ...any) error
}) (domain.Feature, error) {
	var f domain.Feature
	var tagsJSON string
	err := row.Scan(&f.ID, &f.Title, &f.Stage, &f.Description, &f.WorktreePath, &f.Error,
		&f.Mode, &f.RejectionCount, &f.ParentID, &tagsJSON, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return f, err
	}
	if tagsJSON != "" {
		_ = json.Unmarshal([]byte(tagsJSON), &f.Tags)
	}
	return f, nil
}

// CreateFeature inserts a new Feature, stamping created_at/updated_at if
// unset.
func (s *Store) CreateFeature(f domain.Feature) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	f.UpdatedAt = time.Now().UTC()
	tagsJSON, _ := json.Marshal(f.Tags)

	_, err := s.db.Exec(`
		INSERT INTO features (id, title, stage, description, worktree_path, error, mode,
			rejection_count, parent_id, tags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, f.ID, f.Title, f.Stage, f.Description, f.WorktreePath, f.Error, f.Mode,
		f.RejectionCount, f.ParentID, string(tagsJSON), f.CreatedAt, f.UpdatedAt)
	if err != nil {
		return domain.NewError(domain.KindStorage, "create_feature", err)
	}
	return nil
}

// GetFeature returns one Feature by id, or domain.KindNotFound.
func (s *Store) GetFeature(id string) (domain.Feature, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRow(`
		SELECT id, title, stage, description, worktree_path, error, mode,
			rejection_count, parent_id, tags, created_at, updated_at
		FROM features WHERE id = ?
	`, id)
	f, err := scanFeature(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Feature{}, domain.NewError(domain.KindNotFound, "feature "+id, nil)
	}
	if err != nil {
		return domain.Feature{}, domain.NewError(domain.KindStorage, "get_feature", err)
	}
	return f, nil
}

// ListFeatures returns every Feature, ordered by created_at.
func (s *Store) ListFeatures() ([]domain.Feature, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listFeaturesLocked()
}

func (s *Store) listFeaturesLocked() ([]domain.Feature, error) {
	rows, err := s.db.Query(`
		SELECT id, title, stage, description, worktree_path, error, mode,
			rejection_count, parent_id, tags, created_at, updated_at
		FROM features ORDER BY created_at
	`)
	if err != nil {
		return nil, domain.NewError(domain.KindStorage, "list_features", err)
	}
	defer rows.Close()

	var out []domain.Feature
	for rows.Next() {
		f, err := scanFeature(rows)
		if err != nil {
			return nil, domain.NewError(domain.KindStorage, "list_features: scan", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// UpdateFeature replaces a Feature row in place, bumping updated_at.
func (s *Store) UpdateFeature(f domain.Feature) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f.UpdatedAt = time.Now().UTC()
	tagsJSON, _ := json.Marshal(f.Tags)

	res, err := s.db.Exec(`
		UPDATE features SET title=?, stage=?, description=?, worktree_path=?, error=?, mode=?,
			rejection_count=?, parent_id=?, tags=?, updated_at=?
		WHERE id=?
	`, f.Title, f.Stage, f.Description, f.WorktreePath, f.Error, f.Mode,
		f.RejectionCount, f.ParentID, string(tagsJSON), f.UpdatedAt, f.ID)
	if err != nil {
		return domain.NewError(domain.KindStorage, "update_feature", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.NewError(domain.KindNotFound, "feature "+f.ID, nil)
	}
	return nil
}

// replaceFeaturesLocked clears and re-inserts every feature within the
// caller's transaction — used only by snapshot restore (§4.4 step b),
// which owns locking itself via withTxLocked.
func replaceFeaturesLocked(tx *sql.Tx, features []domain.Feature) error {
	if _, err := tx.Exec(`DELETE FROM features`); err != nil {
		return err
	}
	for _, f := range features {
		tagsJSON, _ := json.Marshal(f.Tags)
		if _, err := tx.Exec(`
			INSERT INTO features (id, title, stage, description, worktree_path, error, mode,
				rejection_count, parent_id, tags, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, f.ID, f.Title, f.Stage, f.Description, f.WorktreePath, f.Error, f.Mode,
			f.RejectionCount, f.ParentID, string(tagsJSON), f.CreatedAt, f.UpdatedAt); err != nil {
			return err
		}
	}
	return nil
}
