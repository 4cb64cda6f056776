// Package snapshot implements the Snapshot Manager (C4): deterministic
// checkpoint capture and transactional rollback. Grounded in
// original_source's state/snapshots.rs (Snapshot::new's id format and the
// parent_id rollback-lineage chain) and internal/store's transactional
// RestoreSnapshot.
package snapshot

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/madhatter5501/catalyst/domain"
	"github.com/madhatter5501/catalyst/eventbus"
	"github.com/madhatter5501/catalyst/internal/store"
)

// Manager is the C4 component: a thin, store-backed wrapper that owns
// snapshot id derivation and restore-event emission.
type Manager struct {
	store *store.Store
	bus   *eventbus.Bus
}

// New builds a Manager over the given store and event bus.
func New(st *store.Store, bus *eventbus.Bus) *Manager {
	return &Manager{store: st, bus: bus}
}

// Take captures state under a new, deterministic snapshot id of the form
// {stage_lowercase_underscored}_{timestamp:%Y%m%d_%H%M%S}, matching
// original_source's Snapshot::new. A second take of the same stage within
// the same second gets a numeric suffix (_2, _3, ...) so its id is unique.
func (m *Manager) Take(stage string, state map[string]any, description string) (domain.Snapshot, error) {
	now := time.Now().UTC()
	id := snapshotID(stage, now)
	for n := 2; ; n++ {
		if _, err := m.store.GetSnapshot(id); err != nil {
			break
		}
		id = fmt.Sprintf("%s_%d", snapshotID(stage, now), n)
	}
	snap := domain.Snapshot{
		ID:          id,
		Stage:       stage,
		Timestamp:   now,
		State:       state,
		Description: description,
	}
	if err := m.store.InsertSnapshot(snap); err != nil {
		return domain.Snapshot{}, err
	}
	return snap, nil
}

// Load returns one Snapshot by id.
func (m *Manager) Load(id string) (domain.Snapshot, error) {
	return m.store.GetSnapshot(id)
}

// List returns every Snapshot, newest-first.
func (m *Manager) List() ([]domain.Snapshot, error) {
	return m.store.ListSnapshots()
}

// ListByStage returns every Snapshot for one stage, newest-first.
func (m *Manager) ListByStage(stage string) ([]domain.Snapshot, error) {
	return m.store.ListSnapshotsByStage(stage)
}

// Latest returns the most recent Snapshot across all stages.
func (m *Manager) Latest() (domain.Snapshot, error) {
	return m.store.LatestSnapshot()
}

// LatestForStage returns the most recent Snapshot for one stage.
func (m *Manager) LatestForStage(stage string) (domain.Snapshot, error) {
	return m.store.LatestSnapshotForStage(stage)
}

// Delete removes a Snapshot by id, reporting whether it existed.
func (m *Manager) Delete(id string) (bool, error) {
	return m.store.DeleteSnapshot(id)
}

// Restore performs the transactional, all-or-nothing restore contract of
// §4.4: the prior snapshot's project_state and features are replayed, a
// new rollback-point snapshot is chained via parent_id, and a
// StateRestored event is emitted on success.
func (m *Manager) Restore(id string) (domain.Snapshot, error) {
	snap, err := m.store.GetSnapshot(id)
	if err != nil {
		return domain.Snapshot{}, err
	}

	rollback, err := m.store.RestoreSnapshot(snap.ID, snap.State, snap.Stage)
	if err != nil {
		return domain.Snapshot{}, err
	}

	m.bus.Publish(domain.EventStateRestored, "snapshot", snap.ID, map[string]any{
		"snapshot_id":  snap.ID,
		"rollback_id":  rollback.ID,
		"stage":        snap.Stage,
	})
	if err := m.store.AppendEvent(domain.Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Kind:      domain.EventStateRestored,
		Agent:     "snapshot",
		UnknownID: snap.ID,
		Data:      map[string]any{"rollback_id": rollback.ID},
	}); err != nil {
		return domain.Snapshot{}, err
	}

	return rollback, nil
}

func snapshotID(stage string, t time.Time) string {
	normalized := strings.ToLower(strings.ReplaceAll(stage, " ", "_"))
	return normalized + "_" + t.Format("20060102_150405")
}
