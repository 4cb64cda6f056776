package snapshot_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/madhatter5501/catalyst/domain"
	"github.com/madhatter5501/catalyst/eventbus"
	"github.com/madhatter5501/catalyst/internal/store"
	"github.com/madhatter5501/catalyst/snapshot"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*snapshot.Manager, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "catalyst.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return snapshot.New(st, eventbus.New()), st
}

func TestTakeProducesDeterministicIDFormat(t *testing.T) {
	mgr, _ := newTestManager(t)
	snap, err := mgr.Take("Architecting", map[string]any{"foo": "bar"}, "before critic review")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(snap.ID, "architecting_"))
	require.Len(t, snap.ID, len("architecting_")+len("20060102_150405"))
}

func TestTakeThenLoadRoundTrips(t *testing.T) {
	mgr, _ := newTestManager(t)
	snap, err := mgr.Take("Building", map[string]any{"count": float64(3)}, "")
	require.NoError(t, err)

	loaded, err := mgr.Load(snap.ID)
	require.NoError(t, err)
	require.Equal(t, snap.ID, loaded.ID)
	require.Equal(t, "Building", loaded.Stage)
	require.Equal(t, float64(3), loaded.State["count"])
}

func TestLatestAndLatestForStage(t *testing.T) {
	mgr, _ := newTestManager(t)
	_, err := mgr.Take("Parsing", map[string]any{"n": float64(1)}, "")
	require.NoError(t, err)
	second, err := mgr.Take("Parsing", map[string]any{"n": float64(2)}, "")
	require.NoError(t, err)

	latest, err := mgr.Latest()
	require.NoError(t, err)
	require.Equal(t, second.ID, latest.ID)

	latestForStage, err := mgr.LatestForStage("Parsing")
	require.NoError(t, err)
	require.Equal(t, second.ID, latestForStage.ID)
}

// TestRestoreIsTransactionalAndChainsRollbackPoint covers P4 (all-or-nothing
// restore) and scenario 4 (rollback round-trip): restoring a prior
// snapshot replays its project_state and features, and records a new
// rollback-point snapshot chained to the restored id via parent_id.
func TestRestoreIsTransactionalAndChainsRollbackPoint(t *testing.T) {
	mgr, st := newTestManager(t)

	require.NoError(t, st.CreateFeature(domain.Feature{ID: "f-1", Title: "old", Stage: domain.StageBuilding}))

	snap, err := mgr.Take("Building", map[string]any{
		"project_state": map[string]any{"name": "catalyst"},
		"features": []map[string]any{
			{"id": "f-1", "title": "restored", "stage": "Building"},
		},
	}, "checkpoint before risky merge")
	require.NoError(t, err)

	require.NoError(t, st.UpdateFeature(domain.Feature{ID: "f-1", Title: "mutated", Stage: domain.StageFailed}))

	rollback, err := mgr.Restore(snap.ID)
	require.NoError(t, err)
	require.Equal(t, snap.ID, rollback.ParentID)
	require.True(t, rollback.IsRollbackPoint)
	require.Equal(t, "Rollback", rollback.Stage)

	restored, err := st.GetFeature("f-1")
	require.NoError(t, err)
	require.Equal(t, "restored", restored.Title)

	state, err := st.GetProjectState()
	require.NoError(t, err)
	require.Equal(t, "catalyst", state["name"])
}

func TestDeleteReportsExistence(t *testing.T) {
	mgr, _ := newTestManager(t)
	snap, err := mgr.Take("Idea", map[string]any{}, "")
	require.NoError(t, err)

	existed, err := mgr.Delete(snap.ID)
	require.NoError(t, err)
	require.True(t, existed)

	existed, err = mgr.Delete(snap.ID)
	require.NoError(t, err)
	require.False(t, existed)
}
