package housekeeping_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/madhatter5501/catalyst/eventbus"
	"github.com/madhatter5501/catalyst/housekeeping"
	"github.com/madhatter5501/catalyst/internal/store"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "catalyst.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

type fakePruner struct {
	calls int
	err   error
}

func (f *fakePruner) CleanupOrphanedWorktrees() error {
	f.calls++
	return f.err
}

func TestReapStaleRunsFailsOnlyRunsPastTheDeadline(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.StartAgentRun(store.AgentRun{ID: "run-old", Agent: "builder", FeatureID: "f-1", StartedAt: time.Now().UTC().Add(-time.Hour)}))
	require.NoError(t, st.StartAgentRun(store.AgentRun{ID: "run-fresh", Agent: "builder", FeatureID: "f-2", StartedAt: time.Now().UTC()}))

	cfg := housekeeping.DefaultConfig()
	cfg.MaxRunDuration = 15 * time.Minute
	h := housekeeping.New(st, eventbus.New(), nil, cfg)

	h.ReapStaleRuns()

	runs, err := st.ListRunningAgentRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, "run-fresh", runs[0].ID)
}

func TestReapStaleRunsEmitsAgentFailed(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.StartAgentRun(store.AgentRun{ID: "run-old", Agent: "builder", FeatureID: "f-1", StartedAt: time.Now().UTC().Add(-time.Hour)}))

	bus := eventbus.New()
	sub := bus.Subscribe()
	defer sub.Unsubscribe()

	h := housekeeping.New(st, bus, nil, housekeeping.Config{MaxRunDuration: time.Minute})
	h.ReapStaleRuns()

	select {
	case ev := <-sub.Events():
		require.Equal(t, "builder", ev.Agent)
	case <-time.After(time.Second):
		t.Fatal("expected an AgentFailed event")
	}
}

func TestSweepOrphanedWorktreesDelegatesToThePruner(t *testing.T) {
	st := newTestStore(t)
	pruner := &fakePruner{}
	h := housekeeping.New(st, eventbus.New(), pruner, housekeeping.DefaultConfig())

	h.SweepOrphanedWorktrees()
	require.Equal(t, 1, pruner.calls)
}

func TestSweepOrphanedWorktreesNoopsWithoutAPruner(t *testing.T) {
	st := newTestStore(t)
	h := housekeeping.New(st, eventbus.New(), nil, housekeeping.DefaultConfig())

	require.NotPanics(t, h.SweepOrphanedWorktrees)
}
