package agents_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/madhatter5501/catalyst/agents"
	"github.com/madhatter5501/catalyst/domain"
	"github.com/madhatter5501/catalyst/eventbus"
	"github.com/madhatter5501/catalyst/inbox"
	"github.com/madhatter5501/catalyst/internal/store"
	"github.com/stretchr/testify/require"
)

func newTestInbox(t *testing.T) *inbox.Inbox {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "catalyst.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return inbox.New(st, eventbus.New())
}

func TestArchitectWithoutApprovalReturnsDecisionDirectly(t *testing.T) {
	reply := `{"unknown_id":"u-1","chosen_option":"jwt","rationale":"simplest","spec_updates":[],"dependencies":[]}`
	a := agents.NewArchitect(newTestRegistry(t, &stubProvider{available: true, replies: []string{reply}}), nil)

	decision, err := a.Run(context.Background(), domain.ResearchResult{UnknownID: "u-1"}, "", domain.Mode(""), false, nil)
	require.NoError(t, err)
	require.Equal(t, "jwt", decision.ChosenOption)
}

func TestArchitectWithApprovalResumesOnApprove(t *testing.T) {
	reply := `{"unknown_id":"u-1","chosen_option":"jwt","rationale":"simplest","spec_updates":[],"dependencies":[]}`
	ib := newTestInbox(t)
	a := agents.NewArchitect(newTestRegistry(t, &stubProvider{available: true, replies: []string{reply}}), ib)

	commands := make(chan inbox.Command, 1)
	go func() {
		time.Sleep(20 * time.Millisecond)
		pending, err := ib.ListPending()
		require.NoError(t, err)
		require.Len(t, pending, 1)
		require.NoError(t, ib.Resolve(pending[0].ID, "approve"))
		commands <- inbox.Command{Kind: inbox.CommandResume, ID: pending[0].ID}
	}()

	decision, err := a.Run(context.Background(), domain.ResearchResult{UnknownID: "u-1"}, "", domain.Mode(""), true, commands)
	require.NoError(t, err)
	require.Equal(t, "jwt", decision.ChosenOption)
}
