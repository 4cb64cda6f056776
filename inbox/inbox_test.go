package inbox_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

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

func TestAskUserResumeReturnsStoredResponse(t *testing.T) {
	ib := newTestInbox(t)
	commands := make(chan inbox.Command, 1)
	in := domain.Interaction{ID: "int-1", Kind: domain.InteractionDecision, Title: "Approve: Yahoo Finance", FromAgent: "architect"}

	var response string
	var askErr error
	done := make(chan struct{})
	go func() {
		response, askErr = ib.AskUser(context.Background(), commands, in)
		close(done)
	}()

	// Give AskUser time to persist + suspend before resolving.
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, ib.Resolve("int-1", "Approve"))
	commands <- inbox.Command{Kind: inbox.CommandResume, ID: "int-1"}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("AskUser did not return")
	}
	require.NoError(t, askErr)
	require.Equal(t, "Approve", response)
}

func TestAskUserIgnoresUnrelatedResumeID(t *testing.T) {
	ib := newTestInbox(t)
	commands := make(chan inbox.Command, 2)
	in := domain.Interaction{ID: "int-2", Kind: domain.InteractionInput, Title: "Which port?", FromAgent: "parse"}

	done := make(chan struct{})
	var response string
	go func() {
		response, _ = ib.AskUser(context.Background(), commands, in)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	commands <- inbox.Command{Kind: inbox.CommandResume, ID: "not-int-2"}
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, ib.Resolve("int-2", "8080"))
	commands <- inbox.Command{Kind: inbox.CommandResume, ID: "int-2"}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("AskUser did not return")
	}
	require.Equal(t, "8080", response)
}

func TestAskUserAbortReturnsInteractionAborted(t *testing.T) {
	ib := newTestInbox(t)
	commands := make(chan inbox.Command, 1)
	in := domain.Interaction{ID: "int-3", Kind: domain.InteractionAlert, Title: "Confirm deploy", FromAgent: "builder"}

	errCh := make(chan error, 1)
	go func() {
		_, err := ib.AskUser(context.Background(), commands, in)
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	commands <- inbox.Command{Kind: inbox.CommandAbort, Reason: "user cancelled"}

	err := <-errCh
	require.True(t, domain.IsKind(err, domain.KindInteractionAborted))
}

func TestAskUserWithoutChannelFailsImmediately(t *testing.T) {
	ib := newTestInbox(t)
	_, err := ib.AskUser(context.Background(), nil, domain.Interaction{ID: "int-4", Title: "x"})
	require.True(t, domain.IsKind(err, domain.KindChannelClosed))
}

func TestListPendingAndHistory(t *testing.T) {
	ib := newTestInbox(t)
	require.NoError(t, ib.Save(domain.Interaction{ID: "p-1", Status: domain.InteractionPending, Title: "one"}))
	require.NoError(t, ib.Save(domain.Interaction{ID: "p-2", Status: domain.InteractionPending, Title: "two"}))
	require.NoError(t, ib.Resolve("p-1", "done"))

	pending, err := ib.ListPending()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, "p-2", pending[0].ID)

	history, err := ib.ListHistory(10)
	require.NoError(t, err)
	require.Len(t, history, 2)
}
