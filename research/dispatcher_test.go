package research_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/madhatter5501/catalyst/domain"
	"github.com/madhatter5501/catalyst/eventbus"
	"github.com/madhatter5501/catalyst/research"
	"github.com/stretchr/testify/require"
)

type stubAdapter struct {
	result domain.ResearchResult
	err    error
}

func (s stubAdapter) Research(ctx context.Context, unknownID, question, researchContext string) (domain.ResearchResult, error) {
	return s.result, s.err
}

func TestDispatcherDeliversResultViaReplyChannel(t *testing.T) {
	adapter := stubAdapter{result: domain.ResearchResult{UnknownID: "u-1", Summary: "done"}}
	d := research.New(adapter, eventbus.New())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	reply := make(chan research.Reply, 1)
	require.NoError(t, d.Submit(ctx, research.Mission{UnknownID: "u-1", ReplyChannel: reply}))

	select {
	case r := <-reply:
		require.NoError(t, r.Err)
		require.Equal(t, "done", r.Result.Summary)
	case <-time.After(time.Second):
		t.Fatal("no reply received")
	}
}

func TestDispatcherPropagatesAdapterError(t *testing.T) {
	adapter := stubAdapter{err: errors.New("boom")}
	d := research.New(adapter, eventbus.New())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	reply := make(chan research.Reply, 1)
	require.NoError(t, d.Submit(ctx, research.Mission{UnknownID: "u-2", ReplyChannel: reply}))

	select {
	case r := <-reply:
		require.Error(t, r.Err)
	case <-time.After(time.Second):
		t.Fatal("no reply received")
	}
}

// TestZeroMissionsProducesNoEventsOrReplies covers B2: a dispatcher that
// never receives a mission never sends on the progress channel.
func TestZeroMissionsProducesNoEventsOrReplies(t *testing.T) {
	d := research.New(stubAdapter{}, eventbus.New())
	ctx, cancel := context.WithCancel(context.Background())
	go d.Run(ctx)

	select {
	case p := <-d.Progress():
		t.Fatalf("expected no progress, got %+v", p)
	case <-time.After(50 * time.Millisecond):
	}
	cancel()
}

func TestPerMissionEventOrdering(t *testing.T) {
	adapter := stubAdapter{result: domain.ResearchResult{UnknownID: "u-3"}}
	bus := eventbus.New()
	sub := bus.Subscribe()
	defer sub.Unsubscribe()

	d := research.New(adapter, bus)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	reply := make(chan research.Reply, 1)
	require.NoError(t, d.Submit(ctx, research.Mission{UnknownID: "u-3", ReplyChannel: reply}))
	<-reply

	var kinds []domain.EventKind
	for len(kinds) < 3 {
		select {
		case ev := <-sub.Events():
			kinds = append(kinds, ev.Kind)
		case <-time.After(time.Second):
			t.Fatal("missing expected events")
		}
	}
	require.Equal(t, []domain.EventKind{
		domain.EventResearchStarted,
		domain.EventResearchProgress,
		domain.EventResearchCompleted,
	}, kinds)
}
