package coordinator_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/madhatter5501/catalyst/coordinator"
	"github.com/madhatter5501/catalyst/domain"
	"github.com/madhatter5501/catalyst/eventbus"
	"github.com/madhatter5501/catalyst/inbox"
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

type fakeParse struct {
	unknowns []domain.Ambiguity
	known    []domain.Ambiguity
	err      error
}

func (f *fakeParse) Run(ctx context.Context, goalText string, profile map[string]any) ([]domain.Ambiguity, []domain.Ambiguity, error) {
	return f.unknowns, f.known, f.err
}

type fakeArchitect struct {
	decision domain.Decision
	err      error
	calls    int
}

func (f *fakeArchitect) Run(ctx context.Context, research domain.ResearchResult, specContext string, mode domain.Mode, requireApproval bool, commands <-chan inbox.Command) (domain.Decision, error) {
	f.calls++
	if requireApproval && commands != nil {
		cmd, ok := <-commands
		if !ok || cmd.Kind != inbox.CommandResume {
			return domain.Decision{}, domain.NewError(domain.KindInteractionAborted, "approval not granted", nil)
		}
	}
	d := f.decision
	d.UnknownID = research.UnknownID
	return d, f.err
}

// scriptedCritic returns verdicts[i] on the i-th call, clamping to the
// last entry once exhausted.
type scriptedCritic struct {
	verdicts []domain.VerdictKind
	calls    int
}

func (c *scriptedCritic) Run(ctx context.Context, decision domain.Decision, specContext string, mode domain.Mode) (domain.Verdict, error) {
	idx := c.calls
	if idx >= len(c.verdicts) {
		idx = len(c.verdicts) - 1
	}
	c.calls++
	return domain.Verdict{UnknownID: decision.UnknownID, Verdict: c.verdicts[idx]}, nil
}

type fakeResearch struct {
	result domain.ResearchResult
	err    error
}

func (f *fakeResearch) Research(ctx context.Context, unknownID, question, researchContext string) (domain.ResearchResult, error) {
	r := f.result
	r.UnknownID = unknownID
	return r, f.err
}

func newCoordinator(t *testing.T, parse coordinator.ParseAdapter, architect coordinator.ArchitectAdapter, critic coordinator.CriticAdapter, researchAdapter *fakeResearch, cfg coordinator.Config) *coordinator.Coordinator {
	st := newTestStore(t)
	bus := eventbus.New()
	ib := inbox.New(st, bus)
	return coordinator.New(st, bus, ib, nil, researchAdapter, parse, architect, critic, nil, nil, nil, cfg)
}

func TestRunHappyPathOneUnknown(t *testing.T) {
	parse := &fakeParse{unknowns: []domain.Ambiguity{{ID: "UNK-001", Question: "Which data source?"}}}
	architect := &fakeArchitect{decision: domain.Decision{ChosenOption: "Yahoo Finance"}}
	critic := &scriptedCritic{verdicts: []domain.VerdictKind{domain.VerdictApproved}}
	researchAdapter := &fakeResearch{result: domain.ResearchResult{Options: []domain.ResearchOption{{Name: "Yahoo Finance", Complexity: 3}}}}

	c := newCoordinator(t, parse, architect, critic, researchAdapter, coordinator.DefaultConfig())

	result, err := c.Run(context.Background(), domain.Goal{FeatureID: "f-1", Text: "Build a stock tracker"}, domain.ModeLab, nil)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Len(t, result.Decisions, 1)
	require.Equal(t, "Yahoo Finance", result.Decisions[0].ChosenOption)

	var sawCompleted bool
	for _, ev := range result.Events {
		if ev.Kind == domain.EventPipelineCompleted {
			sawCompleted = true
		}
	}
	require.True(t, sawCompleted)
}

func TestRunCriticRejectionExhaustsBudget(t *testing.T) {
	parse := &fakeParse{unknowns: []domain.Ambiguity{{ID: "UNK-001"}}}
	architect := &fakeArchitect{decision: domain.Decision{ChosenOption: "x"}}
	critic := &scriptedCritic{verdicts: []domain.VerdictKind{domain.VerdictNeedsChanges, domain.VerdictNeedsChanges}}
	researchAdapter := &fakeResearch{}

	cfg := coordinator.DefaultConfig()
	cfg.MaxRejections = 2
	c := newCoordinator(t, parse, architect, critic, researchAdapter, cfg)

	result, err := c.Run(context.Background(), domain.Goal{FeatureID: "f-2", Text: "goal"}, domain.ModeLab, nil)
	require.NoError(t, err)
	require.False(t, result.Success)
	require.Len(t, result.Verdicts, 1)

	rejections := 0
	for _, ev := range result.Events {
		if ev.Kind == domain.EventCriticRejected {
			rejections++
		}
	}
	require.Equal(t, 2, rejections)
	require.Equal(t, 2, architect.calls)
}

func TestRunHumanApprovesArchitect(t *testing.T) {
	parse := &fakeParse{unknowns: []domain.Ambiguity{{ID: "UNK-001"}}}
	architect := &fakeArchitect{decision: domain.Decision{ChosenOption: "Yahoo Finance"}}
	critic := &scriptedCritic{verdicts: []domain.VerdictKind{domain.VerdictApproved}}
	researchAdapter := &fakeResearch{}

	cfg := coordinator.DefaultConfig()
	cfg.RequireArchitectApproval = true
	c := newCoordinator(t, parse, architect, critic, researchAdapter, cfg)

	commands := make(chan inbox.Command, 1)
	commands <- inbox.Command{Kind: inbox.CommandResume, ID: "architect-UNK-001"}

	result, err := c.Run(context.Background(), domain.Goal{FeatureID: "f-3", Text: "goal"}, domain.ModeLab, commands)
	require.NoError(t, err)
	require.True(t, result.Success)
}

func TestRunParseErrorFailsThePipeline(t *testing.T) {
	parse := &fakeParse{err: domain.NewError(domain.KindLLMFailure, "parse exploded", nil)}
	c := newCoordinator(t, parse, &fakeArchitect{}, &scriptedCritic{}, &fakeResearch{}, coordinator.DefaultConfig())

	result, err := c.Run(context.Background(), domain.Goal{FeatureID: "f-4", Text: "goal"}, domain.ModeLab, nil)
	require.Error(t, err)
	require.False(t, result.Success)
}

func TestRunEmptyGoalShortCircuitsToBuilding(t *testing.T) {
	parse := &fakeParse{}
	c := newCoordinator(t, parse, &fakeArchitect{}, &scriptedCritic{}, &fakeResearch{}, coordinator.DefaultConfig())

	result, err := c.Run(context.Background(), domain.Goal{FeatureID: "f-5", Text: ""}, domain.ModeLab, nil)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Empty(t, result.Decisions)
}

func TestDraftWritesAllSuccessfulOutputsAndSkipsEscapingPaths(t *testing.T) {
	dir := t.TempDir()
	c := coordinator.New(newTestStore(t), eventbus.New(), nil, nil, nil, nil, nil, nil, nil, nil, &fakeDrafter{}, coordinator.DefaultConfig())

	missions := []domain.DraftingMission{
		{FilePath: "auth.go", Prompt: "issuer"},
		{FilePath: "../escape.go", Prompt: "escape"},
	}
	result, err := c.Draft(context.Background(), missions, dir)
	require.NoError(t, err)
	require.Equal(t, 1, result.FilesWritten)
	require.Len(t, result.Errors, 1)

	content, readErr := os.ReadFile(filepath.Join(dir, "auth.go"))
	require.NoError(t, readErr)
	require.Equal(t, "package auth\n", string(content))
}

func TestDraftWithNoMissionsReturnsImmediately(t *testing.T) {
	c := coordinator.New(newTestStore(t), eventbus.New(), nil, nil, nil, nil, nil, nil, nil, nil, &fakeDrafter{}, coordinator.DefaultConfig())

	result, err := c.Draft(context.Background(), nil, t.TempDir())
	require.NoError(t, err)
	require.Equal(t, coordinator.DraftResult{}, result)
}

type fakeDrafter struct{}

func (f *fakeDrafter) Run(ctx context.Context, mission domain.DraftingMission) (domain.DraftingOutput, error) {
	return domain.DraftingOutput{FilePath: mission.FilePath, SourceCode: "package auth\n"}, nil
}
