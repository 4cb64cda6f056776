package agents_test

import (
	"context"
	"testing"

	"github.com/madhatter5501/catalyst/agents"
	"github.com/stretchr/testify/require"
)

func TestResearchReturnsImmediateResult(t *testing.T) {
	reply := `{"result":{"options":[{"name":"jwt","description":"stateless","pros":"simple","cons":"no revoke","complexity":3}],"recommended":"jwt","summary":"use jwt"}}`
	r := agents.NewResearch(newTestRegistry(t, &stubProvider{available: true, replies: []string{reply}}), "")

	result, err := r.Research(context.Background(), "u-1", "what auth scheme?", "")
	require.NoError(t, err)
	require.Equal(t, "u-1", result.UnknownID)
	require.Equal(t, "jwt", result.Recommended)
}

func TestResearchLoopsThroughAnUnrecognizedToolThenAnswers(t *testing.T) {
	toolCall := `{"tool_call":{"tool":"not_a_real_tool","query":"x","max_results":1}}`
	final := `{"result":{"options":[],"summary":"no external deps needed"}}`
	r := agents.NewResearch(newTestRegistry(t, &stubProvider{available: true, replies: []string{toolCall, final}}), "")

	result, err := r.Research(context.Background(), "u-2", "need a queue?", "")
	require.NoError(t, err)
	require.Equal(t, "u-2", result.UnknownID)
	require.Equal(t, "no external deps needed", result.Summary)
}

func TestResearchFailsWhenNeitherToolCallNorResultPresent(t *testing.T) {
	r := agents.NewResearch(newTestRegistry(t, &stubProvider{available: true, replies: []string{`{}`}}), "")
	_, err := r.Research(context.Background(), "u-3", "q", "")
	require.Error(t, err)
}
