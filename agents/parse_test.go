package agents_test

import (
	"context"
	"testing"

	"github.com/madhatter5501/catalyst/agents"
	"github.com/stretchr/testify/require"
)

func TestParseReturnsNilOnEmptyGoal(t *testing.T) {
	p := agents.NewParse(newTestRegistry(t, &stubProvider{available: true}))
	unknowns, knowns, err := p.Run(context.Background(), "", nil)
	require.NoError(t, err)
	require.Nil(t, unknowns)
	require.Nil(t, knowns)
}

func TestParseParsesStructuredResponse(t *testing.T) {
	reply := `{"unknowns":[{"id":"u-1","category":"Logic","question":"what auth scheme?","criticality":"Blocker"}],"inferred_knowns":[]}`
	p := agents.NewParse(newTestRegistry(t, &stubProvider{available: true, replies: []string{reply}}))

	unknowns, knowns, err := p.Run(context.Background(), "add login", map[string]any{"lang": "go"})
	require.NoError(t, err)
	require.Empty(t, knowns)
	require.Len(t, unknowns, 1)
	require.Equal(t, "u-1", unknowns[0].ID)
}

func TestParseRetriesOnceOnMalformedJSON(t *testing.T) {
	p := agents.NewParse(newTestRegistry(t, &stubProvider{
		available: true,
		replies:   []string{"not json", `{"unknowns":[],"inferred_knowns":[]}`},
	}))
	_, _, err := p.Run(context.Background(), "add login", nil)
	require.NoError(t, err)
}

func TestParseFailsAfterRetryExhausted(t *testing.T) {
	p := agents.NewParse(newTestRegistry(t, &stubProvider{
		available: true,
		replies:   []string{"still not json", "still not json either"},
	}))
	_, _, err := p.Run(context.Background(), "add login", nil)
	require.Error(t, err)
}
