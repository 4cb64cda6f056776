package agents_test

import (
	"context"
	"testing"

	"github.com/madhatter5501/catalyst/agents"
	"github.com/madhatter5501/catalyst/domain"
	"github.com/stretchr/testify/require"
)

func TestCriticStampsUnknownIDFromDecision(t *testing.T) {
	reply := `{"verdict":"approved","confidence":0.9,"concerns":[]}`
	c := agents.NewCritic(newTestRegistry(t, &stubProvider{available: true, replies: []string{reply}}))

	verdict, err := c.Run(context.Background(), domain.Decision{UnknownID: "u-1", ChosenOption: "jwt"}, "", domain.Mode(""))
	require.NoError(t, err)
	require.Equal(t, "u-1", verdict.UnknownID)
	require.Equal(t, domain.VerdictApproved, verdict.Verdict)
}

func TestCriticPropagatesLLMFailureAfterBothAttemptsFail(t *testing.T) {
	c := agents.NewCritic(newTestRegistry(t, &stubProvider{available: true, replies: []string{"nope", "still nope"}}))
	_, err := c.Run(context.Background(), domain.Decision{UnknownID: "u-1"}, "", domain.Mode(""))
	require.Error(t, err)
	require.True(t, domain.IsKind(err, domain.KindLLMFailure))
}
