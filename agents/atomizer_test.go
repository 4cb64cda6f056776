package agents_test

import (
	"context"
	"testing"

	"github.com/madhatter5501/catalyst/agents"
	"github.com/madhatter5501/catalyst/domain"
	"github.com/stretchr/testify/require"
)

func TestAtomizerStampsFeatureIDWhenMaxLinesUnset(t *testing.T) {
	reply := `{"modules":[{"path":"auth.go","responsibility":"jwt issuing","max_lines":120}],"test_modules":["auth_test.go"],"integration_points":[]}`
	a := agents.NewAtomizer(newTestRegistry(t, &stubProvider{available: true, replies: []string{reply}}))

	atomization, err := a.Run(context.Background(), "f-1", "add login", []domain.Decision{{UnknownID: "u-1"}}, 0)
	require.NoError(t, err)
	require.Equal(t, "f-1", atomization.FeatureID)
	require.Len(t, atomization.Modules, 1)
}
