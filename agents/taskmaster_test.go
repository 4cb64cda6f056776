package agents_test

import (
	"context"
	"testing"

	"github.com/madhatter5501/catalyst/agents"
	"github.com/madhatter5501/catalyst/domain"
	"github.com/stretchr/testify/require"
)

func TestTaskmasterStampsFeatureName(t *testing.T) {
	reply := `{"objective":"add login","tasks":[{"number":1,"action":"create","file_path":"auth.go","implementation":"jwt issuing"}]}`
	tm := agents.NewTaskmaster(newTestRegistry(t, &stubProvider{available: true, replies: []string{reply}}))

	mission, err := tm.Run(context.Background(), "login", "add login", domain.Atomization{FeatureID: "f-1"})
	require.NoError(t, err)
	require.Equal(t, "login", mission.FeatureName)
	require.Len(t, mission.Tasks, 1)
}
