package agents_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/madhatter5501/catalyst/agents"
	"github.com/madhatter5501/catalyst/agents/tools"
	"github.com/madhatter5501/catalyst/domain"
	"github.com/stretchr/testify/require"
)

func TestBuilderWritesFileThenReportsDone(t *testing.T) {
	dir := t.TempDir()
	writeCall := `{"tool_call":{"tool":"write_file","args":{"path":"auth.go","content":"package auth\n"}}}`
	done := `{"done":true}`
	b := agents.NewBuilder(newTestRegistry(t, &stubProvider{available: true, replies: []string{writeCall, done}}), tools.ConstraintLimits{MaxModuleLines: 150, MaxFunctionLines: 30})

	result, err := b.Run(context.Background(), domain.Mission{FeatureName: "login"}, dir)
	require.NoError(t, err)
	require.Len(t, result.Files, 1)
	require.Equal(t, "created", result.Files[0].Action)
	require.Equal(t, 1, result.Files[0].LinesDelta)
	require.Equal(t, 2, result.Iterations)

	content, readErr := os.ReadFile(filepath.Join(dir, "auth.go"))
	require.NoError(t, readErr)
	require.Equal(t, "package auth\n", string(content))
}

func TestBuilderStopsImmediatelyWhenModelReportsDone(t *testing.T) {
	b := agents.NewBuilder(newTestRegistry(t, &stubProvider{available: true, replies: []string{`{"done":true}`}}), tools.ConstraintLimits{})

	result, err := b.Run(context.Background(), domain.Mission{FeatureName: "noop"}, t.TempDir())
	require.NoError(t, err)
	require.Equal(t, 1, result.Iterations)
	require.Empty(t, result.Files)
}

func TestBuilderExhaustsIterationBudget(t *testing.T) {
	call := `{"tool_call":{"tool":"list_dir","args":{}}}`
	b := agents.NewBuilder(newTestRegistry(t, &stubProvider{available: true, replies: []string{call}}), tools.ConstraintLimits{})

	result, err := b.Run(context.Background(), domain.Mission{FeatureName: "stuck"}, t.TempDir())
	require.NoError(t, err)
	require.Equal(t, 8, result.Iterations)
	require.False(t, result.Success)
}

func TestBuilderWriteFileFlagsModuleTooLongAsBlocking(t *testing.T) {
	dir := t.TempDir()
	content := "package auth\n\n" + strings.Repeat("var x = 1\n", 10)
	writeCall := `{"tool_call":{"tool":"write_file","args":{"path":"auth.go","content":` +
		mustJSONString(t, content) + `}}}`
	done := `{"done":true}`
	b := agents.NewBuilder(newTestRegistry(t, &stubProvider{available: true, replies: []string{writeCall, done}}), tools.ConstraintLimits{MaxModuleLines: 5, MaxFunctionLines: 30})

	result, err := b.Run(context.Background(), domain.Mission{FeatureName: "login"}, dir)
	require.NoError(t, err)
	require.Len(t, result.ConstraintReports, 1)
	require.Equal(t, "module_too_long", result.ConstraintReports[0].Rule)
	require.Equal(t, domain.ConstraintBlocking, result.ConstraintReports[0].Severity)
	require.Equal(t, 5, result.ConstraintReports[0].Limit)
	require.Greater(t, result.ConstraintReports[0].Actual, 5)
}

func mustJSONString(t *testing.T, s string) string {
	t.Helper()
	b, err := json.Marshal(s)
	require.NoError(t, err)
	return string(b)
}
