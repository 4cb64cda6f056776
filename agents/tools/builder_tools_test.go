package tools_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/madhatter5501/catalyst/agents/tools"
	"github.com/madhatter5501/catalyst/domain"
	"github.com/stretchr/testify/require"
)

func newWorktree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "node_modules"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "node_modules", "ignored.js"), []byte("x"), 0o644))
	return dir
}

func TestReadFileReturnsContentAndLineCount(t *testing.T) {
	dir := newWorktree(t)
	b := tools.NewBuilder(dir)

	out, err := b.ReadFile("main.go")
	require.NoError(t, err)
	require.Equal(t, "package main\n", out.Content)
	require.Equal(t, 2, out.Lines)
}

func TestReadFileRejectsPathEscapingWorktree(t *testing.T) {
	dir := newWorktree(t)
	b := tools.NewBuilder(dir)

	_, err := b.ReadFile("../../etc/passwd")
	require.Error(t, err)
	require.True(t, domain.IsKind(err, domain.KindSandboxEscape))
}

func TestWriteFileCreatesParentDirs(t *testing.T) {
	dir := newWorktree(t)
	b := tools.NewBuilder(dir)

	out, err := b.WriteFile("pkg/sub/new.go", "package sub\n")
	require.NoError(t, err)
	require.Equal(t, len("package sub\n"), out.BytesWritten)

	content, err := os.ReadFile(filepath.Join(dir, "pkg", "sub", "new.go"))
	require.NoError(t, err)
	require.Equal(t, "package sub\n", string(content))
}

func TestListDirSkipsDefaultIgnoredDirs(t *testing.T) {
	dir := newWorktree(t)
	b := tools.NewBuilder(dir)

	out, err := b.ListDir("", nil)
	require.NoError(t, err)
	require.Contains(t, out.Files, "main.go")
	require.NotContains(t, out.Directories, "node_modules")
}

func TestListDirHonorsCustomIgnorePattern(t *testing.T) {
	dir := newWorktree(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main_test.go"), []byte("package main\n"), 0o644))
	b := tools.NewBuilder(dir)

	out, err := b.ListDir("", []string{"*_test.go"})
	require.NoError(t, err)
	require.Contains(t, out.Files, "main.go")
	require.NotContains(t, out.Files, "main_test.go")
}

func TestRunWhitelistedRejectsUnknownCommand(t *testing.T) {
	_, _, err := tools.RunWhitelisted(context.Background(), t.TempDir(), "curl", "https://example.com")
	require.Error(t, err)
	require.True(t, domain.IsKind(err, domain.KindNotAllowed))
}

func TestRunWhitelistedRejectsUnlistedSubcommand(t *testing.T) {
	_, _, err := tools.RunWhitelisted(context.Background(), t.TempDir(), "git", "push")
	require.Error(t, err)
	require.True(t, domain.IsKind(err, domain.KindNotAllowed))
}

func TestRunWhitelistedRejectsBlockedSubstring(t *testing.T) {
	_, _, err := tools.RunWhitelisted(context.Background(), t.TempDir(), "git", "commit", "-m", "rm -rf /")
	require.Error(t, err)
	require.True(t, domain.IsKind(err, domain.KindNotAllowed))
}

func TestRunWhitelistedRunsAllowedGitStatus(t *testing.T) {
	dir := t.TempDir()
	stdout, _, err := tools.RunWhitelisted(context.Background(), dir, "git", "status")
	_ = stdout
	// git may not be initialized in dir; either a clean run or a
	// ToolFailure (non-zero exit) is acceptable here — what must NOT
	// happen is a NotAllowed rejection, since "git status" is whitelisted.
	if err != nil {
		require.False(t, domain.IsKind(err, domain.KindNotAllowed))
	}
}
