package git

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	runGitCmd(t, dir, "init", "-b", "main")
	runGitCmd(t, dir, "config", "user.email", "test@example.com")
	runGitCmd(t, dir, "config", "user.name", "Test")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("seed\n"), 0o644))
	runGitCmd(t, dir, "add", "-A")
	runGitCmd(t, dir, "commit", "-m", "seed")
	return dir
}

func runGitCmd(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoErrorf(t, err, "git %v: %s", args, out)
}

func runGitOutputCmd(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	require.NoError(t, err)
	return strings.TrimSpace(string(out))
}

func TestCreateFeatureWorktreeCreatesBranchFromHEAD(t *testing.T) {
	repo := initRepo(t)
	m := NewWorktreeManager(repo, "worktrees", "main")

	path, branch, err := m.CreateFeatureWorktree("feat-1")
	require.NoError(t, err)
	require.Equal(t, "catalyst/feat-1", branch)
	require.DirExists(t, path)

	current := runGitOutputCmd(t, path, "branch", "--show-current")
	require.Equal(t, "catalyst/feat-1", current)
}

func TestCreateFeatureWorktreeIsIdempotent(t *testing.T) {
	repo := initRepo(t)
	m := NewWorktreeManager(repo, "worktrees", "main")

	path1, _, err := m.CreateFeatureWorktree("feat-1")
	require.NoError(t, err)
	path2, _, err := m.CreateFeatureWorktree("feat-1")
	require.NoError(t, err)
	require.Equal(t, path1, path2)
}

func TestMergeFeatureWorktreeCleanMerge(t *testing.T) {
	repo := initRepo(t)
	m := NewWorktreeManager(repo, "worktrees", "main")

	path, _, err := m.CreateFeatureWorktree("feat-2")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(path, "feature.go"), []byte("package main\n"), 0o644))
	runGitCmd(t, path, "add", "-A")
	runGitCmd(t, path, "commit", "-m", "add feature")

	err = m.MergeFeatureWorktree("feat-2", path)
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(repo, "feature.go"))
	require.NoDirExists(t, path)
}

func TestMergeFeatureWorktreeReportsConflicts(t *testing.T) {
	repo := initRepo(t)
	m := NewWorktreeManager(repo, "worktrees", "main")

	path, _, err := m.CreateFeatureWorktree("feat-3")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(repo, "README.md"), []byte("main edit\n"), 0o644))
	runGitCmd(t, repo, "add", "-A")
	runGitCmd(t, repo, "commit", "-m", "edit on main")

	require.NoError(t, os.WriteFile(filepath.Join(path, "README.md"), []byte("feature edit\n"), 0o644))
	runGitCmd(t, path, "add", "-A")
	runGitCmd(t, path, "commit", "-m", "conflicting edit")

	err = m.MergeFeatureWorktree("feat-3", path)
	require.Error(t, err)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	require.Contains(t, conflict.Files, "README.md")
	require.DirExists(t, path)
}
