package tools

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/madhatter5501/catalyst/domain"
)

// defaultIgnoredDirs are always skipped by list_dir even without an
// explicit ignore pattern, mirroring the noise a human would filter by
// hand when browsing a worktree.
var defaultIgnoredDirs = []string{".git", "node_modules", "target", "vendor"}

// Builder is the fixed tool set (§6.2) a Builder run may call, scoped to
// a single worktree. Every path-accepting tool rejects paths that, once
// joined and cleaned, fall outside the worktree root (P7).
type Builder struct {
	worktree string
}

// NewBuilder scopes a tool set to worktree, which must already be an
// absolute, existing directory (the Pool creates it before handing it
// to the Builder adapter).
func NewBuilder(worktree string) *Builder {
	return &Builder{worktree: filepath.Clean(worktree)}
}

// ReadFileResult is returned by ReadFile.
type ReadFileResult struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	Lines   int    `json:"lines"`
}

// ReadFile reads a worktree-relative path.
func (b *Builder) ReadFile(relPath string) (ReadFileResult, error) {
	full, err := b.resolve(relPath)
	if err != nil {
		return ReadFileResult{}, err
	}
	content, err := os.ReadFile(full)
	if err != nil {
		return ReadFileResult{}, domain.NewError(domain.KindConfiguration, "read_file "+relPath, err)
	}
	text := string(content)
	return ReadFileResult{Path: relPath, Content: text, Lines: strings.Count(text, "\n") + 1}, nil
}

// WriteFileResult is returned by WriteFile.
type WriteFileResult struct {
	Path         string `json:"path"`
	BytesWritten int    `json:"bytes_written"`
}

// Exists reports whether relPath names an existing file in the
// worktree. Used by callers that need create-vs-modify bookkeeping
// before calling WriteFile.
func (b *Builder) Exists(relPath string) bool {
	full, err := b.resolve(relPath)
	if err != nil {
		return false
	}
	_, statErr := os.Stat(full)
	return statErr == nil
}

// WriteFile writes content to a worktree-relative path, creating parent
// directories as needed.
func (b *Builder) WriteFile(relPath, content string) (WriteFileResult, error) {
	full, err := b.resolve(relPath)
	if err != nil {
		return WriteFileResult{}, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return WriteFileResult{}, domain.NewError(domain.KindConfiguration, "write_file mkdir "+relPath, err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		return WriteFileResult{}, domain.NewError(domain.KindConfiguration, "write_file "+relPath, err)
	}
	return WriteFileResult{Path: relPath, BytesWritten: len(content)}, nil
}

// ListDirResult is returned by ListDir.
type ListDirResult struct {
	Path        string   `json:"path"`
	Files       []string `json:"files"`
	Directories []string `json:"directories"`
}

// ListDir lists one directory's immediate entries, skipping
// defaultIgnoredDirs and anything matching an ignorePattern (a
// doublestar glob evaluated against the entry name).
func (b *Builder) ListDir(relPath string, ignorePatterns []string) (ListDirResult, error) {
	full, err := b.resolve(relPath)
	if err != nil {
		return ListDirResult{}, err
	}
	entries, err := os.ReadDir(full)
	if err != nil {
		return ListDirResult{}, domain.NewError(domain.KindConfiguration, "list_dir "+relPath, err)
	}

	result := ListDirResult{Path: relPath}
	if result.Path == "" {
		result.Path = "."
	}
	for _, entry := range entries {
		name := entry.Name()
		if ignored(name, ignorePatterns) {
			continue
		}
		if entry.IsDir() {
			result.Directories = append(result.Directories, name)
		} else {
			result.Files = append(result.Files, name)
		}
	}
	return result, nil
}

func ignored(name string, patterns []string) bool {
	for _, dir := range defaultIgnoredDirs {
		if name == dir {
			return true
		}
	}
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

// resolve joins relPath under the worktree root and rejects any result
// that escapes it (P7, §6.2: string-prefix check on the cleaned
// absolute path).
func (b *Builder) resolve(relPath string) (string, error) {
	full := filepath.Clean(filepath.Join(b.worktree, relPath))
	if full != b.worktree && !strings.HasPrefix(full, b.worktree+string(filepath.Separator)) {
		return "", domain.NewError(domain.KindSandboxEscape, "path escapes worktree sandbox: "+relPath, nil)
	}
	return full, nil
}

// CommandResult is returned by RunBuild, RunCheck and RunTest.
type CommandResult struct {
	Success    bool     `json:"success"`
	ErrorCount int      `json:"error_count,omitempty"`
	Errors     []string `json:"errors,omitempty"`
	Output     string   `json:"output,omitempty"`
	Stderr     string   `json:"stderr,omitempty"`
}

// RunBuild runs the project's build command inside the worktree.
func (b *Builder) RunBuild(ctx context.Context) (CommandResult, error) {
	return b.runToolchain(ctx, "build")
}

// RunCheck runs the project's fast type/compile check inside the
// worktree (no build artifacts).
func (b *Builder) RunCheck(ctx context.Context) (CommandResult, error) {
	return b.runToolchain(ctx, "check")
}

// RunTest runs the project's test suite inside the worktree.
func (b *Builder) RunTest(ctx context.Context) (CommandResult, error) {
	return b.runToolchain(ctx, "test")
}

// runToolchain picks cargo or npm depending on which manifest is present
// in the worktree and runs the named phase through RunWhitelisted. A
// non-zero exit is an expected outcome (compile/test failure), folded
// into CommandResult rather than returned as an error; only a refusal
// to spawn (not whitelisted, exec failure) is returned as an error.
func (b *Builder) runToolchain(ctx context.Context, phase string) (CommandResult, error) {
	name, args := b.toolchainCommand(phase)
	out, stderr, err := RunWhitelisted(ctx, b.worktree, name, args...)
	if err != nil && !domain.IsKind(err, domain.KindToolFailure) {
		return CommandResult{}, err
	}

	result := CommandResult{Success: err == nil, Output: out, Stderr: stderr}
	if name == "cargo" && (phase == "build" || phase == "check") {
		msgs := cargoCompilerMessages(out)
		result.ErrorCount = len(msgs)
		result.Errors = msgs
	} else if err != nil {
		lines := nonEmptyLines(stderr)
		result.ErrorCount = len(lines)
		result.Errors = lines
	}
	return result, nil
}

func (b *Builder) toolchainCommand(phase string) (string, []string) {
	if _, err := os.Stat(filepath.Join(b.worktree, "Cargo.toml")); err == nil {
		switch phase {
		case "check":
			return "cargo", []string{"check", "--message-format=json"}
		case "test":
			return "cargo", []string{"test", "--", "--format=terse"}
		default:
			return "cargo", []string{"build", "--message-format=json"}
		}
	}
	manager := "npm"
	if _, err := os.Stat(filepath.Join(b.worktree, "pnpm-lock.yaml")); err == nil {
		manager = "pnpm"
	}
	switch phase {
	case "check":
		return manager, []string{"run", "lint"}
	case "test":
		return manager, []string{"run", "test"}
	default:
		return manager, []string{"run", "build"}
	}
}

// cargoCompilerMessages extracts rendered compiler diagnostics from
// cargo's --message-format=json stdout, keeping only reason ==
// "compiler-message" lines, mirroring the original_source build tool's
// filter on the same field.
func cargoCompilerMessages(stdout string) []string {
	var messages []string
	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var entry struct {
			Reason  string `json:"reason"`
			Message struct {
				Rendered string `json:"rendered"`
				Level    string `json:"level"`
			} `json:"message"`
		}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if entry.Reason != "compiler-message" || entry.Message.Level != "error" {
			continue
		}
		messages = append(messages, entry.Message.Rendered)
	}
	return messages
}

func nonEmptyLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// shellWhitelist maps a command name to the set of first-argument
// subcommands it's allowed to run (§6.5).
var shellWhitelist = map[string]map[string]bool{
	"cargo": {"check": true, "build": true, "test": true, "clippy": true, "fmt": true, "doc": true, "clean": true},
	"git":   {"status": true, "diff": true, "add": true, "commit": true, "log": true, "show": true, "worktree": true, "merge": true, "branch": true, "checkout": true},
	"npm":   {"install": true, "run": true},
	"pnpm":  {"install": true, "run": true},
}

var blockedSubstrings = []string{"rm ", "curl", "wget", "sudo", "eval", "exec", "bash -c", "| rm", "> /"}

// RunWhitelisted runs name with args inside dir, refusing anything not
// on the §6.5 shell whitelist before spawning the process.
func RunWhitelisted(ctx context.Context, dir, name string, args ...string) (stdout, stderr string, err error) {
	allowed, ok := shellWhitelist[name]
	if !ok {
		return "", "", domain.NewError(domain.KindNotAllowed, "command not whitelisted: "+name, nil)
	}
	if len(args) == 0 || !allowed[args[0]] {
		sub := ""
		if len(args) > 0 {
			sub = args[0]
		}
		return "", "", domain.NewError(domain.KindNotAllowed, "subcommand not whitelisted: "+name+" "+sub, nil)
	}
	full := name + " " + strings.Join(args, " ")
	for _, blocked := range blockedSubstrings {
		if strings.Contains(full, blocked) {
			return "", "", domain.NewError(domain.KindNotAllowed, "command contains blocked pattern: "+blocked, nil)
		}
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var outBuf, errBuf strings.Builder
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	runErr := cmd.Run()
	stdout, stderr = outBuf.String(), errBuf.String()
	if runErr != nil {
		if _, ok := runErr.(*exec.ExitError); ok {
			return stdout, stderr, domain.NewError(domain.KindToolFailure, full+" exited non-zero", runErr)
		}
		return stdout, stderr, domain.NewError(domain.KindConfiguration, "spawn "+name, runErr)
	}
	return stdout, stderr, nil
}
