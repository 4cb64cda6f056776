package coordinator

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/madhatter5501/catalyst/domain"
	"golang.org/x/sync/errgroup"
)

// DraftResult is the outcome of one Draft scatter/gather call.
type DraftResult struct {
	FilesWritten int
	Errors       []string
}

// Draft scatters one LLM call per DraftingMission (bounded by
// cfg.DraftingConcurrency via errgroup.SetLimit — the Go analogue of the
// original's tokio JoinSet), then performs a single bulk write of every
// successful output into worktreePath, creating parent directories as
// needed. An individual draft failure is recorded but does not abort the
// phase (spec.md §4.7, "Additional behavior: Drafting phase"). B3: an
// empty mission list returns immediately and emits nothing.
func (c *Coordinator) Draft(ctx context.Context, missions []domain.DraftingMission, worktreePath string) (DraftResult, error) {
	if len(missions) == 0 {
		return DraftResult{}, nil
	}

	total := len(missions)
	c.publish(domain.EventDraftingStarted, "coordinator", "", map[string]any{"total": total})

	var mu sync.Mutex
	completed := 0
	var outputs []domain.DraftingOutput
	var errs []string

	g, gctx := errgroup.WithContext(ctx)
	if c.cfg.DraftingConcurrency > 0 {
		g.SetLimit(c.cfg.DraftingConcurrency)
	}
	for _, mission := range missions {
		mission := mission
		g.Go(func() error {
			out, err := c.drafter.Run(gctx, mission)

			mu.Lock()
			completed++
			n := completed
			if err != nil {
				errs = append(errs, mission.FilePath+": "+err.Error())
			} else {
				outputs = append(outputs, out)
			}
			mu.Unlock()

			c.publish(domain.EventDraftingProgress, "drafter", "", map[string]any{
				"completed": n, "total": total, "file_path": mission.FilePath,
			})
			return nil // individual failures are recorded above, not propagated
		})
	}
	_ = g.Wait()

	written, writeErrs := bulkWrite(worktreePath, outputs)
	errs = append(errs, writeErrs...)

	c.publish(domain.EventDraftingCompleted, "coordinator", "", map[string]any{
		"files_written": written, "errors": len(errs),
	})

	return DraftResult{FilesWritten: written, Errors: errs}, nil
}

// bulkWrite writes every drafted file under worktreePath, rejecting any
// path that would resolve outside it (the same sandboxing posture as the
// Builder tool surface, applied here since drafted file_path values
// ultimately trace back to Taskmaster's own LLM output).
func bulkWrite(worktreePath string, outputs []domain.DraftingOutput) (int, []string) {
	root := filepath.Clean(worktreePath)
	written := 0
	var errs []string

	for _, out := range outputs {
		full := filepath.Clean(filepath.Join(root, out.FilePath))
		if full != root && !strings.HasPrefix(full, root+string(filepath.Separator)) {
			errs = append(errs, out.FilePath+": path escapes worktree")
			continue
		}
		if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
			errs = append(errs, out.FilePath+": "+err.Error())
			continue
		}
		if err := os.WriteFile(full, []byte(out.SourceCode), 0o644); err != nil {
			errs = append(errs, out.FilePath+": "+err.Error())
			continue
		}
		written++
	}
	return written, errs
}
