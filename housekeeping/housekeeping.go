// Package housekeeping runs the background reconciliation loop
// supplemented from the teacher's BackgroundAgentManager: a stale-run
// reaper (grounded on healStuckDevTickets) and an orphaned-worktree
// sweep (grounded on CleanupOrphanedWorktrees), on the same
// ticker-per-concern pattern.
package housekeeping

import (
	"context"
	"log/slog"
	"time"

	"github.com/madhatter5501/catalyst/domain"
	"github.com/madhatter5501/catalyst/eventbus"
	"github.com/madhatter5501/catalyst/internal/store"
)

// WorktreePruner is the subset of *git.WorktreeManager the sweep needs.
type WorktreePruner interface {
	CleanupOrphanedWorktrees() error
}

// Config governs the housekeeping loop's cadence and thresholds.
type Config struct {
	ReapInterval   time.Duration // how often the stale-run reaper runs
	SweepInterval  time.Duration // how often the worktree sweep runs
	MaxRunDuration time.Duration // an AgentRun older than this with no terminal event is stale
}

// DefaultConfig mirrors the teacher's 30s/5m cadence split between its
// fast and slow background agents.
func DefaultConfig() Config {
	return Config{
		ReapInterval:   30 * time.Second,
		SweepInterval:  5 * time.Minute,
		MaxRunDuration: 15 * time.Minute,
	}
}

// Housekeeper owns the two background concerns.
type Housekeeper struct {
	store    *store.Store
	bus      *eventbus.Bus
	worktree WorktreePruner
	cfg      Config
	logger   *slog.Logger
}

// New builds a Housekeeper. worktree may be nil to disable the sweep
// (e.g. in tests exercising only the reaper).
func New(st *store.Store, bus *eventbus.Bus, worktree WorktreePruner, cfg Config) *Housekeeper {
	if cfg.ReapInterval <= 0 {
		cfg.ReapInterval = 30 * time.Second
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 5 * time.Minute
	}
	if cfg.MaxRunDuration <= 0 {
		cfg.MaxRunDuration = 15 * time.Minute
	}
	return &Housekeeper{
		store:    st,
		bus:      bus,
		worktree: worktree,
		cfg:      cfg,
		logger:   slog.Default().With("component", "housekeeping"),
	}
}

// Run drives both loops until ctx is cancelled, mirroring
// BackgroundAgentManager.Start's one-goroutine-per-concern layout.
func (h *Housekeeper) Run(ctx context.Context) {
	go h.reapLoop(ctx)
	go h.sweepLoop(ctx)
}

func (h *Housekeeper) reapLoop(ctx context.Context) {
	h.ReapStaleRuns()
	ticker := time.NewTicker(h.cfg.ReapInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.ReapStaleRuns()
		}
	}
}

func (h *Housekeeper) sweepLoop(ctx context.Context) {
	h.SweepOrphanedWorktrees()
	ticker := time.NewTicker(h.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.SweepOrphanedWorktrees()
		}
	}
}

// ReapStaleRuns marks any AgentRun older than MaxRunDuration with no
// terminal event as failed, leaving the owning Feature's counters
// untouched so the coordinator can retry it.
func (h *Housekeeper) ReapStaleRuns() {
	runs, err := h.store.ListRunningAgentRuns()
	if err != nil {
		h.logger.Warn("list_running_agent_runs failed", "error", err)
		return
	}

	cutoff := time.Now().UTC().Add(-h.cfg.MaxRunDuration)
	for _, run := range runs {
		if run.StartedAt.After(cutoff) {
			continue
		}
		if err := h.store.CompleteAgentRun(run.ID, "failed", "", "reaped: exceeded max run duration"); err != nil {
			h.logger.Warn("complete_agent_run failed during reap", "run_id", run.ID, "error", err)
			continue
		}
		h.logger.Warn("reaped stale agent run", "run_id", run.ID, "agent", run.Agent, "feature_id", run.FeatureID)
		if h.bus != nil {
			ev := h.bus.Publish(domain.EventAgentFailed, run.Agent, "", map[string]any{
				"feature_id": run.FeatureID,
				"run_id":     run.ID,
				"reason":     "reaped",
			})
			if err := h.store.AppendEvent(ev); err != nil {
				h.logger.Warn("append_event failed during reap", "error", err)
			}
		}
	}
}

// SweepOrphanedWorktrees prunes worktrees git itself considers stale.
// Feature-level orphan detection (a worktree directory with no matching
// Building-or-later Feature) is left to the caller's pool lifecycle,
// since deleting a directory git still tracks would desync its index.
func (h *Housekeeper) SweepOrphanedWorktrees() {
	if h.worktree == nil {
		return
	}
	if err := h.worktree.CleanupOrphanedWorktrees(); err != nil {
		h.logger.Warn("cleanup_orphaned_worktrees failed", "error", err)
	}
}
