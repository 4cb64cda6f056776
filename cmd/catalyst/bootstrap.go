package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/madhatter5501/catalyst/agents"
	"github.com/madhatter5501/catalyst/agents/provider"
	"github.com/madhatter5501/catalyst/agents/tools"
	"github.com/madhatter5501/catalyst/config"
	"github.com/madhatter5501/catalyst/coordinator"
	"github.com/madhatter5501/catalyst/domain"
	"github.com/madhatter5501/catalyst/eventbus"
	"github.com/madhatter5501/catalyst/git"
	"github.com/madhatter5501/catalyst/housekeeping"
	"github.com/madhatter5501/catalyst/inbox"
	"github.com/madhatter5501/catalyst/internal/store"
	"github.com/madhatter5501/catalyst/pool"
	"github.com/madhatter5501/catalyst/research"
	"github.com/madhatter5501/catalyst/snapshot"
)

// app wires the eight components together, the way runDashboardWithOrchestrator
// wires *db.Store/*web.Server in the teacher's main.go, but onto this
// domain's coordinator/pool/housekeeping stack instead of a kanban board.
type app struct {
	cfg         config.Config
	store       *store.Store
	bus         *eventbus.Bus
	inbox       *inbox.Inbox
	snapshots   *snapshot.Manager
	worktree    *git.WorktreeManager
	dispatcher  *research.Dispatcher
	coordinator *coordinator.Coordinator
	pool        *pool.Pool
	housekeeper *housekeeping.Housekeeper
	providers   *provider.Factory
	logger      *slog.Logger
}

func newApp() (*app, error) {
	level := slog.LevelInfo
	if flagVerbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagRepoRoot != "" && flagRepoRoot != "." {
		cfg.RepoRoot = flagRepoRoot
	}

	st, err := store.Open(flagDBPath)
	if err != nil {
		return nil, domain.NewError(domain.KindStorage, "open store", err)
	}

	bus := eventbus.New()
	ib := inbox.New(st, bus)
	snaps := snapshot.New(st, bus)
	wt := git.NewWorktreeManager(cfg.RepoRoot, cfg.WorktreeDir, cfg.MainBranch)

	factory := provider.NewFactory(cfg.BaseURL)
	registry := agents.NewRegistry(st, factory, cfg.GlobalProvider)

	parse := agents.NewParse(registry)
	architect := agents.NewArchitect(registry, ib)
	critic := agents.NewCritic(registry)
	atomizer := agents.NewAtomizer(registry)
	taskmaster := agents.NewTaskmaster(registry)
	drafter := agents.NewDrafter(registry)
	builder := agents.NewBuilder(registry, tools.ConstraintLimits{
		MaxModuleLines:   cfg.MaxModuleLines,
		MaxFunctionLines: cfg.MaxFunctionLines,
		ForbiddenCalls:   cfg.ForbiddenCalls,
	})
	researchAdapter := agents.NewResearch(registry, cfg.SearxngURL)
	dispatcher := research.New(researchAdapter, bus)

	coord := coordinator.New(st, bus, ib, dispatcher, researchAdapter,
		parse, architect, critic, atomizer, taskmaster, drafter,
		coordinator.Config{
			MaxRejections:            cfg.MaxRejections,
			MaxModuleLines:           cfg.MaxModuleLines,
			RequireArchitectApproval: cfg.RequireArchitectApproval,
			DraftingConcurrency:      cfg.DraftingConcurrency,
		},
	)

	p := pool.New(st, wt, builder, ib, cfg.MaxConcurrentFeatures)
	hk := housekeeping.New(st, bus, wt, housekeeping.Config{MaxRunDuration: cfg.AgentTimeout})

	return &app{
		cfg: cfg, store: st, bus: bus, inbox: ib, snapshots: snaps,
		worktree: wt, dispatcher: dispatcher, coordinator: coord,
		pool: p, housekeeper: hk, providers: factory, logger: logger,
	}, nil
}

// signalContext mirrors the teacher's main.go graceful-shutdown pattern:
// a context cancelled on SIGINT/SIGTERM instead of os.Exit mid-request.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()
	return ctx, cancel
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("store close failed", "error", err)
	}
}

// exitCodeFor maps the §7 error taxonomy onto a process exit code per
// §6.6: 1 for a fatal configuration/storage (migration) error, 2 for
// any other pipeline failure. 0 is never reached here (the non-error
// path returns nil and cobra exits 0 on its own).
func exitCodeFor(err error) int {
	if domain.IsKind(err, domain.KindConfiguration) || domain.IsKind(err, domain.KindStorage) {
		return 1
	}
	return 2
}
