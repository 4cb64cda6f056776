// Package pool implements the Feature Worker Pool (C8): a semaphore-bounded
// set of concurrent workers, one per feature id, each driving
// Building→Testing→Merging/Complete via the Builder adapter (C6) and git
// worktrees. Grounded in original_source's swarm/coordinator.rs feature
// pool section and in the teacher's git/worktree.go worktree lifecycle,
// generalized from per-ticket branches to the catalyst/<feature_id> scheme.
package pool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/madhatter5501/catalyst/domain"
	gitpkg "github.com/madhatter5501/catalyst/git"
	"github.com/madhatter5501/catalyst/inbox"
	"github.com/madhatter5501/catalyst/internal/store"
	"golang.org/x/sync/semaphore"
)

// BuilderAdapter is the Builder agent (C6) as seen by the pool.
type BuilderAdapter interface {
	Run(ctx context.Context, mission domain.Mission, worktreePath string) (domain.BuildResult, error)
}

// defaultMission is used when a Feature carries no description.
const defaultMission = "Implement the feature as scoped by its title."

// Result is one feature's outcome from a Run call.
type Result struct {
	FeatureID string
	Success   bool
	Error     string
}

// Pool is the C8 component.
type Pool struct {
	store    *store.Store
	worktree *gitpkg.WorktreeManager
	builder  BuilderAdapter
	inbox    *inbox.Inbox
	sem      *semaphore.Weighted
	logger   *slog.Logger

	// mergeMu serializes checkout+merge against the shared main working
	// tree: unlike a feature's own worktree, that tree is not exclusively
	// owned by one worker (§5 shared-resource policy).
	mergeMu sync.Mutex
}

// New builds a Pool bounded to maxConcurrent simultaneous feature workers
// (default 3, per spec.md §4.8). ib may be nil, in which case a blocking
// ConstraintReport never suspends for approval (it still fails the
// Feature, per §7's "on reject, Feature is failed" outcome).
func New(st *store.Store, worktree *gitpkg.WorktreeManager, builder BuilderAdapter, ib *inbox.Inbox, maxConcurrent int) *Pool {
	if maxConcurrent <= 0 {
		maxConcurrent = 3
	}
	return &Pool{
		store:    st,
		worktree: worktree,
		builder:  builder,
		inbox:    ib,
		sem:      semaphore.NewWeighted(int64(maxConcurrent)),
		logger:   slog.Default().With("component", "pool"),
	}
}

// Run drives every feature id to completion concurrently, bounded by the
// pool's semaphore, and returns one Result per id in input order. A
// panicking worker yields a synthetic failure record rather than
// propagating, per §4.8 ("join_all; a panicking task yields a synthetic
// failure record"). commands carries approvals for any blocking
// ConstraintReport a Builder run surfaces (§7 ConstraintViolation).
func (p *Pool) Run(ctx context.Context, featureIDs []string, commands <-chan inbox.Command) []Result {
	results := make([]Result, len(featureIDs))
	done := make(chan struct{})
	remaining := len(featureIDs)
	if remaining == 0 {
		return results
	}

	for i, id := range featureIDs {
		i, id := i, id
		go func() {
			defer func() { done <- struct{}{} }()
			results[i] = p.runOneSafely(ctx, id, commands)
		}()
	}
	for range featureIDs {
		<-done
	}
	return results
}

func (p *Pool) runOneSafely(ctx context.Context, featureID string, commands <-chan inbox.Command) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("feature worker panicked", "feature_id", featureID, "panic", r)
			result = Result{FeatureID: featureID, Success: false, Error: "worker panicked"}
		}
	}()
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return Result{FeatureID: featureID, Success: false, Error: err.Error()}
	}
	defer p.sem.Release(1)
	return p.runOne(ctx, featureID, commands)
}

func (p *Pool) runOne(ctx context.Context, featureID string, commands <-chan inbox.Command) Result {
	feature, err := p.store.GetFeature(featureID)
	if err != nil {
		return Result{FeatureID: featureID, Success: false, Error: err.Error()}
	}

	feature.Stage = domain.StageBuilding
	if err := p.store.UpdateFeature(feature); err != nil {
		return p.setFailed(feature, err)
	}

	worktreePath, _, err := p.worktree.CreateFeatureWorktree(featureID)
	if err != nil {
		return p.setFailed(feature, err)
	}

	feature.WorktreePath = worktreePath
	if err := p.store.UpdateFeature(feature); err != nil {
		return p.setFailed(feature, err)
	}

	missionText := feature.Description
	if missionText == "" {
		missionText = defaultMission
	}
	mission := domain.Mission{FeatureName: feature.Title, Objective: missionText}

	runID := uuid.NewString()
	if err := p.store.StartAgentRun(store.AgentRun{ID: runID, Agent: "builder", FeatureID: featureID, Worktree: worktreePath}); err != nil {
		p.logger.Warn("start_agent_run failed", "feature_id", featureID, "error", err)
	}

	build, err := p.builder.Run(ctx, mission, worktreePath)
	if err != nil {
		_ = p.store.CompleteAgentRun(runID, "failed", "", err.Error())
		return p.setFailed(feature, err)
	}
	if !build.Success {
		_ = p.store.CompleteAgentRun(runID, "failed", "", "builder reported failure")
		return p.setFailed(feature, errors.New("builder reported failure"))
	}
	_ = p.store.CompleteAgentRun(runID, "success", fmt.Sprintf("%d file(s) changed", len(build.Files)), "")

	for _, r := range build.ConstraintReports {
		if r.Severity != domain.ConstraintBlocking {
			p.logger.Warn("advisory constraint violation", "feature_id", featureID, "rule", r.Rule, "file", r.File, "actual", r.Actual, "limit", r.Limit)
		}
	}

	if blocking := blockingReports(build.ConstraintReports); len(blocking) > 0 {
		approved, err := p.approveConstraints(ctx, featureID, blocking, commands)
		if err != nil {
			return p.setFailed(feature, err)
		}
		if !approved {
			return p.setFailed(feature, domain.NewError(domain.KindConstraintViolation, "constraint violation rejected by reviewer", nil))
		}
	}

	feature.Stage = domain.StageTesting
	if err := p.store.UpdateFeature(feature); err != nil {
		return p.setFailed(feature, err)
	}

	// The Builder writes files directly into the worktree; commit them to
	// the feature branch so the merge step below has something to carry
	// (original_source leaves this step implicit in BuilderSkill).
	if err := p.worktree.Commit(worktreePath, "feat: builder output for "+featureID); err != nil {
		return p.setFailed(feature, err)
	}

	p.mergeMu.Lock()
	mergeErr := p.worktree.MergeFeatureWorktree(featureID, worktreePath)
	p.mergeMu.Unlock()
	if err := mergeErr; err != nil {
		var conflict *gitpkg.ConflictError
		if errors.As(err, &conflict) {
			feature.Stage = domain.StageMerging
			feature.Error = conflict.Error()
			_ = p.store.UpdateFeature(feature)
			return Result{FeatureID: featureID, Success: false, Error: conflict.Error()}
		}
		return p.setFailed(feature, err)
	}

	feature.Stage = domain.StageComplete
	feature.Error = ""
	if err := p.store.UpdateFeature(feature); err != nil {
		return p.setFailed(feature, err)
	}
	return Result{FeatureID: featureID, Success: true}
}

func (p *Pool) setFailed(feature domain.Feature, cause error) Result {
	feature.Stage = domain.StageFailed
	feature.Error = cause.Error()
	if err := p.store.UpdateFeature(feature); err != nil {
		p.logger.Warn("update_feature failed while recording failure", "feature_id", feature.ID, "error", err)
	}
	return Result{FeatureID: feature.ID, Success: false, Error: cause.Error()}
}

// blockingReports filters to the ConstraintBlocking severity reports;
// advisory ones are logged but never suspend a feature.
func blockingReports(reports []domain.ConstraintReport) []domain.ConstraintReport {
	var blocking []domain.ConstraintReport
	for _, r := range reports {
		if r.Severity == domain.ConstraintBlocking {
			blocking = append(blocking, r)
		}
	}
	return blocking
}

// approveConstraints suspends via the Inbox for human approval of the
// blocking ConstraintReports a Builder run surfaced (§7: "Raised to
// Inbox for approval; on reject, Feature is failed"), mirroring the
// Architect adapter's own AskUser approval gate. With no Inbox wired
// in, a blocking report fails the feature outright.
func (p *Pool) approveConstraints(ctx context.Context, featureID string, blocking []domain.ConstraintReport, commands <-chan inbox.Command) (bool, error) {
	if p.inbox == nil {
		return false, nil
	}
	reportsJSON, _ := json.Marshal(blocking)
	response, err := p.inbox.AskUser(ctx, commands, domain.Interaction{
		ID:          "constraint-" + featureID,
		Kind:        domain.InteractionAlert,
		FromAgent:   "builder",
		Title:       "Approve constraint violations for " + featureID,
		Description: string(reportsJSON),
	})
	if err != nil {
		return false, err
	}
	return response != "reject" && response != "", nil
}
