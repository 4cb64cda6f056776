// Package coordinator implements the Pipeline Coordinator (C7): the state
// machine that drives Parse→Research→Architect⇄Critic→Atomize→
// TaskGeneration for one goal, integrating C1 (store), C2 (event bus), C3
// (inbox), C5 (research dispatcher) and C6 (agent adapters). Grounded in
// original_source's swarm/coordinator.rs `run` method and in the teacher's
// orchestrator.go `runCycle` structure (sequential stage processing off a
// single mutex-guarded struct, events/logging threaded throughout).
package coordinator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/madhatter5501/catalyst/domain"
	"github.com/madhatter5501/catalyst/eventbus"
	"github.com/madhatter5501/catalyst/inbox"
	"github.com/madhatter5501/catalyst/internal/store"
	"github.com/madhatter5501/catalyst/research"
)

// State is the coordinator's own position in the pipeline (distinct from
// a Feature's PipelineStage, which C8 owns) — the closed set named in
// spec.md §4.7.
type State string

const (
	StateIdle           State = "Idle"
	StateParsing        State = "Parsing"
	StateResearching    State = "Researching"
	StateArchitecting   State = "Architecting"
	StateCritiquing     State = "Critiquing"
	StateAtomizing      State = "Atomizing"
	StateTaskGeneration State = "TaskGeneration"
	StateComplete       State = "Complete"
	StateFailed         State = "Failed"
)

// researchPacing is the non-blocking poll interval while awaiting an async
// research reply, per §5 ("await reply_rx with 50ms timeout; loop").
const researchPacing = 50 * time.Millisecond

// ParseAdapter is the Parse agent (C6) as seen by the coordinator.
type ParseAdapter interface {
	Run(ctx context.Context, goalText string, profile map[string]any) ([]domain.Ambiguity, []domain.Ambiguity, error)
}

// ArchitectAdapter is the Architect agent (C6) as seen by the coordinator.
type ArchitectAdapter interface {
	Run(ctx context.Context, research domain.ResearchResult, specContext string, mode domain.Mode, requireApproval bool, commands <-chan inbox.Command) (domain.Decision, error)
}

// CriticAdapter is the Critic agent (C6) as seen by the coordinator.
type CriticAdapter interface {
	Run(ctx context.Context, decision domain.Decision, specContext string, mode domain.Mode) (domain.Verdict, error)
}

// AtomizerAdapter is the Atomizer agent (C6) as seen by the coordinator.
type AtomizerAdapter interface {
	Run(ctx context.Context, featureID, featureRequest string, decisions []domain.Decision, maxModuleLines int) (domain.Atomization, error)
}

// TaskmasterAdapter is the Taskmaster agent (C6) as seen by the coordinator.
type TaskmasterAdapter interface {
	Run(ctx context.Context, featureName, objective string, atomization domain.Atomization) (domain.Mission, error)
}

// DrafterAdapter is the Drafter agent (C6) as seen by the coordinator.
type DrafterAdapter interface {
	Run(ctx context.Context, mission domain.DraftingMission) (domain.DraftingOutput, error)
}

// Config governs the coordinator's gates and bounds, pinned via
// SPEC_FULL.md's config package (§6.1 config.json).
type Config struct {
	MaxRejections            int  // default 3, per §4.7
	MaxModuleLines           int  // default 150, forwarded to Atomizer
	RequireArchitectApproval bool
	DraftingConcurrency      int // errgroup.SetLimit bound; 0 = unbounded
}

// DefaultConfig returns the spec's stated defaults.
func DefaultConfig() Config {
	return Config{MaxRejections: 3, MaxModuleLines: 150}
}

// Coordinator is the C7 component.
type Coordinator struct {
	store      *store.Store
	bus        *eventbus.Bus
	inbox      *inbox.Inbox
	dispatcher *research.Dispatcher // nil disables the async path (§4.7 step 3a)
	research   research.Adapter     // used directly when dispatcher is nil

	parse      ParseAdapter
	architect  ArchitectAdapter
	critic     CriticAdapter
	atomizer   AtomizerAdapter
	taskmaster TaskmasterAdapter
	drafter    DrafterAdapter

	cfg    Config
	logger *slog.Logger

	mu    sync.Mutex
	state State
}

// New builds a Coordinator. dispatcher may be nil, in which case research
// is invoked synchronously through the researchAdapter argument.
func New(
	st *store.Store,
	bus *eventbus.Bus,
	ib *inbox.Inbox,
	dispatcher *research.Dispatcher,
	researchAdapter research.Adapter,
	parse ParseAdapter,
	architect ArchitectAdapter,
	critic CriticAdapter,
	atomizer AtomizerAdapter,
	taskmaster TaskmasterAdapter,
	drafter DrafterAdapter,
	cfg Config,
) *Coordinator {
	if cfg.MaxRejections <= 0 {
		cfg.MaxRejections = 3
	}
	if cfg.MaxModuleLines <= 0 {
		cfg.MaxModuleLines = 150
	}
	return &Coordinator{
		store:      st,
		bus:        bus,
		inbox:      ib,
		dispatcher: dispatcher,
		research:   researchAdapter,
		parse:      parse,
		architect:  architect,
		critic:     critic,
		atomizer:   atomizer,
		taskmaster: taskmaster,
		drafter:    drafter,
		cfg:        cfg,
		logger:     slog.Default().With("component", "coordinator"),
		state:      StateIdle,
	}
}

// State reports the coordinator's current position, for a status CLI.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Coordinator) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// run accumulates the events this invocation of Run emits, so the
// returned SwarmResult.Events reflects this run only (not the full
// audit trail) — every emission is still durably persisted via
// store.AppendEvent per DESIGN NOTES (the bus is advisory, lossy).
type run struct {
	events []domain.Event
}

// publish broadcasts an event and durably records it (the bus alone is
// advisory, per DESIGN NOTES), returning the stamped Event.
func (c *Coordinator) publish(kind domain.EventKind, agent, unknownID string, data map[string]any) domain.Event {
	ev := c.bus.Publish(kind, agent, unknownID, data)
	if err := c.store.AppendEvent(ev); err != nil {
		c.logger.Warn("append_event failed", "kind", kind, "error", err)
	}
	return ev
}

func (c *Coordinator) emit(r *run, kind domain.EventKind, agent, unknownID string, data map[string]any) {
	r.events = append(r.events, c.publish(kind, agent, unknownID, data))
}

// Run drives one goal through Parse→Research→Architect⇄Critic for every
// open Ambiguity, per spec.md §4.7's run(goal) algorithm. commands feeds
// Architect's approval gate (and any Abort raised while suspended); it
// may be nil if RequireArchitectApproval is false.
func (c *Coordinator) Run(ctx context.Context, goal domain.Goal, mode domain.Mode, commands <-chan inbox.Command) (domain.SwarmResult, error) {
	r := &run{}
	result := domain.SwarmResult{}

	c.setState(StateParsing)
	c.emit(r, domain.EventPipelineStarted, "coordinator", "", map[string]any{"feature_id": goal.FeatureID})

	profile, err := c.store.GetCodebaseProfile()
	if err != nil {
		return c.fail(r, result, err)
	}

	unknowns, inferredKnowns, err := c.parse.Run(ctx, goal.Text, profile)
	if err != nil {
		return c.fail(r, result, err)
	}
	result.Unknowns = unknowns
	if err := c.persistUnknowns(unknowns, inferredKnowns); err != nil {
		return c.fail(r, result, err)
	}

	if len(unknowns) == 0 {
		// B1: empty goal (or a profile that resolves every question)
		// short-circuits straight to Building, owned by C8.
		result.Success = true
		c.setState(StateComplete)
		c.completePhase("execution_ready")
		c.emit(r, domain.EventPipelineCompleted, "coordinator", "", map[string]any{"feature_id": goal.FeatureID, "unknowns": 0})
		result.Events = r.events
		return result, nil
	}

	specContext := goal.Text
	allApproved := true
	for _, unknown := range unknowns {
		researchResult, decision, verdict, err := c.processUnknown(ctx, r, unknown, specContext, mode, commands)
		if err != nil {
			return c.fail(r, result, err)
		}
		result.Research = append(result.Research, researchResult)
		result.Decisions = append(result.Decisions, decision)
		result.Verdicts = append(result.Verdicts, verdict)
		if verdict.Verdict != domain.VerdictApproved {
			allApproved = false
		}
	}

	result.Success = allApproved
	if allApproved {
		c.setState(StateComplete)
		c.completePhase("execution_ready")
		c.emit(r, domain.EventPipelineCompleted, "coordinator", "", map[string]any{"feature_id": goal.FeatureID})
	} else {
		c.setState(StateFailed)
		c.completePhase("failed")
		c.emit(r, domain.EventPipelineFailed, "coordinator", "", map[string]any{"feature_id": goal.FeatureID})
	}
	result.Events = r.events
	return result, nil
}

func (c *Coordinator) fail(r *run, result domain.SwarmResult, cause error) (domain.SwarmResult, error) {
	c.setState(StateFailed)
	c.completePhase("failed")
	c.emit(r, domain.EventPipelineFailed, "coordinator", "", map[string]any{"error": cause.Error()})
	result.Success = false
	result.Events = r.events
	return result, cause
}

func (c *Coordinator) completePhase(phase string) {
	state, err := c.store.GetProjectState()
	if err != nil {
		c.logger.Warn("get_project_state failed", "error", err)
		return
	}
	state["phase"] = phase
	if err := c.store.SetProjectState(state); err != nil {
		c.logger.Warn("set_project_state failed", "error", err)
	}
}

// persistUnknowns records the Parse output on project_state, the role
// SpecManager plays in original_source — here folded into C1 directly
// since no separate spec-document component exists in this architecture.
func (c *Coordinator) persistUnknowns(unknowns, inferredKnowns []domain.Ambiguity) error {
	state, err := c.store.GetProjectState()
	if err != nil {
		return err
	}
	state["unknowns"] = unknowns
	state["inferred_knowns"] = inferredKnowns
	return c.store.SetProjectState(state)
}

// processUnknown runs Research then the Architect↔Critic loop for one
// Ambiguity, per §4.7 steps 3a/3b.
func (c *Coordinator) processUnknown(ctx context.Context, r *run, unknown domain.Ambiguity, specContext string, mode domain.Mode, commands <-chan inbox.Command) (domain.ResearchResult, domain.Decision, domain.Verdict, error) {
	c.setState(StateResearching)
	c.emit(r, domain.EventAgentStarted, "research", unknown.ID, nil)
	researchResult, err := c.runResearch(ctx, r, unknown)
	if err != nil {
		c.emit(r, domain.EventAgentFailed, "research", unknown.ID, map[string]any{"error": err.Error()})
		return domain.ResearchResult{}, domain.Decision{}, domain.Verdict{}, err
	}
	c.emit(r, domain.EventAgentCompleted, "research", unknown.ID, nil)
	if err := c.store.SaveResearchResult(researchResult); err != nil {
		return domain.ResearchResult{}, domain.Decision{}, domain.Verdict{}, err
	}

	decision, verdict, err := c.architectCriticLoop(ctx, r, unknown, researchResult, specContext, mode, commands)
	if err != nil {
		return domain.ResearchResult{}, domain.Decision{}, domain.Verdict{}, err
	}
	return researchResult, decision, verdict, nil
}

// runResearch calls the adapter synchronously, or — when a dispatcher is
// wired — submits a mission and drains progress/reply with a 50ms pacing
// poll (§5). Bails on any error (§4.7 step 3a).
func (c *Coordinator) runResearch(ctx context.Context, r *run, unknown domain.Ambiguity) (domain.ResearchResult, error) {
	if c.dispatcher == nil {
		return c.research.Research(ctx, unknown.ID, unknown.Question, unknown.Context)
	}

	reply := make(chan research.Reply, 1)
	if err := c.dispatcher.Submit(ctx, research.Mission{
		UnknownID:    unknown.ID,
		Question:     unknown.Question,
		Context:      unknown.Context,
		ReplyChannel: reply,
	}); err != nil {
		return domain.ResearchResult{}, err
	}

	ticker := time.NewTicker(researchPacing)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return domain.ResearchResult{}, domain.NewError(domain.KindLLMFailure, "research: context cancelled", ctx.Err())
		case rep, ok := <-reply:
			if !ok {
				return domain.ResearchResult{}, domain.NewError(domain.KindChannelClosed, "research reply channel closed", nil)
			}
			if rep.Err != nil {
				return domain.ResearchResult{}, rep.Err
			}
			return rep.Result, nil
		case p := <-c.dispatcher.Progress():
			c.emit(r, p.Kind, "research", p.UnknownID, map[string]any{"message": p.Message})
		case <-ticker.C:
			// pacing tick: loop back and re-check reply/progress.
		}
	}
}

// architectCriticLoop bounds attempts by cfg.MaxRejections and commits the
// final Decision/Verdict whichever way the loop exits, per §4.7 step 3b.
func (c *Coordinator) architectCriticLoop(ctx context.Context, r *run, unknown domain.Ambiguity, researchResult domain.ResearchResult, specContext string, mode domain.Mode, commands <-chan inbox.Command) (domain.Decision, domain.Verdict, error) {
	c.setState(StateArchitecting)
	var decision domain.Decision
	var verdict domain.Verdict
	attempts := 0

	for {
		c.emit(r, domain.EventAgentStarted, "architect", unknown.ID, nil)
		var err error
		decision, err = c.architect.Run(ctx, researchResult, specContext, mode, c.cfg.RequireArchitectApproval, commands)
		if err != nil {
			c.emit(r, domain.EventAgentFailed, "architect", unknown.ID, map[string]any{"error": err.Error()})
			return domain.Decision{}, domain.Verdict{}, err
		}
		c.emit(r, domain.EventAgentCompleted, "architect", unknown.ID, nil)
		c.emit(r, domain.EventDataPassed, "architect", unknown.ID, map[string]any{"to": "critic"})

		c.setState(StateCritiquing)
		c.emit(r, domain.EventAgentStarted, "critic", unknown.ID, nil)
		verdict, err = c.critic.Run(ctx, decision, specContext, mode)
		if err != nil {
			c.emit(r, domain.EventAgentFailed, "critic", unknown.ID, map[string]any{"error": err.Error()})
			return domain.Decision{}, domain.Verdict{}, err
		}
		c.emit(r, domain.EventAgentCompleted, "critic", unknown.ID, nil)

		if verdict.Verdict == domain.VerdictApproved {
			break
		}

		attempts++
		c.emit(r, domain.EventCriticRejected, "critic", unknown.ID, map[string]any{"attempt": attempts, "verdict": verdict.Verdict})
		if attempts >= c.cfg.MaxRejections {
			break // §4.7: commit whatever we have and exit the loop
		}
		c.setState(StateArchitecting) // loop back to Architect, same research input
	}

	if err := c.store.SaveDecision(decision); err != nil {
		return domain.Decision{}, domain.Verdict{}, err
	}
	if err := c.store.SaveVerdict(verdict); err != nil {
		return domain.Decision{}, domain.Verdict{}, err
	}
	return decision, verdict, nil
}
